package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		Load()
		assert.Equal(t, "info", Cfg.LogLevel)
		assert.Equal(t, time.Minute, Cfg.ConnectionTimeout)
		assert.Equal(t, 22, Cfg.DefaultSSHPort)
		assert.Equal(t, "unix", Cfg.HostOS)
		assert.Equal(t, 32768, Cfg.SFTPMaxPacket)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv("REMOTEFS_CONNECTION_TIMEOUT", "5m")
		t.Setenv("REMOTEFS_HOST_OS", "windows")
		t.Setenv("REMOTEFS_SFTP_MAX_PACKET", "4096")
		Load()
		assert.Equal(t, 4096, Cfg.SFTPMaxPacket)
		assert.Equal(t, 5*time.Minute, Cfg.ConnectionTimeout)
		assert.Equal(t, "windows", Cfg.HostOS)
	})
}
