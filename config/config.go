package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat         string        `envconfig:"LOG_FORMAT" default:"console"`
	LogFile           string        `envconfig:"LOG_FILE" default:""`
	ConnectionTimeout time.Duration `envconfig:"CONNECTION_TIMEOUT" default:"1m"`
	DefaultSSHPort    int           `envconfig:"DEFAULT_SSH_PORT" default:"22"`
	HostOS            string        `envconfig:"HOST_OS" default:"unix"`
	// SFTPMaxPacket caps the SFTP payload size; 0 keeps the client default.
	SFTPMaxPacket int `envconfig:"SFTP_MAX_PACKET" default:"32768"`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("REMOTEFS", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}
