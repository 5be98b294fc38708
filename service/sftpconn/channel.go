package sftpconn

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/sftp"

	"remotefs/metrics"
	"remotefs/service/remotefile"
)

// Status codes that mean the server side of the channel is gone.
const (
	fxNoConnection   = 6
	fxConnectionLost = 7
)

// sftpChannel adapts an *sftp.Client to remotefile.Channel.
type sftpChannel struct {
	*sftp.Client

	// broken is set once a call failed at the transport level.
	broken    atomic.Bool
	closeOnce sync.Once
}

func newChannel(client *sftp.Client, purpose string) *sftpChannel {
	metrics.RecordChannelOpened(purpose)
	return &sftpChannel{Client: client}
}

// classify tags err with the side of the channel it came from.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sftp.ErrSSHFxConnectionLost) || errors.Is(err, sftp.ErrSSHFxNoConnection) {
		return remotefile.TransportError(err)
	}

	var status *sftp.StatusError
	if errors.As(err, &status) {
		if status.Code == fxNoConnection || status.Code == fxConnectionLost {
			return remotefile.TransportError(err)
		}
		return remotefile.ProtocolError(err)
	}

	switch {
	case errors.Is(err, os.ErrNotExist),
		errors.Is(err, os.ErrPermission),
		errors.Is(err, os.ErrExist),
		errors.Is(err, sftp.ErrSSHFxNoSuchFile),
		errors.Is(err, sftp.ErrSSHFxPermissionDenied),
		errors.Is(err, sftp.ErrSSHFxFailure),
		errors.Is(err, sftp.ErrSSHFxBadMessage),
		errors.Is(err, sftp.ErrSSHFxOpUnsupported):
		return remotefile.ProtocolError(err)
	}
	return remotefile.TransportError(err)
}

func (c *sftpChannel) done(op string, err error) error {
	err = classify(err)
	switch {
	case err == nil:
		metrics.RecordChannelCall(op, "ok")
	case remotefile.IsTransportFailure(err):
		c.broken.Store(true)
		metrics.RecordChannelCall(op, "transport")
	default:
		metrics.RecordChannelCall(op, "remote")
	}
	return err
}

func (c *sftpChannel) Stat(p string) (os.FileInfo, error) {
	info, err := c.Client.Stat(p)
	return info, c.done("stat", err)
}

func (c *sftpChannel) ReadDir(p string) ([]os.FileInfo, error) {
	infos, err := c.Client.ReadDir(p)
	return infos, c.done("readdir", err)
}

func (c *sftpChannel) Mkdir(p string) error {
	return c.done("mkdir", c.Client.Mkdir(p))
}

func (c *sftpChannel) Remove(p string) error {
	return c.done("remove", c.Client.Remove(p))
}

func (c *sftpChannel) RemoveDirectory(p string) error {
	return c.done("rmdir", c.Client.RemoveDirectory(p))
}

func (c *sftpChannel) Rename(oldPath, newPath string) error {
	return c.done("rename", c.Client.Rename(oldPath, newPath))
}

func (c *sftpChannel) OpenRead(p string) (io.ReadCloser, error) {
	f, err := c.Client.Open(p)
	if err = c.done("open", err); err != nil {
		return nil, err
	}
	return &remoteFile{File: f}, nil
}

func (c *sftpChannel) OpenWrite(p string) (io.WriteCloser, error) {
	f, err := c.Client.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err = c.done("open", err); err != nil {
		return nil, err
	}
	return &remoteFile{File: f}, nil
}

func (c *sftpChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		metrics.RecordChannelClosed()
		err = c.Client.Close()
	})
	return err
}

// remoteFile classifies the errors of an open *sftp.File.
type remoteFile struct {
	*sftp.File
}

func (f *remoteFile) Read(p []byte) (int, error) {
	n, err := f.File.Read(p)
	if err == io.EOF {
		return n, err
	}
	return n, classify(err)
}

func (f *remoteFile) Write(p []byte) (int, error) {
	n, err := f.File.Write(p)
	return n, classify(err)
}

func (f *remoteFile) Close() error {
	return classify(f.File.Close())
}
