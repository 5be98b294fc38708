// Package sftpconn provides remote file connections over SSH using the SFTP
// subsystem.
//
// A Connection owns one shared SFTP channel for metadata operations, opened
// on first use and guarded by a mutex, and opens a fresh SFTP channel for
// every read or write stream.
package sftpconn

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"remotefs/service/pathconv"
	"remotefs/service/remotefile"
)

// Opener opens a new SFTP client with opts. forWrite tells which kind of
// stream the client will serve; the shared client is opened with forWrite
// false.
type Opener func(forWrite bool, opts ...sftp.ClientOption) (*sftp.Client, error)

type Option func(*Connection)

// WithHostOS sets the operating system family of the remote host.
func WithHostOS(family pathconv.Family) Option {
	return func(c *Connection) { c.hostOS = family }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Connection) { c.logger = logger }
}

// WithClientOptions passes opts to every SFTP client the connection opens.
func WithClientOptions(opts ...sftp.ClientOption) Option {
	return func(c *Connection) { c.clientOpts = append(c.clientOpts, opts...) }
}

type Connection struct {
	id     string
	hostOS pathconv.Family
	logger *zap.Logger
	open   Opener

	sshClient  *ssh.Client
	ownsSSH    bool
	clientOpts []sftp.ClientOption

	closed atomic.Bool

	mu     sync.Mutex
	shared *sftpChannel
}

// Dial connects to addr and returns a connection that owns the SSH client.
func Dial(network, addr string, config *ssh.ClientConfig, opts ...Option) (*Connection, error) {
	client, err := ssh.Dial(network, addr, config)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ssh: %w", err)
	}
	c := New(client, opts...)
	c.ownsSSH = true
	return c, nil
}

// New returns a connection using an existing SSH client. Closing the
// connection leaves the client open.
func New(client *ssh.Client, opts ...Option) *Connection {
	c := newConnection(opts)
	c.sshClient = client
	c.open = func(_ bool, opts ...sftp.ClientOption) (*sftp.Client, error) {
		return sftp.NewClient(client, opts...)
	}
	return c
}

// NewWithOpener returns a connection whose channels come from open instead of
// an SSH client.
func NewWithOpener(open Opener, opts ...Option) *Connection {
	c := newConnection(opts)
	c.open = open
	return c
}

func newConnection(opts []Option) *Connection {
	c := &Connection{
		id:     uuid.NewString(),
		hostOS: pathconv.Unix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("conn", c.id))
	return c
}

// options returns the client options for a new channel: those set with
// WithClientOptions, then concurrent reads or writes by purpose.
func (c *Connection) options(forWrite bool) []sftp.ClientOption {
	opts := append([]sftp.ClientOption{}, c.clientOpts...)
	if forWrite {
		return append(opts, sftp.UseConcurrentWrites(true))
	}
	return append(opts, sftp.UseConcurrentReads(true))
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) HostOS() pathconv.Family { return c.hostOS }

func (c *Connection) Logger() *zap.Logger { return c.logger }

// File returns a handle for path on this connection.
func (c *Connection) File(path string) *remotefile.File {
	return remotefile.New(c, path)
}

// WithSharedChannel implements remotefile.Connection.
func (c *Connection) WithSharedChannel(fn func(remotefile.Channel) error) error {
	if c.closed.Load() {
		return remotefile.ErrConnectionClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return remotefile.ErrConnectionClosed
	}
	if c.shared == nil {
		client, err := c.open(false, c.options(false)...)
		if err != nil {
			return remotefile.TransportError(fmt.Errorf("failed to open shared sftp channel: %w", err))
		}
		c.logger.Debug("opened shared sftp channel")
		c.shared = newChannel(client, "shared")
	}

	err := fn(c.shared)
	if c.shared.broken.Load() {
		// The next caller gets a fresh channel; this one is not retried.
		c.logger.Warn("shared sftp channel broken, discarding", zap.Error(err))
		c.shared.Close()
		c.shared = nil
	}
	return err
}

// OpenDedicatedChannel implements remotefile.Connection.
func (c *Connection) OpenDedicatedChannel(forWrite bool) (remotefile.Channel, error) {
	if c.closed.Load() {
		return nil, remotefile.ErrConnectionClosed
	}

	purpose := "read"
	if forWrite {
		purpose = "write"
	}
	client, err := c.open(forWrite, c.options(forWrite)...)
	if err != nil {
		return nil, remotefile.TransportError(fmt.Errorf("failed to open %s sftp channel: %w", purpose, err))
	}
	c.logger.Debug("opened dedicated sftp channel", zap.String("purpose", purpose))
	return newChannel(client, purpose), nil
}

// Close closes the shared channel and, for dialed connections, the SSH
// client. Handles of the connection fail from then on.
func (c *Connection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.mu.Lock()
	var err error
	if c.shared != nil {
		err = c.shared.Close()
		c.shared = nil
	}
	c.mu.Unlock()

	if c.ownsSSH && c.sshClient != nil {
		if sshErr := c.sshClient.Close(); err == nil {
			err = sshErr
		}
	}
	c.logger.Info("connection closed")
	return err
}
