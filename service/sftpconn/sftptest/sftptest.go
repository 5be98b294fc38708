// Package sftptest runs in-process SFTP servers for tests. Each channel gets
// its own server, talking to the client over a pair of pipes and serving the
// local file system.
package sftptest

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/pkg/sftp"

	"remotefs/service/sftpconn"
)

// ErrServerDown is returned when opening a channel after Disconnect.
var ErrServerDown = errors.New("sftptest: server is down")

type Server struct {
	t testing.TB

	mu     sync.Mutex
	pipes  []io.Closer
	down   bool
	opened int
}

func NewServer(t testing.TB) *Server {
	s := &Server{t: t}
	t.Cleanup(s.Disconnect)
	return s
}

// Open implements sftpconn.Opener.
func (s *Server) Open(forWrite bool, opts ...sftp.ClientOption) (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, ErrServerDown
	}

	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()

	server, err := sftp.NewServer(struct {
		io.Reader
		io.WriteCloser
	}{serverR, serverW})
	if err != nil {
		return nil, err
	}
	go func() {
		// Serve does not close its side; the client waits for it.
		_ = server.Serve()
		serverW.Close()
	}()

	client, err := sftp.NewClientPipe(clientR, clientW, opts...)
	if err != nil {
		serverR.Close()
		return nil, err
	}
	s.pipes = append(s.pipes, clientR, serverW, serverR, clientW)
	s.opened++
	return client, nil
}

// Opened returns the number of channels opened so far.
func (s *Server) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Disconnect breaks every channel and refuses new ones, as if the SSH
// session had died.
func (s *Server) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = true
	for _, p := range s.pipes {
		p.Close()
	}
	s.pipes = nil
}

// Connection returns a connection whose channels are served by s. It is
// closed when the test ends.
func (s *Server) Connection(opts ...sftpconn.Option) *sftpconn.Connection {
	conn := sftpconn.NewWithOpener(s.Open, opts...)
	s.t.Cleanup(func() { conn.Close() })
	return conn
}

// NewConnection is a shortcut for NewServer(t).Connection(opts...).
func NewConnection(t testing.TB, opts ...sftpconn.Option) *sftpconn.Connection {
	return NewServer(t).Connection(opts...)
}
