package remotefile

import (
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"
)

// OpenReader opens f for reading on a dedicated channel. Closing the reader
// closes the channel.
func (f *File) OpenReader() (io.ReadCloser, error) {
	f.log().Info("opening input stream", zap.String("path", f.path))

	ch, err := f.conn.OpenDedicatedChannel(false)
	if err != nil {
		return nil, normalize("read from", f.path, err)
	}
	rc, err := ch.OpenRead(f.remotePath())
	if err != nil {
		ch.Close()
		return nil, normalize("read from", f.path, err)
	}
	return &reader{stream: stream{file: f, ch: ch, c: rc}, r: rc}, nil
}

// OpenWriter opens f for writing on a dedicated channel, truncating it.
// expectedLength is a hint and may be ignored.
func (f *File) OpenWriter(expectedLength int64) (io.WriteCloser, error) {
	f.log().Info("opening output stream", zap.String("path", f.path), zap.Int64("length", expectedLength))

	ch, err := f.conn.OpenDedicatedChannel(true)
	if err != nil {
		return nil, normalize("write to", f.path, err)
	}
	wc, err := ch.OpenWrite(f.remotePath())
	if err != nil {
		ch.Close()
		return nil, normalize("write to", f.path, err)
	}
	return &writer{stream: stream{file: f, ch: ch, c: wc}, w: wc}, nil
}

// stream owns the remote file and the dedicated channel it was opened on.
type stream struct {
	file *File
	ch   Channel
	c    io.Closer

	mu     sync.Mutex
	closed bool
}

func (s *stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *stream) close(op string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.c.Close()
	if chErr := s.ch.Close(); err == nil {
		err = chErr
	}
	return normalize(op, s.file.path, err)
}

type reader struct {
	stream
	r io.Reader
}

func (r *reader) Read(p []byte) (int, error) {
	if r.isClosed() {
		return 0, &Error{Kind: KindRemote, Op: "read from", Path: r.file.path, Err: errStreamClosed}
	}
	n, err := r.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, normalize("read from", r.file.path, err)
	}
	return n, err
}

func (r *reader) Close() error {
	return r.close("close input stream of")
}

type writer struct {
	stream
	w io.Writer
}

func (w *writer) Write(p []byte) (int, error) {
	if w.isClosed() {
		return 0, &Error{Kind: KindRemote, Op: "write to", Path: w.file.path, Err: errStreamClosed}
	}
	n, err := w.w.Write(p)
	return n, normalize("write to", w.file.path, err)
}

func (w *writer) Close() error {
	return w.close("close output stream of")
}
