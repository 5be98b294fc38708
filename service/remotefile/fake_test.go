package remotefile

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"remotefs/service/pathconv"
)

// mockFileInfo implements os.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

func (m mockFileInfo) Name() string       { return m.name }
func (m mockFileInfo) Size() int64        { return m.size }
func (m mockFileInfo) Mode() os.FileMode  { return m.mode }
func (m mockFileInfo) ModTime() time.Time { return m.modTime }
func (m mockFileInfo) IsDir() bool        { return m.isDir }
func (m mockFileInfo) Sys() interface{}   { return nil }

type fakeEntry struct {
	dir     bool
	mode    os.FileMode
	modTime time.Time
	data    []byte
}

// fakeFS is an in-memory remote tree that records every primitive it serves.
type fakeFS struct {
	mu      sync.Mutex
	entries map[string]*fakeEntry
	order   []string
	calls   []string

	// broken makes every primitive fail as if the session died.
	broken bool
	// beforeMkdir runs before a mkdir is served.
	beforeMkdir func(p string)

	inflight atomic.Int32
	overlap  atomic.Bool
}

func newFakeFS() *fakeFS {
	fs := &fakeFS{entries: make(map[string]*fakeEntry)}
	fs.put("/", &fakeEntry{dir: true, mode: os.ModeDir | 0755})
	return fs
}

func (fs *fakeFS) put(p string, e *fakeEntry) {
	if _, ok := fs.entries[p]; !ok {
		fs.order = append(fs.order, p)
	}
	if e.modTime.IsZero() {
		e.modTime = time.Unix(1700000000, 0)
	}
	fs.entries[p] = e
}

func (fs *fakeFS) addDir(p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.put(p, &fakeEntry{dir: true, mode: os.ModeDir | 0755})
}

func (fs *fakeFS) addFile(p string, mode os.FileMode, data string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.put(p, &fakeEntry{mode: mode, data: []byte(data)})
}

func (fs *fakeFS) has(p string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.entries[p]
	return ok
}

func (fs *fakeFS) recorded(prefix string) []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []string
	for _, c := range fs.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (fs *fakeFS) remove(p string) {
	delete(fs.entries, p)
	for i, o := range fs.order {
		if o == p {
			fs.order = append(fs.order[:i], fs.order[i+1:]...)
			break
		}
	}
}

var errSessionDown = errors.New("session down")

// enter marks the start of a request and records it.
func (fs *fakeFS) enter(call string) (func(), error) {
	if fs.inflight.Add(1) > 1 {
		fs.overlap.Store(true)
	}
	time.Sleep(100 * time.Microsecond)

	fs.mu.Lock()
	fs.calls = append(fs.calls, call)
	broken := fs.broken
	fs.mu.Unlock()

	done := func() { fs.inflight.Add(-1) }
	if broken {
		done()
		return nil, TransportError(errSessionDown)
	}
	return done, nil
}

type fakeChannel struct {
	fs     *fakeFS
	closed atomic.Bool
}

func (c *fakeChannel) Stat(p string) (os.FileInfo, error) {
	done, err := c.fs.enter("stat " + p)
	if err != nil {
		return nil, err
	}
	defer done()

	c.fs.mu.Lock()
	defer c.fs.mu.Unlock()
	e, ok := c.fs.entries[p]
	if !ok {
		return nil, ProtocolError(os.ErrNotExist)
	}
	return mockFileInfo{name: path.Base(p), size: int64(len(e.data)), mode: e.mode, modTime: e.modTime, isDir: e.dir}, nil
}

func (c *fakeChannel) ReadDir(p string) ([]os.FileInfo, error) {
	done, err := c.fs.enter("readdir " + p)
	if err != nil {
		return nil, err
	}
	defer done()

	c.fs.mu.Lock()
	defer c.fs.mu.Unlock()
	if e, ok := c.fs.entries[p]; !ok || !e.dir {
		return nil, ProtocolError(os.ErrNotExist)
	}
	infos := []os.FileInfo{
		mockFileInfo{name: ".", isDir: true},
		mockFileInfo{name: "..", isDir: true},
	}
	for _, o := range c.fs.order {
		if o != p && path.Dir(o) == p {
			e := c.fs.entries[o]
			infos = append(infos, mockFileInfo{name: path.Base(o), size: int64(len(e.data)), mode: e.mode, isDir: e.dir})
		}
	}
	return infos, nil
}

func (c *fakeChannel) Mkdir(p string) error {
	done, err := c.fs.enter("mkdir " + p)
	if err != nil {
		return err
	}
	defer done()

	if c.fs.beforeMkdir != nil {
		c.fs.beforeMkdir(p)
	}

	c.fs.mu.Lock()
	defer c.fs.mu.Unlock()
	if _, ok := c.fs.entries[p]; ok {
		return ProtocolError(os.ErrExist)
	}
	if _, ok := c.fs.entries[path.Dir(p)]; !ok {
		return ProtocolError(os.ErrNotExist)
	}
	c.fs.put(p, &fakeEntry{dir: true, mode: os.ModeDir | 0755})
	return nil
}

func (c *fakeChannel) Remove(p string) error {
	done, err := c.fs.enter("remove " + p)
	if err != nil {
		return err
	}
	defer done()

	c.fs.mu.Lock()
	defer c.fs.mu.Unlock()
	if e, ok := c.fs.entries[p]; !ok || e.dir {
		return ProtocolError(os.ErrNotExist)
	}
	c.fs.remove(p)
	return nil
}

func (c *fakeChannel) RemoveDirectory(p string) error {
	done, err := c.fs.enter("rmdir " + p)
	if err != nil {
		return err
	}
	defer done()

	c.fs.mu.Lock()
	defer c.fs.mu.Unlock()
	if e, ok := c.fs.entries[p]; !ok || !e.dir {
		return ProtocolError(os.ErrNotExist)
	}
	c.fs.remove(p)
	return nil
}

func (c *fakeChannel) Rename(oldPath, newPath string) error {
	done, err := c.fs.enter("rename " + oldPath + " " + newPath)
	if err != nil {
		return err
	}
	defer done()

	c.fs.mu.Lock()
	defer c.fs.mu.Unlock()
	e, ok := c.fs.entries[oldPath]
	if !ok {
		return ProtocolError(os.ErrNotExist)
	}
	c.fs.remove(oldPath)
	c.fs.put(newPath, e)
	return nil
}

func (c *fakeChannel) OpenRead(p string) (io.ReadCloser, error) {
	done, err := c.fs.enter("open-read " + p)
	if err != nil {
		return nil, err
	}
	defer done()

	c.fs.mu.Lock()
	defer c.fs.mu.Unlock()
	e, ok := c.fs.entries[p]
	if !ok || e.dir {
		return nil, ProtocolError(os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), e.data...))), nil
}

func (c *fakeChannel) OpenWrite(p string) (io.WriteCloser, error) {
	done, err := c.fs.enter("open-write " + p)
	if err != nil {
		return nil, err
	}
	defer done()

	c.fs.mu.Lock()
	defer c.fs.mu.Unlock()
	if _, ok := c.fs.entries[path.Dir(p)]; !ok {
		return nil, ProtocolError(os.ErrNotExist)
	}
	c.fs.put(p, &fakeEntry{mode: 0644})
	return &fakeSink{fs: c.fs, path: p}, nil
}

func (c *fakeChannel) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeSink struct {
	bytes.Buffer
	fs   *fakeFS
	path string
}

func (s *fakeSink) Close() error {
	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()
	s.fs.entries[s.path].data = s.Bytes()
	return nil
}

type fakeConn struct {
	id     string
	family pathconv.Family
	fs     *fakeFS

	mu     sync.Mutex
	shared *fakeChannel
	closed bool

	dedicated []*fakeChannel
	dmu       sync.Mutex
}

func newFakeConn(id string, fs *fakeFS) *fakeConn {
	return &fakeConn{id: id, family: pathconv.Unix, fs: fs, shared: &fakeChannel{fs: fs}}
}

func (c *fakeConn) ID() string              { return c.id }
func (c *fakeConn) HostOS() pathconv.Family { return c.family }
func (c *fakeConn) Logger() *zap.Logger     { return zap.NewNop() }
func (c *fakeConn) File(p string) *File     { return New(c, p) }

func (c *fakeConn) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) WithSharedChannel(fn func(Channel) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	return fn(c.shared)
}

func (c *fakeConn) OpenDedicatedChannel(forWrite bool) (Channel, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrConnectionClosed
	}

	ch := &fakeChannel{fs: c.fs}
	c.dmu.Lock()
	c.dedicated = append(c.dedicated, ch)
	c.dmu.Unlock()
	return ch, nil
}

// openDedicated returns the number of dedicated channels not yet closed.
func (c *fakeConn) openDedicated() int {
	c.dmu.Lock()
	defer c.dmu.Unlock()
	n := 0
	for _, ch := range c.dedicated {
		if !ch.closed.Load() {
			n++
		}
	}
	return n
}
