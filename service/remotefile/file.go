// Package remotefile implements file handles for files on a remote host that
// is reached through a file transfer channel such as SFTP.
//
// A File caches nothing. Every query is a round trip on the shared channel of
// its connection, and streams get a channel of their own.
package remotefile

import (
	"os"
	"slices"
	"time"

	"go.uber.org/zap"

	"remotefs/service/pathconv"
)

// Handle is the least a file handle of any kind offers.
type Handle interface {
	Path() string
}

// connectionBound is the capability a rename target needs: it must live on a
// connection that can be compared with ours.
type connectionBound interface {
	Handle
	Connection() Connection
}

// Stat is a snapshot of the metadata of a remote file.
type Stat struct {
	IsDir   bool
	ModTime time.Time
	Size    int64
	Mode    os.FileMode
}

// File is a path on a remote connection. It is only usable while the
// connection is open.
type File struct {
	conn Connection
	path string
}

// New returns a handle for path on conn. The path uses the convention of the
// remote host, e.g. C:\dir\file on Windows.
func New(conn Connection, path string) *File {
	return &File{conn: conn, path: path}
}

func (f *File) Connection() Connection { return f.conn }

func (f *File) Path() string { return f.path }

func (f *File) Name() string { return pathconv.Base(f.path, f.conn.HostOS()) }

func (f *File) String() string { return f.path }

// Child returns the handle for name inside f.
func (f *File) Child(name string) *File {
	return New(f.conn, pathconv.Join(f.path, name, f.conn.HostOS()))
}

// Parent returns the parent directory of f, or nil if f is a root.
func (f *File) Parent() *File {
	parent, ok := pathconv.Parent(f.path, f.conn.HostOS())
	if !ok {
		return nil
	}
	return New(f.conn, parent)
}

func (f *File) remotePath() string {
	p := pathconv.Translate(f.path, f.conn.HostOS())
	if p != f.path {
		f.log().Debug("translated path", zap.String("from", f.path), zap.String("to", p))
	}
	return p
}

func (f *File) log() *zap.Logger {
	return f.conn.Logger()
}

func (f *File) shared(op string, fn func(ch Channel, p string) error) error {
	p := f.remotePath()
	return normalize(op, f.path, f.conn.WithSharedChannel(func(ch Channel) error {
		return fn(ch, p)
	}))
}

// Stat fetches the metadata of f.
func (f *File) Stat() (Stat, error) {
	f.log().Info("statting file", zap.String("path", f.path))

	var st Stat
	err := f.shared("stat file", func(ch Channel, p string) error {
		info, err := ch.Stat(p)
		if err != nil {
			return err
		}
		st = Stat{IsDir: info.IsDir(), ModTime: info.ModTime(), Size: info.Size(), Mode: info.Mode()}
		return nil
	})
	return st, err
}

// Exists reports whether f exists. A stat failure reported by the remote
// side means false; a broken connection is still an error.
func (f *File) Exists() (bool, error) {
	f.log().Info("checking file for existence", zap.String("path", f.path))

	var exists bool
	err := f.shared("check existence of", func(ch Channel, p string) error {
		var err error
		exists, err = existsOn(ch, p)
		return err
	})
	return exists, err
}

func existsOn(ch Channel, p string) (bool, error) {
	_, err := ch.Stat(p)
	if err == nil {
		return true, nil
	}
	if kindOf(err) == KindRemote {
		return false, nil
	}
	return false, err
}

func (f *File) IsDirectory() (bool, error) {
	st, err := f.Stat()
	return st.IsDir, err
}

func (f *File) LastModified() (time.Time, error) {
	st, err := f.Stat()
	return st.ModTime, err
}

func (f *File) Length() (int64, error) {
	st, err := f.Stat()
	return st.Size, err
}

func (f *File) CanRead() (bool, error) { return f.hasPerm(0400) }

func (f *File) CanWrite() (bool, error) { return f.hasPerm(0200) }

func (f *File) CanExecute() (bool, error) { return f.hasPerm(0100) }

func (f *File) hasPerm(bit os.FileMode) (bool, error) {
	st, err := f.Stat()
	if err != nil {
		return false, err
	}
	return st.Mode.Perm()&bit != 0, nil
}

// ListFiles returns handles for the entries of directory f in the order the
// server sent them, without "." and "..".
func (f *File) ListFiles() ([]*File, error) {
	f.log().Info("listing files", zap.String("path", f.path))

	var infos []os.FileInfo
	err := f.shared("list directory", func(ch Channel, p string) error {
		var err error
		infos, err = ch.ReadDir(p)
		return err
	})
	if err != nil {
		return nil, err
	}

	files := make([]*File, 0, len(infos))
	for _, info := range infos {
		if name := info.Name(); name != "." && name != ".." {
			files = append(files, f.Child(name))
		}
	}
	return files, nil
}

// Mkdir creates directory f. The parent must exist.
func (f *File) Mkdir() error {
	f.log().Info("creating directory", zap.String("path", f.path))

	return f.shared("create directory", func(ch Channel, p string) error {
		return ch.Mkdir(p)
	})
}

// Mkdirs creates f and every missing parent, outermost first. The shared
// channel is held for the whole sequence.
func (f *File) Mkdirs() error {
	f.log().Info("creating directories", zap.String("path", f.path))

	return normalize("create directories", f.path, f.conn.WithSharedChannel(func(ch Channel) error {
		var missing []*File
		for dir := f; dir != nil; dir = dir.Parent() {
			exists, err := existsOn(ch, dir.remotePath())
			if err != nil {
				return normalize("check existence of", dir.path, err)
			}
			if exists {
				break
			}
			missing = append(missing, dir)
		}
		slices.Reverse(missing)

		for _, dir := range missing {
			p := dir.remotePath()
			err := ch.Mkdir(p)
			if err == nil {
				continue
			}
			// Someone else may have created it in the meantime.
			if exists, existsErr := existsOn(ch, p); existsErr == nil && exists {
				continue
			}
			return normalize("create directory", dir.path, err)
		}
		return nil
	}))
}

// RenameTo moves f to dest. Both handles must belong to the same connection;
// otherwise the rename is rejected without contacting the server.
func (f *File) RenameTo(dest Handle) error {
	if dest == nil {
		return &Error{Kind: KindRenameRejected, Op: "move/rename", Path: f.path, Err: errNoDestination}
	}
	f.log().Info("renaming file", zap.String("path", f.path), zap.String("dest", dest.Path()))

	target, ok := dest.(connectionBound)
	if !ok {
		return &Error{Kind: KindRenameRejected, Op: "move/rename", Path: f.path, Dest: dest.Path(),
			Err: errNotRemote}
	}
	if target.Connection().ID() != f.conn.ID() {
		return &Error{Kind: KindRenameRejected, Op: "move/rename", Path: f.path, Dest: dest.Path(),
			Err: errOtherConnection}
	}

	oldPath := f.remotePath()
	newPath := pathconv.Translate(target.Path(), f.conn.HostOS())
	err := f.conn.WithSharedChannel(func(ch Channel) error {
		return ch.Rename(oldPath, newPath)
	})
	if err != nil {
		e := normalize("move/rename", f.path, err).(*Error)
		e.Dest = dest.Path()
		return e
	}
	return nil
}

// DeleteFile removes f, which must not be a directory.
func (f *File) DeleteFile() error {
	f.log().Info("removing file", zap.String("path", f.path))

	return f.shared("delete file", func(ch Channel, p string) error {
		return ch.Remove(p)
	})
}

// DeleteDirectory removes the empty directory f.
func (f *File) DeleteDirectory() error {
	f.log().Info("removing directory", zap.String("path", f.path))

	return f.shared("delete directory", func(ch Channel, p string) error {
		return ch.RemoveDirectory(p)
	})
}

// Delete removes f with the primitive matching its type.
func (f *File) Delete() error {
	dir, err := f.IsDirectory()
	if err != nil {
		return err
	}
	if dir {
		return f.DeleteDirectory()
	}
	return f.DeleteFile()
}
