package fs

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"remotefs/service/copier"
	"remotefs/service/pathconv"
	"remotefs/service/remotefile"
)

// Files hands out file handles on one remote connection.
type Files interface {
	File(path string) *remotefile.File
	HostOS() pathconv.Family
}

// RemoteFileSystem implements FileSystem on top of remote file handles.
// Every call goes to the remote host; nothing is cached.
type RemoteFileSystem struct {
	files Files
	root  string
	*zap.Logger
}

func NewRemoteFileSystem(files Files, root string, logger *zap.Logger) *RemoteFileSystem {
	return &RemoteFileSystem{files: files, root: root, Logger: logger}
}

// RootFor returns the directory browsing starts from on a host of family.
func RootFor(family pathconv.Family) string {
	if family == pathconv.Windows {
		return `C:\`
	}
	return "/"
}

func entryOf(f *remotefile.File, st remotefile.Stat) *FileSystemEntry {
	return &FileSystemEntry{
		Name:    f.Name(),
		Path:    f.Path(),
		IsDir:   st.IsDir,
		Size:    st.Size,
		Mode:    st.Mode,
		ModTime: st.ModTime.UnixMilli(),
	}
}

func (r *RemoteFileSystem) GetRoot() ([]*FileSystemEntry, error) {
	root := r.files.File(r.root)
	st, err := root.Stat()
	if err != nil {
		r.Warn("error getting root directory info", zap.String("path", r.root), zap.Error(err))
		return nil, err
	}

	entry := entryOf(root, st)
	entry.Name = r.root
	return []*FileSystemEntry{entry}, nil
}

func (r *RemoteFileSystem) List(dirPath string, showHidden bool) ([]*FileSystemEntry, error) {
	children, err := r.files.File(dirPath).ListFiles()
	if err != nil {
		return nil, err
	}

	entries := make([]*FileSystemEntry, 0, len(children))
	for _, child := range children {
		if !showHidden && strings.HasPrefix(child.Name(), ".") {
			continue
		}
		st, err := child.Stat()
		if remotefile.IsRemote(err) {
			// removed or unreadable since the listing
			r.Debug("skipping entry", zap.String("path", child.Path()), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entryOf(child, st))
	}

	return entries, nil
}

func (r *RemoteFileSystem) validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.Contains(name, "/") || strings.Contains(name, r.files.HostOS().Separator()) {
		return fmt.Errorf("invalid file name: %q", name)
	}
	return nil
}

func (r *RemoteFileSystem) mustNotExist(f *remotefile.File) error {
	exists, err := f.Exists()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("target already exists: %s", f.Path())
	}
	return nil
}

func (r *RemoteFileSystem) Create(parentPath string, name string, isDir bool) error {
	if err := r.validName(name); err != nil {
		return err
	}
	f := r.files.File(parentPath).Child(name)
	if err := r.mustNotExist(f); err != nil {
		return err
	}

	if isDir {
		return f.Mkdir()
	}
	w, err := f.OpenWriter(0)
	if err != nil {
		return err
	}
	return w.Close()
}

func (r *RemoteFileSystem) MakeDirs(path string) error {
	return r.files.File(path).Mkdirs()
}

// Delete removes path and, for a directory, everything below it.
func (r *RemoteFileSystem) Delete(path string) error {
	return removeAll(r.files.File(path))
}

func removeAll(f *remotefile.File) error {
	isDir, err := f.IsDirectory()
	if err != nil {
		return err
	}
	if !isDir {
		return f.DeleteFile()
	}

	children, err := f.ListFiles()
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := removeAll(child); err != nil {
			return err
		}
	}
	return f.DeleteDirectory()
}

const maxCopySuffix = 100

// target picks where src lands inside dest. A taken name gets a " copy"
// suffix, then " copy 2", " copy 3" and so on; nothing is overwritten.
func (r *RemoteFileSystem) target(src *remotefile.File, dest string) (*remotefile.File, error) {
	destDir := r.files.File(dest)
	name := src.Name()
	for i := 0; i < maxCopySuffix; i++ {
		candidate := name
		switch {
		case i == 1:
			candidate += " copy"
		case i > 1:
			candidate += fmt.Sprintf(" copy %d", i)
		}

		to := destDir.Child(candidate)
		if copier.IntoItself(src, to) {
			if copier.IntoItself(to, src) {
				// src itself, which is taken
				continue
			}
			return nil, fmt.Errorf("%w: %s to %s", copier.ErrIntoItself, src.Path(), to.Path())
		}
		exists, err := to.Exists()
		if err != nil {
			return nil, err
		}
		if !exists {
			return to, nil
		}
	}
	return nil, fmt.Errorf("no free name for %s in %s", name, dest)
}

func (r *RemoteFileSystem) Copy(src string, dest string) error {
	from := r.files.File(src)
	if _, err := from.Stat(); err != nil {
		return err
	}
	to, err := r.target(from, dest)
	if err != nil {
		return err
	}

	if err := copier.Copy(from, to); err != nil {
		return err
	}
	r.Info("copied", zap.String("path", src), zap.String("dest", to.Path()))
	return nil
}

func (r *RemoteFileSystem) Move(src string, dest string) error {
	from := r.files.File(src)
	if _, err := from.Stat(); err != nil {
		return err
	}
	to, err := r.target(from, dest)
	if err != nil {
		return err
	}
	return from.RenameTo(to)
}

func (r *RemoteFileSystem) Rename(oldPath string, newName string) error {
	if err := r.validName(newName); err != nil {
		return err
	}
	from := r.files.File(oldPath)
	parent := from.Parent()
	if parent == nil {
		return fmt.Errorf("cannot rename root %s", oldPath)
	}

	to := parent.Child(newName)
	if err := r.mustNotExist(to); err != nil {
		return err
	}
	return from.RenameTo(to)
}

func (r *RemoteFileSystem) Open(path string) (io.ReadCloser, error) {
	return r.files.File(path).OpenReader()
}
