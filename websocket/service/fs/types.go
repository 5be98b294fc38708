package fs

import (
	"io"
	"os"
)

type FileSystemEntry struct {
	Name    string      `json:"name"`
	Path    string      `json:"path"`
	IsDir   bool        `json:"isDir"`
	Size    int64       `json:"size"`
	Mode    os.FileMode `json:"mode"`
	ModTime int64       `json:"modTime"`
}

type FileSystem interface {
	GetRoot() ([]*FileSystemEntry, error)
	List(path string, showHidden bool) ([]*FileSystemEntry, error)
	Create(parentPath string, name string, isDir bool) error
	MakeDirs(path string) error
	Delete(path string) error
	Copy(src string, dest string) error
	Move(src string, dest string) error
	Rename(oldPath string, newName string) error
	Open(path string) (io.ReadCloser, error)
}
