// Package downloader streams remote files and directories to a client.
package downloader

import (
	"archive/zip"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/flate"

	"remotefs/service/remotefile"
)

// FileInfo represents metadata about a file
type FileInfo struct {
	Name    string
	Size    int64
	Mode    os.FileMode
	ModTime int64
	IsDir   bool
}

func toFileInfo(f *remotefile.File, st remotefile.Stat) *FileInfo {
	return &FileInfo{
		Name:    f.Name(),
		Size:    st.Size,
		Mode:    st.Mode,
		ModTime: st.ModTime.Unix(),
		IsDir:   st.IsDir,
	}
}

// Stat returns file information without downloading
func Stat(f *remotefile.File) (*FileInfo, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return toFileInfo(f, st), nil
}

// Download opens a stream on the content of a regular file.
func Download(f *remotefile.File) (io.ReadCloser, *FileInfo, error) {
	info, err := Stat(f)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir {
		return nil, nil, fmt.Errorf("path is a directory, use DownloadDir instead")
	}

	r, err := f.OpenReader()
	if err != nil {
		return nil, nil, err
	}
	return r, info, nil
}

// DownloadDir streams a directory as a zip archive. Entries are named
// relative to the directory. A failure part way through surfaces as a read
// error on the returned stream.
func DownloadDir(f *remotefile.File) (io.ReadCloser, *FileInfo, error) {
	info, err := Stat(f)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir {
		return nil, nil, fmt.Errorf("path is not a directory")
	}

	// Create pipes for streaming zip content
	pr, pw := io.Pipe()

	go func() {
		zw := zip.NewWriter(pw)
		zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, flate.BestSpeed)
		})
		err := addDir(zw, f, "")
		if err == nil {
			err = zw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, info, nil
}

func addDir(zw *zip.Writer, dir *remotefile.File, prefix string) error {
	children, err := dir.ListFiles()
	if err != nil {
		return err
	}

	for _, child := range children {
		st, err := child.Stat()
		if err != nil {
			return err
		}

		header := &zip.FileHeader{
			Name:     prefix + child.Name(),
			Modified: st.ModTime,
			Method:   zip.Deflate,
		}
		header.SetMode(st.Mode)
		if st.IsDir {
			header.Name += "/"
			header.Method = zip.Store
		}

		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create file in zip: %w", err)
		}

		if st.IsDir {
			if err := addDir(zw, child, header.Name); err != nil {
				return err
			}
			continue
		}
		if err := copyInto(w, child); err != nil {
			return err
		}
	}
	return nil
}

func copyInto(w io.Writer, f *remotefile.File) error {
	r, err := f.OpenReader()
	if err != nil {
		return err
	}
	defer r.Close()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	return nil
}
