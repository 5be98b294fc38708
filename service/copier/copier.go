// Package copier copies remote files and directory trees through the
// streaming operations of remotefile, so source and destination may live on
// different connections.
package copier

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"remotefs/metrics"
	"remotefs/service/pathconv"
	"remotefs/service/remotefile"
)

// ErrIntoItself is returned when dst is src or lies below it on the same
// connection.
var ErrIntoItself = errors.New("cannot copy a file into itself")

// IntoItself reports whether dst is src or lies below src.
func IntoItself(src, dst *remotefile.File) bool {
	return src.Connection().ID() == dst.Connection().ID() &&
		pathconv.Within(dst.Path(), src.Path(), src.Connection().HostOS())
}

// Copy copies src to dst. Directories are copied recursively and dst is
// created with any missing parents; files overwrite dst.
func Copy(src, dst *remotefile.File) error {
	if IntoItself(src, dst) {
		return fmt.Errorf("%w: %s to %s", ErrIntoItself, src.Path(), dst.Path())
	}

	isDir, err := src.IsDirectory()
	if err != nil {
		return err
	}
	if !isDir {
		return copyFile(src, dst)
	}

	if err := dst.Mkdirs(); err != nil {
		return err
	}
	children, err := src.ListFiles()
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := Copy(child, dst.Child(child.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst *remotefile.File) error {
	size, err := src.Length()
	if err != nil {
		return err
	}

	in, err := src.OpenReader()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := dst.OpenWriter(size)
	if err != nil {
		return err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		// cleanup on error
		if rmErr := dst.DeleteFile(); rmErr != nil {
			dst.Connection().Logger().Warn("failed to remove partial copy", zap.String("path", dst.Path()), zap.Error(rmErr))
		}
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	metrics.RecordDownload(n)
	metrics.RecordUpload(n)
	return nil
}
