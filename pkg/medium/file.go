package medium

import (
	"fmt"
	"os"
	"path/filepath"

	. "github.com/weberc2/diskfs/pkg/types"
)

// File is a medium backed by a regular file on the host.
type File struct {
	f *os.File
}

var _ Medium = (*File)(nil)

// CreateFile creates (or truncates) the image at `path` and sizes it to
// `size` bytes.
func CreateFile(path string, size Byte) (*File, error) {
	if size <= 0 {
		return nil, fmt.Errorf("creating image `%s`: size must be > 0, got `%d`", path, size)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for image `%s`: %w", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating image `%s`: %w", path, err)
	}

	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf(
			"truncating image `%s` to `%d` bytes: %w",
			path,
			size,
			err,
		)
	}
	return &File{f}, nil
}

// OpenFile opens an existing image for reading and writing.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening image `%s`: %w", path, err)
	}
	return &File{f}, nil
}

func (file *File) ReadAll(offset Byte, p []byte) error {
	n, err := file.f.ReadAt(p, int64(offset))
	if n < len(p) {
		if err == nil {
			return shortIO(OpRead, offset, len(p), n)
		}
		return &IOError{
			Op:     OpRead,
			Offset: offset,
			Len:    len(p),
			Err:    fmt.Errorf("%w: %w", ShortIOErr, err),
		}
	}
	return nil
}

func (file *File) WriteAll(offset Byte, p []byte) error {
	n, err := file.f.WriteAt(p, int64(offset))
	if err != nil {
		return &IOError{Op: OpWrite, Offset: offset, Len: len(p), Err: err}
	}
	if n < len(p) {
		return shortIO(OpWrite, offset, len(p), n)
	}
	return nil
}

func (file *File) Size() (Byte, error) {
	info, err := file.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat image `%s`: %w", file.f.Name(), err)
	}
	return Byte(info.Size()), nil
}

func (file *File) Name() string { return file.f.Name() }

func (file *File) Sync() error {
	if err := file.f.Sync(); err != nil {
		return fmt.Errorf("syncing image `%s`: %w", file.f.Name(), err)
	}
	return nil
}

func (file *File) Close() error {
	if err := file.f.Close(); err != nil {
		return fmt.Errorf("closing image `%s`: %w", file.f.Name(), err)
	}
	return nil
}
