package atomicfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File is written next to its destination and renamed over it on Close,
// so readers observe either the old content or the complete new one.
type File struct {
	tmp  *os.File
	dst  string
	sync bool
}

type Option func(f *File) error

// WithSync flushes the temporary file to disk before it replaces the destination.
func WithSync() Option {
	return func(f *File) error {
		f.sync = true
		return nil
	}
}

func WithMode(mode os.FileMode) Option {
	return func(f *File) error {
		return f.tmp.Chmod(mode)
	}
}

const tmpSuffix = ".tmp-"

func Create(path string, opts ...Option) (*File, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dir, base := filepath.Split(path)

	tmp, err := os.CreateTemp(dir, base+tmpSuffix)
	if err != nil {
		return nil, err
	}

	file := &File{tmp: tmp, dst: path}
	for _, opt := range opts {
		if err := opt(file); err != nil {
			_ = file.Discard()
			return nil, err
		}
	}
	return file, nil
}

func (f *File) Write(p []byte) (int, error) {
	return f.tmp.Write(p)
}

// Discard removes the temporary file. It is a no-op after Close.
func (f *File) Discard() error {
	if f.tmp == nil {
		return nil
	}
	tmp := f.tmp
	f.tmp = nil
	err := tmp.Close()
	if rmErr := os.Remove(tmp.Name()); err == nil {
		err = rmErr
	}
	return err
}

func (f *File) Close() error {
	if f.tmp == nil {
		return os.ErrClosed
	}
	tmp := f.tmp
	f.tmp = nil

	if f.sync {
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), f.dst); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// WriteWith streams content produced by write into path atomically.
func WriteWith(path string, write func(w io.Writer) error, opts ...Option) error {
	f, err := Create(path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Discard()
	}()

	if err := write(f); err != nil {
		return err
	}
	return f.Close()
}

var _ io.WriteCloser = (*File)(nil)
