// Package billy implements the local Filesystem on top of go-billy: the host
// filesystem for real runs and memfs for tests. The same go-billy value backs
// the git worktree, so release notes written here are what gets committed.
package billy

import (
	"errors"
	iofs "io/fs"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	hvfs "github.com/hibernate/hvrelease/fs"
)

// FS is a Filesystem backed by a go-billy filesystem.
type FS struct {
	raw billy.Filesystem
}

var _ hvfs.Filesystem = (*FS)(nil)

// New wraps raw.
func New(raw billy.Filesystem) *FS {
	return &FS{raw: raw}
}

// NewMemory creates an empty in-memory filesystem.
func NewMemory() *FS {
	return New(memfs.New())
}

// Raw returns the go-billy filesystem, for go-git.
//
//nolint:ireturn // go-git consumes billy.Filesystem
func (b *FS) Raw() billy.Filesystem {
	return b.raw
}

// pathError attaches op and path to err unless the backend already did.
func pathError(op, path string, err error) error {
	var pe *iofs.PathError
	if errors.As(err, &pe) {
		return err
	}
	return &iofs.PathError{Op: op, Path: path, Err: err}
}

// Exists reports whether path exists. A missing path is not an error.
func (b *FS) Exists(path string) (bool, error) {
	_, err := b.raw.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	return false, pathError("stat", path, err)
}

// MkdirAll creates path and any missing parents.
func (b *FS) MkdirAll(path string, perm os.FileMode) error {
	if err := b.raw.MkdirAll(path, perm); err != nil {
		return pathError("mkdir", path, err)
	}
	return nil
}

// Open opens name for reading.
//
//nolint:ireturn // callers program against fs.File
func (b *FS) Open(name string) (hvfs.File, error) {
	f, err := b.raw.Open(name)
	if err != nil {
		return nil, pathError("open", name, err)
	}
	return &File{file: f, fs: b}, nil
}

// ReadDir lists the entries of dirname.
func (b *FS) ReadDir(dirname string) ([]os.FileInfo, error) {
	entries, err := b.raw.ReadDir(dirname)
	if err != nil {
		return nil, pathError("readdir", dirname, err)
	}
	return entries, nil
}

// ReadFile returns the contents of path.
func (b *FS) ReadFile(path string) ([]byte, error) {
	data, err := util.ReadFile(b.raw, path)
	if err != nil {
		return nil, pathError("read", path, err)
	}
	return data, nil
}

// Stat describes name.
func (b *FS) Stat(name string) (os.FileInfo, error) {
	info, err := b.raw.Stat(name)
	if err != nil {
		return nil, pathError("stat", name, err)
	}
	return info, nil
}

// WriteFile replaces the contents of filename, creating it with perm if needed.
func (b *FS) WriteFile(filename string, data []byte, perm os.FileMode) error {
	if err := util.WriteFile(b.raw, filename, data, perm); err != nil {
		return pathError("write", filename, err)
	}
	return nil
}
