// Package fsbridge hands the tool's filesystem to go-git.
package fsbridge

import (
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/hibernate/hvrelease/fs"
)

// MinCacheSize is used when a non-positive cache size is requested.
const MinCacheSize = 100

type rawer interface {
	Raw() billy.Filesystem
}

// Billy returns the go-billy filesystem backing fsys. Only go-billy backed
// filesystems can host a repository.
//
//nolint:ireturn // go-git consumes billy.Filesystem
func Billy(fsys fs.Filesystem) (billy.Filesystem, error) {
	r, ok := fsys.(rawer)
	if !ok || r.Raw() == nil {
		return nil, fmt.Errorf("filesystem %T is not backed by go-billy", fsys)
	}
	return r.Raw(), nil
}

// NewStorage creates git object storage on dotGit with an LRU object cache
// of cacheSize entries.
func NewStorage(dotGit billy.Filesystem, cacheSize int) *filesystem.Storage {
	if cacheSize <= 0 {
		cacheSize = MinCacheSize
	}
	return filesystem.NewStorage(dotGit, cache.NewObjectLRU(cache.FileSize(cacheSize)))
}
