// Package fs defines the local filesystem abstraction used by the release tooling.
// Artifact validation, release-note updates and uploads all read the local tree
// through Filesystem so they can run against an in-memory filesystem in tests.
package fs

import "os"

// Filesystem is the set of local filesystem operations the tooling relies on.
// Missing paths yield errors satisfying errors.Is(err, fs.ErrNotExist).
type Filesystem interface {
	Exists(path string) (bool, error)
	MkdirAll(path string, perm os.FileMode) error
	Open(name string) (File, error)
	ReadDir(dirname string) ([]os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	Stat(name string) (os.FileInfo, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
}
