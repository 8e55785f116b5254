package fs

import (
	"io"
	"io/fs"
)

// File is a local file opened for reading, typically an artifact being uploaded.
type File interface {
	io.ReadCloser
	Name() string
	Stat() (fs.FileInfo, error)
}
