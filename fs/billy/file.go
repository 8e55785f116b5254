package billy

import (
	"io/fs"

	"github.com/go-git/go-billy/v5"
)

// File is a go-billy file opened for reading.
type File struct {
	file billy.File
	fs   *FS
}

// Name returns the path the file was opened with.
func (f *File) Name() string {
	return f.file.Name()
}

// Read reads from the file. io.EOF is returned unwrapped.
func (f *File) Read(p []byte) (int, error) {
	return f.file.Read(p)
}

// Stat describes the file. go-billy files carry no Stat, so the path is
// looked up again.
func (f *File) Stat() (fs.FileInfo, error) {
	return f.fs.Stat(f.file.Name())
}

// Close closes the file.
func (f *File) Close() error {
	if err := f.file.Close(); err != nil {
		return pathError("close", f.file.Name(), err)
	}
	return nil
}
