package fs

import (
	"fmt"
	"path/filepath"
)

// GetAbs returns the absolute, cleaned form of path.
func GetAbs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return abs, nil
}

// IsDir reports whether path exists in fsys and is a directory.
// A missing path is not an error.
func IsDir(fsys Filesystem, path string) (bool, error) {
	ok, err := fsys.Exists(path)
	if err != nil || !ok {
		return false, err
	}
	info, err := fsys.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
