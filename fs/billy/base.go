package billy

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// hostFS is the host filesystem addressed by absolute paths. Chroot yields a
// filesystem rooted at the given directory, which is how go-git scopes the
// worktree and the .git directory.
type hostFS struct {
	osfs.ChrootOS
}

//nolint:ireturn // signature fixed by billy.Chroot
func (h *hostFS) Chroot(path string) (billy.Filesystem, error) {
	return osfs.New(path), nil
}

func (h *hostFS) Root() string {
	return "/"
}

// NewHost creates a filesystem over the host's own paths. Relative paths are
// resolved against the working directory.
func NewHost() *FS {
	return New(&hostFS{})
}
