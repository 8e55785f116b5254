package remote

import (
	"context"
	"os"
	"path"

	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/fs"
)

// Mirror replaces remoteDir with the contents of localDir.
//
// The remote directory is deleted depth-first when present, created afresh
// and then filled with the local tree. A missing remote directory is not an
// error. Any other failure aborts the operation and leaves the remote side
// in a state that a new Mirror call repairs. The remote root is refused.
func Mirror(ctx context.Context, s Session, localFS fs.Filesystem, localDir, remoteDir string, opts ...Option) error {
	o := applyOptions(opts)

	remoteDir = path.Clean(remoteDir)
	if remoteDir == "." || remoteDir == "/" {
		return hverrors.Newf(hverrors.CodeInvalidInput, "refusing to mirror into the remote root %q", remoteDir)
	}

	ok, err := fs.IsDir(localFS, localDir)
	if err != nil {
		return localError(err, "failed to check local directory", localDir)
	}
	if !ok {
		return hverrors.Newf(hverrors.CodeNotFound, "%s does not exist or is not a directory", localDir)
	}

	info, err := s.Stat(ctx, remoteDir)
	switch {
	case err == nil:
		o.info("removing remote directory", "remote", remoteDir)
		if err := removeEntry(ctx, s, remoteDir, info, o); err != nil {
			return err
		}
	case IsNotExist(err):
		o.debug("remote directory absent", "remote", remoteDir)
	default:
		return transferError(err, "failed to stat remote directory", remoteDir)
	}

	if err := s.Mkdir(ctx, remoteDir); err != nil {
		return transferError(err, "failed to create remote directory", remoteDir)
	}

	o.info("mirroring directory", "local", localDir, "remote", remoteDir)
	if err := uploadTree(ctx, s, localFS, localDir, remoteDir, o); err != nil {
		return err
	}
	o.progress.BatchFinished()

	return nil
}

// removeEntry deletes p, recursing into directories before removing them.
func removeEntry(ctx context.Context, s Session, p string, info os.FileInfo, o *options) error {
	if !info.IsDir() {
		o.debug("removing remote file", "remote", p)
		if err := s.Remove(ctx, p); err != nil {
			return transferError(err, "failed to remove remote file", p)
		}
		return nil
	}

	entries, err := s.ReadDir(ctx, p)
	if err != nil {
		return transferError(err, "failed to list remote directory", p)
	}
	for _, e := range entries {
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}
		if err := removeEntry(ctx, s, path.Join(p, name), e, o); err != nil {
			return err
		}
	}

	o.debug("removing remote directory", "remote", p)
	if err := s.RemoveDirectory(ctx, p); err != nil {
		return transferError(err, "failed to remove remote directory", p)
	}

	return nil
}
