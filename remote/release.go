package remote

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/fs"
)

// UploadRelease creates the release directory {remoteBase}/{version} and
// uploads every file into it under its base name. It returns the release
// directory.
//
// An existing release directory is never modified: the call fails with an
// ALREADY_EXISTS error before any upload takes place.
func UploadRelease(
	ctx context.Context,
	s Session,
	localFS fs.Filesystem,
	files []string,
	remoteBase, version string,
	opts ...Option,
) (string, error) {
	o := applyOptions(opts)

	if version == "" || strings.ContainsAny(version, "/\\") || version == "." || version == ".." {
		return "", hverrors.Newf(hverrors.CodeInvalidInput, "invalid release version %q", version)
	}
	if len(files) == 0 {
		return "", hverrors.New(hverrors.CodeInvalidInput, "no files to upload")
	}

	seen := make(map[string]string, len(files))
	for _, f := range files {
		info, err := localFS.Stat(f)
		if err != nil {
			return "", localError(err, "release file not found", f)
		}
		if info.IsDir() {
			return "", hverrors.Newf(hverrors.CodeInvalidInput, "%s is a directory", f)
		}
		name := filepath.Base(f)
		if prev, dup := seen[name]; dup {
			return "", hverrors.Newf(hverrors.CodeInvalidInput, "%s and %s share the remote name %s", prev, f, name)
		}
		seen[name] = f
	}

	releaseDir := path.Join(remoteBase, version)
	_, err := s.Stat(ctx, releaseDir)
	switch {
	case err == nil:
		return "", hverrors.Newf(hverrors.CodeAlreadyExists, "remote release directory %s already exists", releaseDir)
	case IsNotExist(err):
	default:
		return "", transferError(err, "failed to stat remote release directory", releaseDir)
	}

	if err := s.Mkdir(ctx, releaseDir); err != nil {
		return "", transferError(err, "failed to create remote release directory", releaseDir)
	}

	o.info("uploading release", "remote", releaseDir, "files", len(files))
	for _, f := range files {
		if err := uploadFile(ctx, s, localFS, f, path.Join(releaseDir, filepath.Base(f)), o); err != nil {
			return "", err
		}
	}
	o.progress.BatchFinished()

	return releaseDir, nil
}
