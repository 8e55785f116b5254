package remote

import (
	"context"
	stderrors "errors"
	"io"
	iofs "io/fs"
	"path"
	"path/filepath"
	"sort"

	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/fs"
)

func transferError(err error, msg, remotePath string) error {
	return hverrors.WrapWithContext(err, hverrors.CodeTransferFailed, msg,
		map[string]interface{}{"remote": remotePath})
}

func localError(err error, msg, localPath string) error {
	code := hverrors.CodeInternal
	if stderrors.Is(err, iofs.ErrNotExist) {
		code = hverrors.CodeNotFound
	}
	return hverrors.WrapWithContext(err, code, msg, map[string]interface{}{"path": localPath})
}

// uploadFile copies one local file to remotePath in chunks, emitting
// progress events in order.
func uploadFile(ctx context.Context, s Session, localFS fs.Filesystem, localPath, remotePath string, o *options) error {
	src, err := localFS.Open(localPath)
	if err != nil {
		return localError(err, "failed to open local file", localPath)
	}
	defer src.Close() //nolint:errcheck // read-only handle

	info, err := src.Stat()
	if err != nil {
		return localError(err, "failed to stat local file", localPath)
	}

	dst, err := s.Create(ctx, remotePath)
	if err != nil {
		return transferError(err, "failed to create remote file", remotePath)
	}

	o.progress.FileStarted(localPath, remotePath, info.Size())

	buf := make([]byte, o.chunkSize)
	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			_ = dst.Close()
			return hverrors.Wrap(err, hverrors.CodeAborted, "upload interrupted")
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				_ = dst.Close()
				return transferError(werr, "failed to write remote file", remotePath)
			}
			o.progress.ChunkWritten(remotePath, offset, n)
			offset += int64(n)
		}
		if stderrors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			_ = dst.Close()
			return localError(rerr, "failed to read local file", localPath)
		}
	}

	if err := dst.Close(); err != nil {
		return transferError(err, "failed to finish remote file", remotePath)
	}
	o.progress.FileFinished(remotePath)

	return nil
}

// uploadTree uploads the contents of localDir into the existing remoteDir,
// creating remote subdirectories as it goes. Entries are visited in name order.
func uploadTree(ctx context.Context, s Session, localFS fs.Filesystem, localDir, remoteDir string, o *options) error {
	entries, err := localFS.ReadDir(localDir)
	if err != nil {
		return localError(err, "failed to list local directory", localDir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		localPath := filepath.Join(localDir, e.Name())
		remotePath := path.Join(remoteDir, e.Name())

		if e.IsDir() {
			if err := s.Mkdir(ctx, remotePath); err != nil {
				return transferError(err, "failed to create remote directory", remotePath)
			}
			if err := uploadTree(ctx, s, localFS, localPath, remotePath, o); err != nil {
				return err
			}
			continue
		}

		if err := uploadFile(ctx, s, localFS, localPath, remotePath, o); err != nil {
			return err
		}
	}

	return nil
}
