// Package remote publishes release artifacts and documentation to remote
// hosts over a session-oriented file transfer protocol.
//
// Two operations are provided on top of a Session:
//
//   - Mirror replaces a remote directory with a local tree. It deletes the
//     remote directory if present, recreates it and uploads every local file.
//     Running it again with the same input yields the same remote tree.
//   - UploadRelease creates a new remote release directory named after the
//     version and uploads a flat list of files into it. It refuses to touch a
//     release directory that already exists.
//
// Both operations are sequential and report per-file progress through a
// ProgressTracker. Backends live in the sftp and s3 sub-packages.
package remote

import (
	"context"
	stderrors "errors"
	"io"
	iofs "io/fs"
	"os"

	hverrors "github.com/hibernate/hvrelease/errors"
)

// Session is an open connection to one remote target.
//
// Paths are slash-separated and absolute. Stat, ReadDir, Remove and
// RemoveDirectory report a missing path with an error that satisfies
// errors.Is(err, fs.ErrNotExist); every other error is a transfer failure.
// ReadDir may include the "." and ".." entries.
type Session interface {
	Stat(ctx context.Context, path string) (os.FileInfo, error)
	Mkdir(ctx context.Context, path string) error
	ReadDir(ctx context.Context, path string) ([]os.FileInfo, error)
	Remove(ctx context.Context, path string) error
	RemoveDirectory(ctx context.Context, path string) error
	Create(ctx context.Context, path string) (io.WriteCloser, error)
	Close() error
}

// Dialer opens sessions to remote targets.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, target Target) (Session, error)

// Dial calls f(ctx, target).
//
//nolint:ireturn // Session is the abstraction callers program against.
func (f DialerFunc) Dial(ctx context.Context, target Target) (Session, error) {
	return f(ctx, target)
}

// SchemeDialer dispatches to a Dialer registered for the target's scheme.
type SchemeDialer map[string]Dialer

// Dial implements Dialer.
//
//nolint:ireturn // Session is the abstraction callers program against.
func (d SchemeDialer) Dial(ctx context.Context, target Target) (Session, error) {
	dialer, ok := d[target.Scheme]
	if !ok {
		return nil, hverrors.Newf(hverrors.CodeInvalidConfig, "no transport for scheme %q", target.Scheme).
			WithContext("target", target.String())
	}
	return dialer.Dial(ctx, target)
}

// IsNotExist reports whether err is a remote "no such file" outcome.
func IsNotExist(err error) bool {
	return stderrors.Is(err, iofs.ErrNotExist)
}

// WithSession dials target, runs fn with the session and closes the session
// on every path. A close failure is reported only when fn succeeded.
func WithSession(ctx context.Context, dialer Dialer, target Target, fn func(Session) error) (err error) {
	s, err := dialer.Dial(ctx, target)
	if err != nil {
		if hverrors.CodeOf(err) != hverrors.CodeUnknown {
			return err
		}
		return hverrors.WrapWithContext(err, hverrors.CodeTransferFailed,
			"failed to open remote session", map[string]interface{}{"target": target.String()})
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = hverrors.WrapWithContext(cerr, hverrors.CodeTransferFailed,
				"failed to close remote session", map[string]interface{}{"target": target.String()})
		}
	}()

	return fn(s)
}
