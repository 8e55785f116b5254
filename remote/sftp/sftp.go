// Package sftp implements remote sessions over SSH File Transfer Protocol.
package sftp

import (
	"context"
	stderrors "errors"
	"io"
	iofs "io/fs"
	"os"

	"github.com/pkg/sftp"

	"github.com/hibernate/hvrelease/remote"
)

// Session is a remote.Session backed by an SFTP client.
type Session struct {
	client  *sftp.Client
	closers []io.Closer
}

var _ remote.Session = (*Session)(nil)

// NewSession wraps an SFTP client. The closers, typically the underlying SSH
// connection, are closed after the client in Close.
func NewSession(client *sftp.Client, closers ...io.Closer) *Session {
	return &Session{
		client:  client,
		closers: closers,
	}
}

// mapError normalises "no such file" status replies to fs.ErrNotExist and
// attaches the operation and path to every other failure.
func mapError(op, p string, err error) error {
	if err == nil {
		return nil
	}
	var status *sftp.StatusError
	if stderrors.Is(err, os.ErrNotExist) ||
		(stderrors.As(err, &status) && status.FxCode() == sftp.ErrSSHFxNoSuchFile) {
		return &iofs.PathError{Op: op, Path: p, Err: iofs.ErrNotExist}
	}
	return &iofs.PathError{Op: op, Path: p, Err: err}
}

// Stat implements remote.Session.
func (s *Session) Stat(ctx context.Context, p string) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := s.client.Stat(p)
	if err != nil {
		return nil, mapError("stat", p, err)
	}
	return info, nil
}

// Mkdir implements remote.Session.
func (s *Session) Mkdir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError("mkdir", p, s.client.Mkdir(p))
}

// ReadDir implements remote.Session.
func (s *Session) ReadDir(ctx context.Context, p string) ([]os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.client.ReadDir(p)
	if err != nil {
		return nil, mapError("readdir", p, err)
	}
	return entries, nil
}

// Remove implements remote.Session.
func (s *Session) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError("remove", p, s.client.Remove(p))
}

// RemoveDirectory implements remote.Session.
func (s *Session) RemoveDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError("rmdir", p, s.client.RemoveDirectory(p))
}

// Create implements remote.Session.
//
//nolint:ireturn // matches remote.Session
func (s *Session) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.client.Create(p)
	if err != nil {
		return nil, mapError("create", p, err)
	}
	return f, nil
}

// Close closes the SFTP client and then every additional closer.
func (s *Session) Close() error {
	errs := []error{s.client.Close()}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return stderrors.Join(errs...)
}
