// Package remotetest provides an in-memory remote filesystem and Session for
// tests of code built on the remote package.
package remotetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hibernate/hvrelease/remote"
)

// FS is an in-memory remote filesystem shared by every session opened on it.
// It behaves like an SFTP server: directories must be empty before removal,
// files cannot be created in missing directories and directory listings
// include the "." and ".." entries.
type FS struct {
	mu    sync.Mutex
	dirs  map[string]bool
	files map[string][]byte
	ops   []string

	// StatFunc, when set, is consulted before every Stat. A non-nil error is
	// returned to the caller.
	StatFunc func(path string) error

	// CreateFunc, when set, is consulted before every Create.
	CreateFunc func(path string) error

	// WriteFunc, when set, is consulted before every chunk write.
	WriteFunc func(path string, p []byte) error
}

// NewFS returns an FS containing "/" and the given directories with their
// parents.
func NewFS(dirs ...string) *FS {
	f := &FS{
		dirs:  map[string]bool{"/": true},
		files: map[string][]byte{},
	}
	for _, d := range dirs {
		f.addDirAll(d)
	}
	return f
}

func (f *FS) addDirAll(p string) {
	p = path.Clean(p)
	for p != "/" && p != "." {
		f.dirs[p] = true
		p = path.Dir(p)
	}
}

// AddFile stores a file, creating its parent directories.
func (f *FS) AddFile(p string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = path.Clean(p)
	f.addDirAll(path.Dir(p))
	f.files[p] = append([]byte(nil), data...)
}

// AddDir creates a directory and its parents.
func (f *FS) AddDir(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addDirAll(p)
}

// File returns the content of the file at p.
func (f *FS) File(p string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path.Clean(p)]
	return data, ok
}

// Exists reports whether p is a file or directory.
func (f *FS) Exists(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = path.Clean(p)
	_, file := f.files[p]
	return file || f.dirs[p]
}

// Tree returns every path below root, directories suffixed with "/", sorted.
func (f *FS) Tree(root string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	root = path.Clean(root)
	prefix := strings.TrimSuffix(root, "/") + "/"

	var out []string
	for d := range f.dirs {
		if strings.HasPrefix(d, prefix) {
			out = append(out, strings.TrimPrefix(d, prefix)+"/")
		}
	}
	for p, data := range f.files {
		if strings.HasPrefix(p, prefix) {
			out = append(out, fmt.Sprintf("%s=%s", strings.TrimPrefix(p, prefix), data))
		}
	}
	sort.Strings(out)
	return out
}

// Ops returns the mutating operations performed so far, such as
// "mkdir /a", "remove /a/b", "rmdir /a" and "create /a/c".
func (f *FS) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// ResetOps clears the operation log.
func (f *FS) ResetOps() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
}

func (f *FS) record(op, p string) {
	f.ops = append(f.ops, op+" "+p)
}

func notExist(op, p string) error {
	return &iofs.PathError{Op: op, Path: p, Err: iofs.ErrNotExist}
}

// Session opens a new session on the filesystem.
func (f *FS) Session() *Session {
	return &Session{fs: f}
}

// Session is a remote.Session backed by an FS.
type Session struct {
	fs     *FS
	closed bool
}

var _ remote.Session = (*Session)(nil)

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()
	return s.closed
}

func (s *Session) check() error {
	if s.closed {
		return fmt.Errorf("session closed")
	}
	return nil
}

// Stat implements remote.Session.
func (s *Session) Stat(_ context.Context, p string) (os.FileInfo, error) {
	f := s.fs
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	p = path.Clean(p)
	if f.StatFunc != nil {
		if err := f.StatFunc(p); err != nil {
			return nil, err
		}
	}
	if f.dirs[p] {
		return &FileInfo{name: path.Base(p), dir: true}, nil
	}
	if data, ok := f.files[p]; ok {
		return &FileInfo{name: path.Base(p), size: int64(len(data))}, nil
	}
	return nil, notExist("stat", p)
}

// Mkdir implements remote.Session.
func (s *Session) Mkdir(_ context.Context, p string) error {
	f := s.fs
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	p = path.Clean(p)
	if _, ok := f.files[p]; ok || f.dirs[p] {
		return &iofs.PathError{Op: "mkdir", Path: p, Err: iofs.ErrExist}
	}
	if !f.dirs[path.Dir(p)] {
		return notExist("mkdir", p)
	}
	f.dirs[p] = true
	f.record("mkdir", p)
	return nil
}

// ReadDir implements remote.Session. The listing starts with "." and "..".
func (s *Session) ReadDir(_ context.Context, p string) ([]os.FileInfo, error) {
	f := s.fs
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	p = path.Clean(p)
	if !f.dirs[p] {
		return nil, notExist("readdir", p)
	}

	out := []os.FileInfo{
		&FileInfo{name: ".", dir: true},
		&FileInfo{name: "..", dir: true},
	}
	var children []os.FileInfo
	for d := range f.dirs {
		if d != p && path.Dir(d) == p {
			children = append(children, &FileInfo{name: path.Base(d), dir: true})
		}
	}
	for fp, data := range f.files {
		if path.Dir(fp) == p {
			children = append(children, &FileInfo{name: path.Base(fp), size: int64(len(data))})
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })

	return append(out, children...), nil
}

// Remove implements remote.Session. Only files can be removed.
func (s *Session) Remove(_ context.Context, p string) error {
	f := s.fs
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	p = path.Clean(p)
	f.record("remove", p)
	if _, ok := f.files[p]; !ok {
		if f.dirs[p] {
			return fmt.Errorf("remove %s: is a directory", p)
		}
		return notExist("remove", p)
	}
	delete(f.files, p)
	return nil
}

// RemoveDirectory implements remote.Session. The directory must be empty.
func (s *Session) RemoveDirectory(_ context.Context, p string) error {
	f := s.fs
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	p = path.Clean(p)
	f.record("rmdir", p)
	if !f.dirs[p] {
		return notExist("rmdir", p)
	}
	for d := range f.dirs {
		if d != p && path.Dir(d) == p {
			return fmt.Errorf("rmdir %s: directory not empty", p)
		}
	}
	for fp := range f.files {
		if path.Dir(fp) == p {
			return fmt.Errorf("rmdir %s: directory not empty", p)
		}
	}
	delete(f.dirs, p)
	return nil
}

// Create implements remote.Session. The content becomes visible on Close.
//
//nolint:ireturn // matches remote.Session
func (s *Session) Create(_ context.Context, p string) (io.WriteCloser, error) {
	f := s.fs
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	p = path.Clean(p)
	if f.CreateFunc != nil {
		if err := f.CreateFunc(p); err != nil {
			return nil, err
		}
	}
	if !f.dirs[path.Dir(p)] {
		return nil, notExist("create", p)
	}
	f.record("create", p)
	f.files[p] = nil
	return &writer{fs: f, path: p}, nil
}

// Close implements remote.Session.
func (s *Session) Close() error {
	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()
	s.closed = true
	return nil
}

type writer struct {
	fs   *FS
	path string
	buf  bytes.Buffer
}

func (w *writer) Write(p []byte) (int, error) {
	if w.fs.WriteFunc != nil {
		if err := w.fs.WriteFunc(w.path, p); err != nil {
			return 0, err
		}
	}
	return w.buf.Write(p)
}

func (w *writer) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.files[w.path] = append([]byte(nil), w.buf.Bytes()...)
	return nil
}

// FileInfo is the os.FileInfo returned by Session.
type FileInfo struct {
	name string
	size int64
	dir  bool
}

// Name implements os.FileInfo.
func (i *FileInfo) Name() string { return i.name }

// Size implements os.FileInfo.
func (i *FileInfo) Size() int64 { return i.size }

// Mode implements os.FileInfo.
func (i *FileInfo) Mode() os.FileMode {
	if i.dir {
		return os.ModeDir | 0o755
	}
	return 0o644
}

// ModTime implements os.FileInfo.
func (i *FileInfo) ModTime() time.Time { return time.Time{} }

// IsDir implements os.FileInfo.
func (i *FileInfo) IsDir() bool { return i.dir }

// Sys implements os.FileInfo.
func (i *FileInfo) Sys() any { return nil }

// Dialer opens sessions on in-memory filesystems keyed by target host.
type Dialer struct {
	mu sync.Mutex

	// Hosts maps a target host to its filesystem.
	Hosts map[string]*FS

	// DialFunc, when set, is consulted before every Dial.
	DialFunc func(target remote.Target) error

	dialed   []remote.Target
	sessions []*Session
}

var _ remote.Dialer = (*Dialer)(nil)

// NewDialer returns a Dialer serving hosts.
func NewDialer(hosts map[string]*FS) *Dialer {
	return &Dialer{Hosts: hosts}
}

// Dial implements remote.Dialer.
//
//nolint:ireturn // matches remote.Dialer
func (d *Dialer) Dial(_ context.Context, target remote.Target) (remote.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.DialFunc != nil {
		if err := d.DialFunc(target); err != nil {
			return nil, err
		}
	}
	f, ok := d.Hosts[target.Host]
	if !ok {
		return nil, fmt.Errorf("dial %s: unknown host", target.Host)
	}
	s := f.Session()
	d.dialed = append(d.dialed, target)
	d.sessions = append(d.sessions, s)
	return s, nil
}

// Dialed returns the targets dialled so far.
func (d *Dialer) Dialed() []remote.Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]remote.Target(nil), d.dialed...)
}

// Sessions returns the sessions opened so far.
func (d *Dialer) Sessions() []*Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Session(nil), d.sessions...)
}
