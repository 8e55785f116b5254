// Package s3 implements remote sessions on an S3 bucket.
//
// S3 has no directories, so the session emulates them: a directory exists
// when a "dir/" marker object or any object below "dir/" exists, Mkdir writes
// the marker and RemoveDirectory deletes it. Files are buffered in memory and
// written with a single PutObject when closed.
package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	iofs "io/fs"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"

	"github.com/hibernate/hvrelease/remote"
)

// DefaultContentType is used when neither the extension nor the content
// identifies the object type.
const DefaultContentType = "application/octet-stream"

// S3API is the subset of the S3 client used by Session.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(
		ctx context.Context,
		params *s3.DeleteObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(
		ctx context.Context,
		params *s3.ListObjectsV2Input,
		optFns ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Session is a remote.Session on one bucket.
type Session struct {
	api    S3API
	bucket string
}

var _ remote.Session = (*Session)(nil)

// NewSession creates a session on bucket.
func NewSession(api S3API, bucket string) *Session {
	return &Session{
		api:    api,
		bucket: bucket,
	}
}

// objectKey converts a remote path to an object key without leading slash.
func objectKey(p string) string {
	k := strings.TrimPrefix(path.Clean("/"+p), "/")
	return k
}

func dirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return key + "/"
}

// isNotFound reports whether err is an S3 "no such object" reply.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func pathError(op, p string, err error) error {
	if isNotFound(err) {
		err = iofs.ErrNotExist
	}
	return &iofs.PathError{Op: op, Path: p, Err: err}
}

// Stat implements remote.Session.
func (s *Session) Stat(ctx context.Context, p string) (os.FileInfo, error) {
	key := objectKey(p)
	if key == "" {
		return &fileInfo{name: "/", dir: true}, nil
	}

	head, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		return &fileInfo{
			name:    path.Base(key),
			size:    aws.ToInt64(head.ContentLength),
			modTime: aws.ToTime(head.LastModified),
		}, nil
	case !isNotFound(err):
		return nil, pathError("stat", p, err)
	}

	out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(dirPrefix(key)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, pathError("stat", p, err)
	}
	if len(out.Contents) == 0 && len(out.CommonPrefixes) == 0 {
		return nil, &iofs.PathError{Op: "stat", Path: p, Err: iofs.ErrNotExist}
	}

	return &fileInfo{name: path.Base(key), dir: true}, nil
}

// Mkdir implements remote.Session by writing a directory marker object.
func (s *Session) Mkdir(ctx context.Context, p string) error {
	key := objectKey(p)
	if key == "" {
		return nil
	}
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(dirPrefix(key)),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
		ContentType:   aws.String("application/x-directory"),
	})
	if err != nil {
		return pathError("mkdir", p, err)
	}
	return nil
}

// ReadDir implements remote.Session.
func (s *Session) ReadDir(ctx context.Context, p string) ([]os.FileInfo, error) {
	prefix := dirPrefix(objectKey(p))

	var (
		entries []os.FileInfo
		found   bool
	)
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pathError("readdir", p, err)
		}
		for _, cp := range page.CommonPrefixes {
			found = true
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			entries = append(entries, &fileInfo{name: name, dir: true})
		}
		for _, obj := range page.Contents {
			found = true
			key := aws.ToString(obj.Key)
			if key == prefix {
				continue
			}
			entries = append(entries, &fileInfo{
				name:    strings.TrimPrefix(key, prefix),
				size:    aws.ToInt64(obj.Size),
				modTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	if !found && prefix != "" {
		return nil, &iofs.PathError{Op: "readdir", Path: p, Err: iofs.ErrNotExist}
	}
	return entries, nil
}

// Remove implements remote.Session.
func (s *Session) Remove(ctx context.Context, p string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(p)),
	})
	if err != nil {
		return pathError("remove", p, err)
	}
	return nil
}

// RemoveDirectory implements remote.Session by deleting the directory marker.
func (s *Session) RemoveDirectory(ctx context.Context, p string) error {
	key := objectKey(p)
	if key == "" {
		return nil
	}
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(dirPrefix(key)),
	})
	if err != nil {
		return pathError("rmdir", p, err)
	}
	return nil
}

// Create implements remote.Session. The object is written on Close.
//
//nolint:ireturn // matches remote.Session
func (s *Session) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	key := objectKey(p)
	if key == "" {
		return nil, &iofs.PathError{Op: "create", Path: p, Err: iofs.ErrInvalid}
	}
	return &objectWriter{ctx: ctx, session: s, path: p, key: key}, nil
}

// Close implements remote.Session. S3 sessions hold no connection state.
func (s *Session) Close() error {
	return nil
}

type objectWriter struct {
	ctx     context.Context //nolint:containedctx // bound to one upload
	session *Session
	path    string
	key     string
	buf     bytes.Buffer
	closed  bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, iofs.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	data := w.buf.Bytes()
	_, err := w.session.api.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.session.bucket),
		Key:           aws.String(w.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(w.key, data)),
	})
	if err != nil {
		return pathError("create", w.path, err)
	}
	return nil
}

// contentType prefers the extension mapping and falls back to sniffing the
// first 512 bytes of content.
func contentType(key string, data []byte) string {
	if ext := strings.ToLower(path.Ext(key)); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	if len(data) > 0 {
		head := data
		if len(head) > 512 {
			head = head[:512]
		}
		if mt := mimetype.Detect(head); mt != nil {
			return mt.String()
		}
	}
	return DefaultContentType
}

type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

func (i *fileInfo) Name() string       { return i.name }
func (i *fileInfo) Size() int64        { return i.size }
func (i *fileInfo) ModTime() time.Time { return i.modTime }
func (i *fileInfo) IsDir() bool        { return i.dir }
func (i *fileInfo) Sys() any           { return nil }

func (i *fileInfo) Mode() os.FileMode {
	if i.dir {
		return os.ModeDir | 0o755
	}
	return 0o644
}
