package remote

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	hverrors "github.com/hibernate/hvrelease/errors"
)

// Supported target schemes.
const (
	SchemeSFTP = "sftp"
	SchemeS3   = "s3"
)

// Target identifies one remote synchronization endpoint.
type Target struct {
	// Scheme selects the transport, SchemeSFTP or SchemeS3.
	Scheme string

	// User is the login name. Unused for S3.
	User string

	// Host is "host" or "host:port" for SFTP and the bucket name for S3.
	Host string

	// BasePath is the absolute remote directory (SFTP) or key prefix (S3).
	BasePath string
}

// ParseTarget parses a target in one of these forms:
//
//	user@host:/path
//	host:/path
//	sftp://user@host:port/path
//	s3://bucket/prefix
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, hverrors.New(hverrors.CodeInvalidConfig, "remote target cannot be empty")
	}

	if strings.Contains(raw, "://") {
		return parseURLTarget(raw)
	}

	hostPart, p, ok := strings.Cut(raw, ":")
	if !ok || hostPart == "" || p == "" {
		return Target{}, hverrors.Newf(hverrors.CodeInvalidConfig,
			"remote target %q must look like user@host:/path", raw)
	}

	t := Target{Scheme: SchemeSFTP, Host: hostPart, BasePath: cleanBase(p)}
	if user, host, found := strings.Cut(hostPart, "@"); found {
		t.User, t.Host = user, host
	}
	if t.Host == "" {
		return Target{}, hverrors.Newf(hverrors.CodeInvalidConfig, "remote target %q has no host", raw)
	}

	return t, nil
}

func parseURLTarget(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, hverrors.WrapWithContext(err, hverrors.CodeInvalidConfig,
			"invalid remote target", map[string]interface{}{"target": raw})
	}

	t := Target{Scheme: u.Scheme, Host: u.Host}
	switch u.Scheme {
	case SchemeSFTP:
		t.BasePath = cleanBase(u.Path)
		if u.User != nil {
			t.User = u.User.Username()
		}
	case SchemeS3:
		t.BasePath = strings.Trim(u.Path, "/")
	default:
		return Target{}, hverrors.Newf(hverrors.CodeInvalidConfig, "unsupported remote scheme %q", u.Scheme).
			WithContext("target", raw)
	}
	if t.Host == "" {
		return Target{}, hverrors.Newf(hverrors.CodeInvalidConfig, "remote target %q has no host", raw)
	}

	return t, nil
}

func cleanBase(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean(p)
}

// WithUser returns a copy of t whose User is user when t has none.
func (t Target) WithUser(user string) Target {
	if t.User == "" {
		t.User = user
	}
	return t
}

// Join returns the remote path of elem below the target's base path.
func (t Target) Join(elem ...string) string {
	return path.Join(append([]string{t.BasePath}, elem...)...)
}

// Contains reports whether other lives on the same host as t at t's base
// path or below it.
func (t Target) Contains(other Target) bool {
	if t.Scheme != other.Scheme || t.Host != other.Host {
		return false
	}
	parent := path.Clean("/" + t.BasePath)
	child := path.Clean("/" + other.BasePath)
	return parent == "/" || parent == child || strings.HasPrefix(child, parent+"/")
}

// String renders the target in the form ParseTarget accepts.
func (t Target) String() string {
	switch t.Scheme {
	case SchemeS3:
		return fmt.Sprintf("s3://%s/%s", t.Host, t.BasePath)
	default:
		if t.User == "" {
			return fmt.Sprintf("%s:%s", t.Host, t.BasePath)
		}
		return fmt.Sprintf("%s@%s:%s", t.User, t.Host, t.BasePath)
	}
}
