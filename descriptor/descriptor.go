// Package descriptor resolves the release version from a Maven project
// descriptor (pom.xml).
//
// The descriptor must belong to the expected project: its artifactId has to
// contain a configured marker such as "hibernate-validator". The release
// version is read from the parent element, which is where the aggregator
// module of a multi-module build declares it.
package descriptor

import (
	"encoding/xml"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"strings"

	"github.com/Masterminds/semver/v3"

	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/fs"
)

// FileName is the conventional descriptor file name inside a module directory.
const FileName = "pom.xml"

// Descriptor is the subset of a project descriptor the release tooling needs.
type Descriptor struct {
	// ProjectIdentifier is the artifactId of the project.
	ProjectIdentifier string

	// Version is the release version, e.g. "8.0.1.Final".
	Version string
}

// ShortVersion returns the first three dot-separated components of the version.
func (d *Descriptor) ShortVersion() string {
	return ShortVersion(d.Version)
}

// pom maps the elements of a pom.xml we consume. Tags carry no namespace so
// that both namespaced and bare descriptors decode.
type pom struct {
	XMLName    xml.Name `xml:"project"`
	ArtifactID string   `xml:"artifactId"`
	Parent     struct {
		Version string `xml:"version"`
	} `xml:"parent"`
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used by the resolver.
// If logger is nil, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver reads release descriptors from a filesystem.
type Resolver struct {
	fs     fs.Filesystem
	marker string
	logger *slog.Logger
}

// NewResolver creates a Resolver that accepts descriptors whose artifactId
// contains marker.
func NewResolver(fsys fs.Filesystem, marker string, opts ...Option) (*Resolver, error) {
	if fsys == nil {
		return nil, hverrors.New(hverrors.CodeInvalidInput, "filesystem cannot be nil")
	}
	if strings.TrimSpace(marker) == "" {
		return nil, hverrors.New(hverrors.CodeInvalidInput, "project marker cannot be empty")
	}

	r := &Resolver{
		fs:     fsys,
		marker: marker,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Resolve parses the descriptor at path.
//
// A missing file yields a NOT_FOUND error, malformed XML or a missing parent
// version a PARSE_FAILED error, and an artifactId without the marker an
// INVALID_CONFIGURATION error.
func (r *Resolver) Resolve(path string) (*Descriptor, error) {
	data, err := r.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, hverrors.WrapWithContext(err, hverrors.CodeNotFound,
				"project descriptor not found", map[string]interface{}{"path": path})
		}
		return nil, hverrors.WrapWithContext(err, hverrors.CodeInternal,
			"failed to read project descriptor", map[string]interface{}{"path": path})
	}

	var p pom
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, hverrors.WrapWithContext(err, hverrors.CodeParseFailed,
			"malformed project descriptor", map[string]interface{}{"path": path})
	}

	id := strings.TrimSpace(p.ArtifactID)
	if !strings.Contains(id, r.marker) {
		return nil, hverrors.New(hverrors.CodeInvalidConfig,
			fmt.Sprintf("descriptor does not belong to %s, wrong directory?", r.marker)).
			WithContext("path", path).
			WithContext("artifactId", id)
	}

	version := strings.TrimSpace(p.Parent.Version)
	if version == "" {
		return nil, hverrors.New(hverrors.CodeParseFailed, "descriptor has no parent version").
			WithContext("path", path)
	}

	if r.logger != nil {
		r.logger.Debug("resolved release version", "path", path, "artifactId", id, "version", version)
	}

	return &Descriptor{
		ProjectIdentifier: id,
		Version:           version,
	}, nil
}

// ShortVersion returns the first three dot-separated components of version,
// or version itself when it has fewer.
func ShortVersion(version string) string {
	parts := strings.SplitN(version, ".", 4)
	if len(parts) <= 3 {
		return version
	}
	return strings.Join(parts[:3], ".")
}

// Family returns the "major.minor" release family of version, e.g. "8.0" for
// "8.0.1.Final".
func Family(version string) (string, error) {
	v, err := semver.NewVersion(ShortVersion(version))
	if err != nil {
		return "", hverrors.WrapWithContext(err, hverrors.CodeParseFailed,
			"invalid release version", map[string]interface{}{"version": version})
	}
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor()), nil
}
