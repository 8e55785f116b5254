// Package artifact computes and validates the local release artifacts of a
// build: the readme, the changelog, the two distribution bundles and the
// unpacked documentation tree.
package artifact

import (
	"fmt"
	"path/filepath"

	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/fs"
)

// Kind identifies a release artifact.
type Kind int

const (
	// Readme is the project README.md one level above the module.
	Readme Kind = iota
	// Changelog is the project changelog.txt one level above the module.
	Changelog
	// ArchiveTarGz is the tar.gz distribution bundle.
	ArchiveTarGz
	// ArchiveZip is the zip distribution bundle.
	ArchiveZip
)

// Kinds lists every artifact kind in upload order.
var Kinds = []Kind{Readme, Changelog, ArchiveTarGz, ArchiveZip}

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case Readme:
		return "readme"
	case Changelog:
		return "changelog"
	case ArchiveTarGz:
		return "tar.gz"
	case ArchiveZip:
		return "zip"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Artifact is a verified local release file.
type Artifact struct {
	Kind Kind
	Path string
}

// Layout describes where a build leaves its release output.
type Layout struct {
	// BaseDir is the distribution module directory (the one holding pom.xml).
	BaseDir string

	// Project is the distribution name prefix, e.g. "hibernate-validator".
	Project string

	// Version is the full release version.
	Version string
}

// Validate checks that every field is set.
func (l Layout) Validate() error {
	switch {
	case l.BaseDir == "":
		return hverrors.New(hverrors.CodeInvalidInput, "base directory is required")
	case l.Project == "":
		return hverrors.New(hverrors.CodeInvalidInput, "project name is required")
	case l.Version == "":
		return hverrors.New(hverrors.CodeInvalidInput, "version is required")
	}
	return nil
}

// distName is "{project}-{version}-dist".
func (l Layout) distName() string {
	return fmt.Sprintf("%s-%s-dist", l.Project, l.Version)
}

// Path returns the expected location of the artifact of the given kind.
func (l Layout) Path(kind Kind) string {
	switch kind {
	case Readme:
		return filepath.Join(l.BaseDir, "..", "README.md")
	case Changelog:
		return filepath.Join(l.BaseDir, "..", "changelog.txt")
	case ArchiveTarGz:
		return filepath.Join(l.BaseDir, "target", l.distName()+".tar.gz")
	case ArchiveZip:
		return filepath.Join(l.BaseDir, "target", l.distName()+".zip")
	default:
		return ""
	}
}

// DocsDir returns the expected location of the unpacked documentation.
func (l Layout) DocsDir() string {
	return filepath.Join(l.BaseDir, "target", l.distName(),
		fmt.Sprintf("%s-%s", l.Project, l.Version), "docs")
}

// Collect verifies that every artifact of the layout exists and returns them
// in upload order. The first missing artifact fails the whole set with a
// NOT_FOUND error naming its path.
func Collect(fsys fs.Filesystem, layout Layout) ([]Artifact, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	base, err := fs.GetAbs(layout.BaseDir)
	if err != nil {
		return nil, hverrors.Wrap(err, hverrors.CodeInvalidInput, "invalid base directory")
	}
	layout.BaseDir = base

	artifacts := make([]Artifact, 0, len(Kinds))
	for _, kind := range Kinds {
		path := layout.Path(kind)
		ok, err := fsys.Exists(path)
		if err != nil {
			return nil, hverrors.WrapWithContext(err, hverrors.CodeInternal,
				"failed to check artifact", map[string]interface{}{"path": path})
		}
		if !ok {
			return nil, hverrors.Newf(hverrors.CodeNotFound, "%s does not exist", path).
				WithContext("kind", kind.String())
		}
		artifacts = append(artifacts, Artifact{Kind: kind, Path: path})
	}

	return artifacts, nil
}

// Paths returns the paths of artifacts in order.
func Paths(artifacts []Artifact) []string {
	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		paths[i] = a.Path
	}
	return paths
}

// LocateDocs verifies that the documentation directory of the layout exists
// and returns its absolute path.
func LocateDocs(fsys fs.Filesystem, layout Layout) (string, error) {
	if err := layout.Validate(); err != nil {
		return "", err
	}
	base, err := fs.GetAbs(layout.BaseDir)
	if err != nil {
		return "", hverrors.Wrap(err, hverrors.CodeInvalidInput, "invalid base directory")
	}
	layout.BaseDir = base

	dir := layout.DocsDir()
	ok, err := fs.IsDir(fsys, dir)
	if err != nil {
		return "", hverrors.WrapWithContext(err, hverrors.CodeInternal,
			"failed to check documentation directory", map[string]interface{}{"path": dir})
	}
	if !ok {
		return "", hverrors.Newf(hverrors.CodeNotFound, "%s does not exist or is not a directory", dir)
	}

	return dir, nil
}
