// Package release ties the release steps together: publishing the
// distribution bundles and documentation of a build, and preparing the
// release notes of a version before it is built.
package release

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hibernate/hvrelease/artifact"
	"github.com/hibernate/hvrelease/confirm"
	"github.com/hibernate/hvrelease/descriptor"
	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/fs"
	"github.com/hibernate/hvrelease/remote"
)

// PublishConfig describes one publication run.
type PublishConfig struct {
	// BaseDir is the distribution module directory holding the descriptor.
	BaseDir string

	// Project is the distribution name prefix, e.g. "hibernate-validator".
	Project string

	// Marker must be contained in the descriptor's artifactId.
	Marker string

	// User is the upload identity used for targets that name none.
	User string

	// DistTarget receives the release directory {BasePath}/{version}.
	DistTarget remote.Target

	// DocsTarget receives the documentation under {BasePath}/{short version}.
	DocsTarget remote.Target

	// StableTarget receives a second copy of the documentation when Stable is set.
	StableTarget remote.Target

	// Dist and Docs select the steps to run. Neither means both.
	Dist bool
	Docs bool

	// Stable also mirrors the documentation to StableTarget.
	Stable bool
}

// Validate checks that the configuration is complete for the selected steps.
func (c *PublishConfig) Validate() error {
	switch {
	case c.BaseDir == "":
		return hverrors.New(hverrors.CodeInvalidConfig, "base directory is required")
	case c.Project == "":
		return hverrors.New(hverrors.CodeInvalidConfig, "project name is required")
	case c.Marker == "":
		return hverrors.New(hverrors.CodeInvalidConfig, "project marker is required")
	case c.User == "":
		return hverrors.New(hverrors.CodeInvalidConfig, "upload user is required")
	}

	dist, docs := c.steps()
	if dist && c.DistTarget.Host == "" {
		return hverrors.New(hverrors.CodeInvalidConfig, "distribution target is required")
	}
	if docs && c.DocsTarget.Host == "" {
		return hverrors.New(hverrors.CodeInvalidConfig, "documentation target is required")
	}
	if c.Stable {
		if !docs {
			return hverrors.New(hverrors.CodeInvalidConfig, "stable documentation requires the docs step")
		}
		if c.StableTarget.Host == "" {
			return hverrors.New(hverrors.CodeInvalidConfig, "stable documentation target is required")
		}
	}

	// Mirroring deletes the remote directory first, so it must never cover
	// the published releases.
	if c.DistTarget.Host != "" {
		if docs && c.DocsTarget.Contains(c.DistTarget) {
			return hverrors.Newf(hverrors.CodeInvalidConfig,
				"documentation target %s covers the distribution target %s", c.DocsTarget, c.DistTarget)
		}
		if c.Stable && c.StableTarget.Contains(c.DistTarget) {
			return hverrors.Newf(hverrors.CodeInvalidConfig,
				"stable documentation target %s covers the distribution target %s", c.StableTarget, c.DistTarget)
		}
	}
	return nil
}

func (c *PublishConfig) steps() (dist, docs bool) {
	if !c.Dist && !c.Docs {
		return true, true
	}
	return c.Dist, c.Docs
}

// PublishResult reports what a publication run did.
type PublishResult struct {
	Descriptor *descriptor.Descriptor
	Artifacts  []artifact.Artifact
	DocsDir    string

	// ReleaseDir is the remote release directory, empty when the
	// distribution step did not run.
	ReleaseDir string

	// Mirrors lists the remote documentation directories written.
	Mirrors []string
}

// Option configures a Publisher or a Preparer.
type Option func(*settings)

type settings struct {
	logger    *slog.Logger
	confirmer confirm.Confirmer
	progress  remote.ProgressTracker
}

// WithLogger sets the logger. If logger is nil, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithConfirmer sets the gate consulted before every remote mutation.
// The default declines everything.
func WithConfirmer(c confirm.Confirmer) Option {
	return func(s *settings) {
		if c != nil {
			s.confirmer = c
		}
	}
}

// WithProgress sets the progress tracker for uploads.
func WithProgress(p remote.ProgressTracker) Option {
	return func(s *settings) {
		s.progress = p
	}
}

func newSettings(opts []Option) settings {
	s := settings{confirmer: confirm.Never{}}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Publisher validates a build's release output and publishes it.
type Publisher struct {
	cfg    PublishConfig
	fs     fs.Filesystem
	dialer remote.Dialer
	settings
}

// NewPublisher creates a Publisher reading the build from fsys and reaching
// remote hosts through dialer.
func NewPublisher(cfg PublishConfig, fsys fs.Filesystem, dialer remote.Dialer, opts ...Option) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fsys == nil {
		return nil, hverrors.New(hverrors.CodeInvalidInput, "filesystem is required")
	}
	if dialer == nil {
		return nil, hverrors.New(hverrors.CodeInvalidInput, "dialer is required")
	}

	return &Publisher{
		cfg:      cfg,
		fs:       fsys,
		dialer:   dialer,
		settings: newSettings(opts),
	}, nil
}

// Publish resolves the version, validates every local input of the selected
// steps and only then uploads. Each remote step is confirmed first and runs
// on its own session.
func (p *Publisher) Publish(ctx context.Context) (*PublishResult, error) {
	dist, docs := p.cfg.steps()

	resolver, err := descriptor.NewResolver(p.fs, p.cfg.Marker, descriptor.WithLogger(p.logger))
	if err != nil {
		return nil, err
	}
	desc, err := resolver.Resolve(filepath.Join(p.cfg.BaseDir, descriptor.FileName))
	if err != nil {
		return nil, err
	}

	res := &PublishResult{Descriptor: desc}
	layout := artifact.Layout{BaseDir: p.cfg.BaseDir, Project: p.cfg.Project, Version: desc.Version}

	if dist {
		if res.Artifacts, err = artifact.Collect(p.fs, layout); err != nil {
			return nil, err
		}
	}
	if docs {
		if res.DocsDir, err = artifact.LocateDocs(p.fs, layout); err != nil {
			return nil, err
		}
	}

	if p.logger != nil {
		p.logger.Info("validated release output",
			"project", desc.ProjectIdentifier, "version", desc.Version,
			"artifacts", len(res.Artifacts), "docs", res.DocsDir)
	}

	if dist {
		if res.ReleaseDir, err = p.uploadRelease(ctx, desc, res.Artifacts); err != nil {
			return res, err
		}
	}

	if docs {
		target := p.cfg.DocsTarget.WithUser(p.cfg.User)
		dir := target.Join(desc.ShortVersion())
		if err := p.mirror(ctx, target, res.DocsDir, dir); err != nil {
			return res, err
		}
		res.Mirrors = append(res.Mirrors, dir)

		if p.cfg.Stable {
			stable := p.cfg.StableTarget.WithUser(p.cfg.User)
			if err := p.mirror(ctx, stable, res.DocsDir, stable.BasePath); err != nil {
				return res, err
			}
			res.Mirrors = append(res.Mirrors, stable.BasePath)
		}
	}

	return res, nil
}

func (p *Publisher) uploadRelease(ctx context.Context, desc *descriptor.Descriptor, arts []artifact.Artifact) (string, error) {
	target := p.cfg.DistTarget.WithUser(p.cfg.User)

	question := fmt.Sprintf("Upload %d release files of %s %s to %s?",
		len(arts), p.cfg.Project, desc.Version, displayTarget(target, target.Join(desc.Version)))
	if err := p.confirmer.Confirm(ctx, question); err != nil {
		return "", err
	}

	var dir string
	err := remote.WithSession(ctx, p.dialer, target, func(s remote.Session) error {
		var err error
		dir, err = remote.UploadRelease(ctx, s, p.fs, artifact.Paths(arts), target.BasePath, desc.Version, p.remoteOptions()...)
		return err
	})
	if err != nil {
		return "", err
	}

	if p.logger != nil {
		p.logger.Info("uploaded release", "target", target.String(), "dir", dir)
	}
	return dir, nil
}

func (p *Publisher) mirror(ctx context.Context, target remote.Target, localDir, remoteDir string) error {
	question := fmt.Sprintf("Replace the documentation at %s with %s?", displayTarget(target, remoteDir), localDir)
	if err := p.confirmer.Confirm(ctx, question); err != nil {
		return err
	}

	err := remote.WithSession(ctx, p.dialer, target, func(s remote.Session) error {
		return remote.Mirror(ctx, s, p.fs, localDir, remoteDir, p.remoteOptions()...)
	})
	if err != nil {
		return err
	}

	if p.logger != nil {
		p.logger.Info("mirrored documentation", "target", target.String(), "dir", remoteDir)
	}
	return nil
}

func (p *Publisher) remoteOptions() []remote.Option {
	return []remote.Option{remote.WithLogger(p.logger), remote.WithProgress(p.progress)}
}

func displayTarget(t remote.Target, dir string) string {
	t.BasePath = dir
	return t.String()
}
