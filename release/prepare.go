package release

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hibernate/hvrelease/descriptor"
	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/fs"
	"github.com/hibernate/hvrelease/git"
	"github.com/hibernate/hvrelease/jira"
	"github.com/hibernate/hvrelease/releasenotes"
)

// Commit messages of the release-note updates.
const (
	ReadmeCommitFormat    = "[Jenkins release job] README.md updated by release build %s"
	ChangelogCommitFormat = "[Jenkins release job] changelog.txt updated by release build %s"
)

// IssueTracker provides the version and issue data of a release.
type IssueTracker interface {
	Release(ctx context.Context, name string) (*jira.Version, error)
	Issues(ctx context.Context, version string) ([]jira.Issue, error)
}

var _ IssueTracker = (*jira.Client)(nil)

// PrepareConfig describes one release-note preparation run.
type PrepareConfig struct {
	// Version is the release to prepare, e.g. "8.0.1.Final".
	Version string

	// WebsiteRelease prints the website release file.
	WebsiteRelease bool

	// WebsiteDir is the project directory on the website, e.g. "validator".
	WebsiteDir string

	// Readme and Changelog are the files to update. Empty skips the step.
	Readme    string
	Changelog string

	// Commit records each updated file in its repository.
	Commit bool

	// Author signs the commits. Zero uses the git configuration.
	Author git.Signature

	// Now is the release date written into the files. Zero means today.
	Now time.Time
}

// Validate checks that the configuration is complete for the selected steps.
func (c *PrepareConfig) Validate() error {
	if c.Version == "" {
		return hverrors.New(hverrors.CodeInvalidConfig, "release version is required")
	}
	if _, err := descriptor.Family(c.Version); err != nil {
		return err
	}
	if c.WebsiteRelease && c.WebsiteDir == "" {
		return hverrors.New(hverrors.CodeInvalidConfig, "website directory is required")
	}
	return nil
}

// PrepareResult reports what a preparation run did.
type PrepareResult struct {
	Release *jira.Version

	// Website is the rendered website release file, nil when not requested.
	Website []byte

	// Commits lists the created commit SHAs.
	Commits []string
}

// Preparer updates the release notes of a version from the issue tracker.
type Preparer struct {
	cfg     PrepareConfig
	fs      fs.Filesystem
	tracker IssueTracker
	out     io.Writer
	settings
}

// NewPreparer creates a Preparer. The website release file is printed to out.
func NewPreparer(cfg PrepareConfig, fsys fs.Filesystem, tracker IssueTracker, out io.Writer, opts ...Option) (*Preparer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fsys == nil || tracker == nil {
		return nil, hverrors.New(hverrors.CodeInvalidInput, "filesystem and issue tracker are required")
	}
	if out == nil {
		out = io.Discard
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}

	return &Preparer{
		cfg:      cfg,
		fs:       fsys,
		tracker:  tracker,
		out:      out,
		settings: newSettings(opts),
	}, nil
}

// Prepare checks the version is released in the issue tracker, then runs the
// selected steps: website release file, README update and changelog update.
func (p *Preparer) Prepare(ctx context.Context) (*PrepareResult, error) {
	for _, f := range []string{p.cfg.Readme, p.cfg.Changelog} {
		if err := p.checkFile(f); err != nil {
			return nil, err
		}
	}

	v, err := p.tracker.Release(ctx, p.cfg.Version)
	if err != nil {
		return nil, err
	}
	res := &PrepareResult{Release: v}

	if p.cfg.WebsiteRelease {
		if res.Website, err = p.website(*v); err != nil {
			return res, err
		}
	}

	if p.cfg.Readme != "" {
		if err := releasenotes.UpdateReadme(p.fs, p.cfg.Readme, p.cfg.Version, p.cfg.Now); err != nil {
			return res, err
		}
		if err := p.commit(ctx, res, p.cfg.Readme, ReadmeCommitFormat); err != nil {
			return res, err
		}
	}

	if p.cfg.Changelog != "" {
		issues, err := p.tracker.Issues(ctx, p.cfg.Version)
		if err != nil {
			return res, err
		}
		update := releasenotes.Changelog(p.cfg.Version, p.cfg.Now, issues)
		if err := releasenotes.InsertChangelog(p.fs, p.cfg.Changelog, update); err != nil {
			return res, err
		}
		if p.logger != nil {
			p.logger.Info("updated changelog", "path", p.cfg.Changelog, "issues", len(issues))
		}
		if err := p.commit(ctx, res, p.cfg.Changelog, ChangelogCommitFormat); err != nil {
			return res, err
		}
	}

	return res, nil
}

func (p *Preparer) checkFile(path string) error {
	if path == "" {
		return nil
	}
	info, err := p.fs.Stat(path)
	if err != nil || info.IsDir() {
		return hverrors.Newf(hverrors.CodeNotFound, "%s is not a valid file", path)
	}
	return nil
}

func (p *Preparer) website(v jira.Version) ([]byte, error) {
	data, err := releasenotes.WebsiteRelease(v)
	if err != nil {
		return nil, err
	}

	target := releasenotes.WebsiteReleasePath(p.cfg.WebsiteDir, v.Name)
	_, err = fmt.Fprintf(p.out,
		"Run the following command in the hibernate.org repository to create the release announcement file:\n\n%s",
		releasenotes.Heredoc(target, data))
	if err != nil {
		return nil, hverrors.Wrap(err, hverrors.CodeInternal, "failed to print website release")
	}
	return data, nil
}

func (p *Preparer) commit(ctx context.Context, res *PrepareResult, path, format string) error {
	if !p.cfg.Commit {
		return nil
	}

	msg := fmt.Sprintf(format, p.cfg.Version)
	sha, err := git.CommitFile(ctx, path, msg, p.cfg.Author, git.Options{FS: p.fs, Logger: p.logger})
	if err != nil {
		return hverrors.WrapWithContext(err, hverrors.CodeExecutionFailed,
			"failed to commit release notes", map[string]interface{}{"path": path})
	}
	res.Commits = append(res.Commits, sha)
	return nil
}
