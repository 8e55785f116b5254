package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	gobilly "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/hibernate/hvrelease/fs"
	"github.com/hibernate/hvrelease/git/internal/fsbridge"
)

const (
	// DefaultStorerCacheSize is the default size for the LRU object cache.
	DefaultStorerCacheSize = 1000

	// DefaultWorkdir is the default worktree directory name.
	DefaultWorkdir = "."

	// DotGit is the name of the repository metadata directory.
	DotGit = ".git"
)

// Options configures repository discovery and creation.
type Options struct {
	// FS is the REQUIRED native filesystem root (OS or in-memory).
	// All repository state lives within this filesystem.
	FS fs.Filesystem

	// Workdir is the path within FS for the worktree root.
	// Defaults to "." (current directory in FS).
	Workdir string

	// StorerCacheSize sets the LRU objects cache entries.
	// Defaults to DefaultStorerCacheSize.
	StorerCacheSize int

	// Logger receives debug output. If nil, logging is disabled.
	Logger *slog.Logger
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.FS == nil {
		return WrapError(ErrInvalidOptions, "FS is required")
	}

	if o.StorerCacheSize < 0 {
		return WrapError(ErrInvalidOptions, "StorerCacheSize cannot be negative")
	}

	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.Workdir == "" {
		o.Workdir = DefaultWorkdir
	}

	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = DefaultStorerCacheSize
	}
}

// Signature identifies the author and committer of a commit.
type Signature struct {
	Name  string
	Email string

	// When is the commit timestamp. Zero means now.
	When time.Time
}

// IsZero reports whether no identity was given.
func (s Signature) IsZero() bool {
	return s.Name == "" && s.Email == ""
}

// CommitOpts configures commit creation behavior.
type CommitOpts struct {
	// AllowEmpty allows creating commits with no changes.
	AllowEmpty bool
}

// Repo is an opened, non-bare git repository.
type Repo struct {
	repo     *git.Repository
	worktree *git.Worktree
	fs       fs.Filesystem
	options  Options
}

// Workdir returns the worktree root within the filesystem.
func (r *Repo) Workdir() string {
	return r.options.Workdir
}

// Init creates a new repository with a worktree at opts.Workdir.
func Init(ctx context.Context, opts *Options) (*Repo, error) {
	return setup(ctx, opts, func(storage *filesystem.Storage, worktree gobilly.Filesystem) (*git.Repository, error) {
		repo, err := git.Init(storage, worktree)
		if err != nil {
			return nil, WrapError(err, "failed to initialize repository")
		}
		return repo, nil
	})
}

// Open opens the existing repository whose worktree root is opts.Workdir.
func Open(ctx context.Context, opts *Options) (*Repo, error) {
	return setup(ctx, opts, func(storage *filesystem.Storage, worktree gobilly.Filesystem) (*git.Repository, error) {
		repo, err := git.Open(storage, worktree)
		if err != nil {
			if errors.Is(err, git.ErrRepositoryNotExists) {
				return nil, WrapErrorf(ErrNotRepository, "%s", opts.Workdir)
			}
			return nil, WrapError(err, "failed to open repository")
		}
		return repo, nil
	})
}

// Discover opens the repository containing path, walking up the directory
// tree until a directory holding .git is found. opts.Workdir is ignored.
func Discover(ctx context.Context, path string, opts Options) (*Repo, error) {
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}
	fsys := opts.FS

	dir := filepath.Clean(path)
	if info, err := fsys.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ok, err := fsys.Exists(filepath.Join(dir, DotGit))
		if err != nil {
			return nil, WrapErrorf(err, "failed to probe %s", dir)
		}
		if ok {
			opts.Workdir = dir
			return Open(ctx, &opts)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, WrapErrorf(ErrNotRepository, "%s or any parent directory", path)
		}
		dir = parent
	}
}

type openFunc func(*filesystem.Storage, gobilly.Filesystem) (*git.Repository, error)

func setup(ctx context.Context, opts *Options, open openFunc) (*Repo, error) {
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts.applyDefaults()

	billyFS, err := fsbridge.Billy(opts.FS)
	if err != nil {
		return nil, fmt.Errorf("filesystem conversion failed: %w", err)
	}

	// Chroot to the workdir to scope the repository location
	scopedFS, err := billyFS.Chroot(opts.Workdir)
	if err != nil {
		return nil, fmt.Errorf("failed to chroot to workdir %q: %w", opts.Workdir, err)
	}

	dotGitFS, err := scopedFS.Chroot(DotGit)
	if err != nil {
		return nil, fmt.Errorf("failed to access .git directory: %w", err)
	}

	repo, err := open(fsbridge.NewStorage(dotGitFS, opts.StorerCacheSize), scopedFS)
	if err != nil {
		return nil, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, WrapError(err, "failed to get worktree")
	}

	if opts.Logger != nil {
		opts.Logger.Debug("opened repository", "workdir", opts.Workdir)
	}

	return &Repo{
		repo:     repo,
		worktree: worktree,
		fs:       opts.FS,
		options:  *opts,
	}, nil
}
