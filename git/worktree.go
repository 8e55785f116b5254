package git

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Rel converts path to a slash-separated path relative to the worktree root.
// Relative inputs are taken as already relative to the root.
func (r *Repo) Rel(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}

	rel, err := filepath.Rel(r.options.Workdir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", WrapErrorf(ErrInvalidOptions, "%s is outside the worktree %s", path, r.options.Workdir)
	}
	return filepath.ToSlash(rel), nil
}

// IsClean reports whether the worktree has no uncommitted changes.
func (r *Repo) IsClean() (bool, error) {
	status, err := r.worktree.Status()
	if err != nil {
		return false, WrapError(err, "failed to get worktree status")
	}
	return status.IsClean(), nil
}

// Add stages files in the worktree for the next commit. Paths may be
// absolute or relative to the worktree root; each must exist.
//
// Context cancellation is checked between files.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "" {
			continue
		}

		rel, err := r.Rel(p)
		if err != nil {
			return err
		}

		if _, err := r.worktree.Add(rel); err != nil {
			return WrapErrorf(err, "failed to add path %q", rel)
		}

		if r.options.Logger != nil {
			r.options.Logger.Debug("staged file", "path", rel)
		}
	}

	return nil
}

// Commit creates a new commit with the specified message and returns its SHA.
// If who is zero, author and committer are taken from the git configuration.
func (r *Repo) Commit(ctx context.Context, msg string, who Signature, opts CommitOpts) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if msg == "" {
		return "", WrapError(ErrInvalidOptions, "commit message cannot be empty")
	}

	if !who.IsZero() && (who.Name == "" || who.Email == "") {
		return "", WrapError(ErrInvalidOptions, "committer name and email are required")
	}

	status, err := r.worktree.Status()
	if err != nil {
		return "", WrapError(err, "failed to get worktree status")
	}

	stagedCount := 0
	for _, fileStatus := range status {
		if fileStatus.Staging != git.Untracked && fileStatus.Staging != git.Unmodified {
			stagedCount++
		}
	}

	if stagedCount == 0 && !opts.AllowEmpty {
		return "", WrapError(ErrEmptyCommit, "no changes staged for commit")
	}

	commitOpts := &git.CommitOptions{
		AllowEmptyCommits: opts.AllowEmpty,
	}
	if !who.IsZero() {
		when := who.When
		if when.IsZero() {
			when = time.Now()
		}
		sig := &object.Signature{Name: who.Name, Email: who.Email, When: when}
		commitOpts.Author = sig
		commitOpts.Committer = sig
	}

	hash, err := r.worktree.Commit(msg, commitOpts)
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", ErrEmptyCommit
		}
		return "", WrapError(err, "failed to create commit")
	}

	if r.options.Logger != nil {
		r.options.Logger.Info("created commit", "sha", hash.String(), "message", msg)
	}

	return hash.String(), nil
}

// CommitFile discovers the repository holding path, stages path and commits
// it with msg.
func CommitFile(ctx context.Context, path, msg string, who Signature, opts Options) (string, error) {
	repo, err := Discover(ctx, path, opts)
	if err != nil {
		return "", err
	}

	if err := repo.Add(ctx, path); err != nil {
		return "", err
	}

	return repo.Commit(ctx, msg, who, CommitOpts{})
}
