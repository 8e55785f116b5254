// Package git is a small facade over go-git for committing release metadata.
//
// The release tooling edits files such as README.md and changelog.txt inside
// a checkout and records each edit as its own commit. Repositories are opened
// through the tool's native filesystem abstraction, so the same code runs
// against the working copy on disk and against an in-memory repository in
// tests.
//
// # Basic Usage
//
//	opts := git.Options{FS: billy.NewHost()}
//
//	// Find the repository that contains a file and commit it
//	sha, err := git.CommitFile(ctx, "/work/hibernate-validator/README.md",
//	    "[Jenkins release job] README.md updated by release build 8.0.1.Final",
//	    git.Signature{Name: "Hibernate CI", Email: "ci@hibernate.org"}, opts)
//
// Or drive the steps explicitly:
//
//	repo, err := git.Discover(ctx, "/work/hibernate-validator", opts)
//	err = repo.Add(ctx, "README.md")
//	sha, err := repo.Commit(ctx, "message", who, git.CommitOpts{})
//
// # Error Handling
//
// Errors wrap the sentinels declared in this package (ErrNotRepository,
// ErrEmptyCommit, ...) and can be matched with errors.Is.
package git
