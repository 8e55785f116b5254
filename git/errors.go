package git

import (
	"errors"
	"fmt"
)

// Sentinel errors that can be checked with errors.Is().

// ErrInvalidOptions is returned when Options or call arguments are missing
// or malformed.
var ErrInvalidOptions = errors.New("invalid options")

// ErrNotRepository is returned when no repository can be found for a path.
var ErrNotRepository = errors.New("not a git repository")

// ErrEmptyCommit is returned when a commit would record no changes and empty
// commits were not allowed.
var ErrEmptyCommit = errors.New("nothing to commit")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
