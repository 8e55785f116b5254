// Package releasenotes renders and applies the per-release updates to the
// project's changelog, README and website release file.
package releasenotes

import (
	"bytes"
	stderrors "errors"
	"fmt"
	iofs "io/fs"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/fs"
	"github.com/hibernate/hvrelease/jira"
)

const (
	// ChangelogDateLayout is the date format of changelog headings.
	ChangelogDateLayout = "02-01-2006"

	// ChangelogHeaderLines is the number of leading changelog lines kept
	// above a newly inserted release block.
	ChangelogHeaderLines = 3

	changelogRule = "-------------------------"
)

// Changelog renders the changelog block of a release. Issues are expected to
// be ordered by type; a type heading is written each time the type changes.
func Changelog(version string, date time.Time, issues []jira.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n%s\n", version, date.Format(ChangelogDateLayout), changelogRule)

	components := make([]string, len(issues))
	width := 0
	for i, issue := range issues {
		components[i] = strings.Join(issue.Components, ", ")
		width = max(width, utf8.RuneCountInString(components[i]))
	}

	issueType := ""
	for i, issue := range issues {
		if i == 0 || issue.Type != issueType {
			issueType = issue.Type
			fmt.Fprintf(&b, "\n** %s\n", issueType)
		}
		fmt.Fprintf(&b, "    * %s - %-*s - %s\n", issue.Key, width, components[i], issue.Summary)
	}

	b.WriteString("\n")
	return b.String()
}

// InsertChangelog inserts update into the changelog at path, below its
// first ChangelogHeaderLines lines.
func InsertChangelog(fsys fs.Filesystem, path, update string) error {
	data, mode, err := readExisting(fsys, path)
	if err != nil {
		return err
	}

	offset := 0
	for range ChangelogHeaderLines {
		i := bytes.IndexByte(data[offset:], '\n')
		if i < 0 {
			return hverrors.Newf(hverrors.CodeParseFailed,
				"%s has fewer than %d header lines", path, ChangelogHeaderLines)
		}
		offset += i + 1
	}

	rest := data[offset:]
	var out bytes.Buffer
	out.Grow(len(data) + len(update) + 1)
	out.Write(data[:offset])
	out.WriteString(update)
	out.Write(rest)
	if len(rest) == 0 || rest[len(rest)-1] != '\n' {
		out.WriteByte('\n')
	}

	return writeBack(fsys, path, out.Bytes(), mode)
}

func readExisting(fsys fs.Filesystem, path string) ([]byte, os.FileMode, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if stderrors.Is(err, iofs.ErrNotExist) {
			return nil, 0, hverrors.Newf(hverrors.CodeNotFound, "%s is not a valid file", path)
		}
		return nil, 0, hverrors.WrapWithContext(err, hverrors.CodeInternal,
			"failed to stat file", map[string]interface{}{"path": path})
	}
	if info.IsDir() {
		return nil, 0, hverrors.Newf(hverrors.CodeNotFound, "%s is not a valid file", path)
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, 0, hverrors.WrapWithContext(err, hverrors.CodeInternal,
			"failed to read file", map[string]interface{}{"path": path})
	}
	return data, info.Mode().Perm(), nil
}

func writeBack(fsys fs.Filesystem, path string, data []byte, mode os.FileMode) error {
	if err := fsys.WriteFile(path, data, mode); err != nil {
		return hverrors.WrapWithContext(err, hverrors.CodeInternal,
			"failed to write file", map[string]interface{}{"path": path})
	}
	return nil
}
