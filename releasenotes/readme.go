package releasenotes

import (
	"fmt"
	"regexp"
	"time"

	"github.com/hibernate/hvrelease/fs"
)

// ReadmeDateLayout is the date format of the README version line.
const ReadmeDateLayout = "02 Jan 2006"

var versionLine = regexp.MustCompile(`(?m)^Version:.*$`)

// UpdateReadme rewrites every "Version:" line of the README at path to name
// version and date.
func UpdateReadme(fsys fs.Filesystem, path, version string, date time.Time) error {
	data, mode, err := readExisting(fsys, path)
	if err != nil {
		return err
	}

	line := fmt.Sprintf("Version: %s - %s", version, date.Format(ReadmeDateLayout))
	updated := versionLine.ReplaceAllLiteral(data, []byte(line))
	if len(updated) == 0 || updated[len(updated)-1] != '\n' {
		updated = append(updated, '\n')
	}

	return writeBack(fsys, path, updated, mode)
}
