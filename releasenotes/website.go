package releasenotes

import (
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hibernate/hvrelease/descriptor"
	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/jira"
)

// Placeholder marks website fields that are filled in by hand.
const Placeholder = "<TBD>"

// Website is the release file of the project website.
type Website struct {
	Version         string `yaml:"version"`
	VersionFamily   string `yaml:"version_family"`
	Date            string `yaml:"date"`
	Stable          bool   `yaml:"stable"`
	AnnouncementURL string `yaml:"announcement_url"`
	Summary         string `yaml:"summary"`
	Displayed       bool   `yaml:"displayed"`
}

// MarshalYAML leaves the version family and the date unquoted so that the
// website reads them as a number and a date.
func (w Website) MarshalYAML() (interface{}, error) {
	type plain Website
	var n yaml.Node
	if err := n.Encode(plain(w)); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch n.Content[i].Value {
		case "version_family", "date":
			n.Content[i+1].Tag = ""
			n.Content[i+1].Style = 0
		}
	}
	return &n, nil
}

// NewWebsite builds the website release entry for a released version.
func NewWebsite(v jira.Version) (*Website, error) {
	family, err := descriptor.Family(v.Name)
	if err != nil {
		return nil, err
	}

	summary := v.Description
	if summary == "" {
		summary = Placeholder
	}

	return &Website{
		Version:         v.Name,
		VersionFamily:   family,
		Date:            v.ReleaseDate,
		Stable:          strings.Contains(v.Name, "Final"),
		AnnouncementURL: Placeholder,
		Summary:         summary,
		Displayed:       true,
	}, nil
}

// Marshal renders the release file.
func (w *Website) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(w)
	if err != nil {
		return nil, hverrors.Wrap(err, hverrors.CodeInternal, "failed to encode website release")
	}
	return data, nil
}

// WebsiteRelease renders the website release file for v.
func WebsiteRelease(v jira.Version) ([]byte, error) {
	w, err := NewWebsite(v)
	if err != nil {
		return nil, err
	}
	return w.Marshal()
}

// WebsiteReleasePath is the path of the release file inside the website
// repository.
func WebsiteReleasePath(dir, version string) string {
	return path.Join("_data", "projects", dir, "releases", version+".yml")
}

// Heredoc frames body as a shell command writing it to target.
func Heredoc(target string, body []byte) string {
	var b strings.Builder
	b.WriteString("=====\n")
	b.WriteString("cat <<EOF > " + target + "\n")
	b.Write(body)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString("EOF\n=====\n")
	return b.String()
}
