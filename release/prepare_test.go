package release

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/fs/billy"
	"github.com/hibernate/hvrelease/git"
	"github.com/hibernate/hvrelease/jira"
	"github.com/hibernate/hvrelease/releasenotes"
)

// mockTracker is a hand-written IssueTracker.
type mockTracker struct {
	ReleaseFunc func(ctx context.Context, name string) (*jira.Version, error)
	IssuesFunc  func(ctx context.Context, version string) ([]jira.Issue, error)

	issueCalls int
}

func (m *mockTracker) Release(ctx context.Context, name string) (*jira.Version, error) {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, name)
	}
	return &jira.Version{Name: name, Released: true, ReleaseDate: "2023-06-26"}, nil
}

func (m *mockTracker) Issues(ctx context.Context, version string) ([]jira.Issue, error) {
	m.issueCalls++
	if m.IssuesFunc != nil {
		return m.IssuesFunc(ctx, version)
	}
	return []jira.Issue{
		{Key: "HV-1901", Type: "Bug", Components: []string{"engine"}, Summary: "Fix NPE"},
		{Key: "HV-1910", Type: "Improvement", Summary: "Faster metadata"},
	}, nil
}

var (
	prepareDay = time.Date(2023, time.June, 26, 9, 0, 0, 0, time.UTC)
	releaseBot = git.Signature{Name: "Hibernate CI", Email: "ci@hibernate.org", When: prepareDay}
)

const changelogHeader = "Hibernate Validator Changelog\n=============================\n\n"

// checkout creates a repository at /work/hv with a committed README and changelog.
func checkout(t *testing.T) *billy.FS {
	t.Helper()
	ctx := context.Background()
	mem := billy.NewMemory()

	repo, err := git.Init(ctx, &git.Options{FS: mem, Workdir: "/work/hv"})
	require.NoError(t, err)
	require.NoError(t, mem.WriteFile("/work/hv/README.md", []byte("# HV\n\nVersion: 8.0.0.Final - 07 Jun 2022\n"), 0o644))
	require.NoError(t, mem.WriteFile("/work/hv/changelog.txt", []byte(changelogHeader+"8.0.0.Final (07-06-2022)\n"), 0o644))
	require.NoError(t, repo.Add(ctx, "README.md", "changelog.txt"))
	_, err = repo.Commit(ctx, "Initial commit", releaseBot, git.CommitOpts{})
	require.NoError(t, err)

	return mem
}

func prepareConfig() PrepareConfig {
	return PrepareConfig{
		Version:        "8.0.1.Final",
		WebsiteRelease: true,
		WebsiteDir:     "validator",
		Readme:         "/work/hv/README.md",
		Changelog:      "/work/hv/changelog.txt",
		Commit:         true,
		Author:         releaseBot,
		Now:            prepareDay,
	}
}

func TestPreparer_Prepare(t *testing.T) {
	mem := checkout(t)
	var out bytes.Buffer

	p, err := NewPreparer(prepareConfig(), mem, &mockTracker{}, &out)
	require.NoError(t, err)

	res, err := p.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "8.0.1.Final", res.Release.Name)
	assert.Len(t, res.Commits, 2)

	readme, err := mem.ReadFile("/work/hv/README.md")
	require.NoError(t, err)
	assert.Equal(t, "# HV\n\nVersion: 8.0.1.Final - 26 Jun 2023\n", string(readme))

	changelog, err := mem.ReadFile("/work/hv/changelog.txt")
	require.NoError(t, err)
	assert.Equal(t, changelogHeader+
		"8.0.1.Final (26-06-2023)\n"+
		"-------------------------\n"+
		"\n** Bug\n"+
		"    * HV-1901 - engine - Fix NPE\n"+
		"\n** Improvement\n"+
		"    * HV-1910 -        - Faster metadata\n"+
		"\n"+
		"8.0.0.Final (07-06-2022)\n", string(changelog))

	printed := out.String()
	assert.Contains(t, printed, "cat <<EOF > _data/projects/validator/releases/8.0.1.Final.yml\n")
	assert.Contains(t, printed, "EOF\n=====\n")

	var website releasenotes.Website
	require.NoError(t, yaml.Unmarshal(res.Website, &website))
	assert.Equal(t, "8.0", website.VersionFamily)
	assert.True(t, website.Stable)

	repo, err := git.Discover(context.Background(), "/work/hv", git.Options{FS: mem})
	require.NoError(t, err)
	clean, err := repo.IsClean()
	require.NoError(t, err)
	assert.True(t, clean, "both updates must be committed")
}

func TestPreparer_StepsAreOptional(t *testing.T) {
	mem := checkout(t)
	tracker := &mockTracker{}
	var out bytes.Buffer

	cfg := prepareConfig()
	cfg.WebsiteRelease = false
	cfg.Changelog = ""
	cfg.Commit = false

	p, err := NewPreparer(cfg, mem, tracker, &out)
	require.NoError(t, err)

	res, err := p.Prepare(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Commits)
	assert.Nil(t, res.Website)
	assert.Empty(t, out.String())
	assert.Zero(t, tracker.issueCalls)

	changelog, err := mem.ReadFile("/work/hv/changelog.txt")
	require.NoError(t, err)
	assert.Equal(t, changelogHeader+"8.0.0.Final (07-06-2022)\n", string(changelog))
}

func TestPreparer_Errors(t *testing.T) {
	t.Run("missing readme is reported before any lookup", func(t *testing.T) {
		called := false
		tracker := &mockTracker{ReleaseFunc: func(context.Context, string) (*jira.Version, error) {
			called = true
			return nil, nil
		}}
		cfg := prepareConfig()
		cfg.Readme = "/work/hv/MISSING.md"

		p, err := NewPreparer(cfg, checkout(t), tracker, nil)
		require.NoError(t, err)

		_, err = p.Prepare(context.Background())
		assert.True(t, hverrors.IsNotFound(err))
		assert.Contains(t, err.Error(), "/work/hv/MISSING.md is not a valid file")
		assert.False(t, called)
	})

	t.Run("unreleased version", func(t *testing.T) {
		mem := checkout(t)
		tracker := &mockTracker{ReleaseFunc: func(_ context.Context, name string) (*jira.Version, error) {
			return nil, hverrors.Newf(hverrors.CodeInvalidConfig, "version %s is not yet released in JIRA", name)
		}}

		p, err := NewPreparer(prepareConfig(), mem, tracker, nil)
		require.NoError(t, err)

		_, err = p.Prepare(context.Background())
		assert.True(t, hverrors.IsInvalidConfig(err))

		readme, err := mem.ReadFile("/work/hv/README.md")
		require.NoError(t, err)
		assert.Contains(t, string(readme), "8.0.0.Final", "files stay untouched")
	})

	t.Run("issue lookup failure", func(t *testing.T) {
		tracker := &mockTracker{IssuesFunc: func(context.Context, string) ([]jira.Issue, error) {
			return nil, hverrors.New(hverrors.CodeNetwork, "JIRA returned 503")
		}}

		p, err := NewPreparer(prepareConfig(), checkout(t), tracker, nil)
		require.NoError(t, err)

		res, err := p.Prepare(context.Background())
		assert.Equal(t, hverrors.CodeNetwork, hverrors.CodeOf(err))
		assert.Len(t, res.Commits, 1, "README was already committed")
	})

	t.Run("not a repository", func(t *testing.T) {
		mem := billy.NewMemory()
		require.NoError(t, mem.WriteFile("/tmp/README.md", []byte("Version: x\n"), 0o644))
		cfg := prepareConfig()
		cfg.Readme = "/tmp/README.md"
		cfg.Changelog = ""

		p, err := NewPreparer(cfg, mem, &mockTracker{}, nil)
		require.NoError(t, err)

		_, err = p.Prepare(context.Background())
		assert.Equal(t, hverrors.CodeExecutionFailed, hverrors.CodeOf(err))
		assert.ErrorIs(t, err, git.ErrNotRepository)
	})
}

func TestPrepareConfig_Validate(t *testing.T) {
	cfg := prepareConfig()
	cfg.Version = ""
	assert.True(t, hverrors.IsInvalidConfig(cfg.Validate()))

	cfg = prepareConfig()
	cfg.Version = "not-a-version"
	assert.True(t, hverrors.IsParseFailed(cfg.Validate()))

	cfg = prepareConfig()
	cfg.WebsiteDir = ""
	assert.True(t, hverrors.IsInvalidConfig(cfg.Validate()))

	_, err := NewPreparer(prepareConfig(), nil, &mockTracker{}, nil)
	assert.Equal(t, hverrors.CodeInvalidInput, hverrors.CodeOf(err))
}
