package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibernate/hvrelease/fs/billy"
	"github.com/hibernate/hvrelease/git"
)

// resetFlags restores every flag to its default between runs of the
// package-level command tree.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	var walk func(*cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	resetFlags(t)
	t.Cleanup(func() { resetFlags(t) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	code := run(args, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_UsageErrors(t *testing.T) {
	t.Setenv("HVRELEASE_USER", "")

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "unknown flag", args: []string{"publish", "--bogus"}, wantMsg: "unknown flag: --bogus"},
		{name: "missing user", args: []string{"publish"}, wantMsg: `required flag "user" not set`},
		{name: "missing version", args: []string{"prepare"}, wantMsg: `required flag "release-version" not set`},
		{name: "extra argument", args: []string{"prepare", "-v", "8.0.1.Final", "extra"}, wantMsg: `unexpected argument "extra"`},
		{name: "unknown command", args: []string{"deploy"}, wantMsg: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := execute(t, tt.args...)
			assert.Equal(t, 2, code)
			assert.Contains(t, stderr, tt.wantMsg)
		})
	}
}

func TestRun_Failures(t *testing.T) {
	t.Run("invalid version", func(t *testing.T) {
		code, _, stderr := execute(t, "prepare", "-v", "not-a-version")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "not-a-version")
	})

	t.Run("missing configuration file", func(t *testing.T) {
		code, _, stderr := execute(t, "publish", "-u", "hvuser", "--config", filepath.Join(t.TempDir(), "none.yaml"))
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "failed to read configuration")
	})

	t.Run("publish without a build", func(t *testing.T) {
		dir := t.TempDir()
		cfgFile := filepath.Join(dir, "hvrelease.yaml")
		require.NoError(t, os.WriteFile(cfgFile, []byte(strings.Join([]string{
			"base_dir: " + dir,
			"docs:",
			"  target: docs.example.org:/docs/validator",
			"ssh:",
			"  insecure_ignore_host_key: true",
		}, "\n")), 0o644))

		code, stdout, stderr := execute(t, "publish", "-u", "hvuser", "--docs", "--config", cfgFile)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "pom.xml")
		assert.Empty(t, stdout, "nothing is asked before the build is validated")
		assert.Equal(t, 1, strings.Count(stderr, "Error:"))
	})
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "hvrelease.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("project: from-file\nmarker: from-file\njira:\n  project: FILE\n"), 0o644))
	t.Setenv("HVRELEASE_MARKER", "from-env")
	t.Setenv("HVRELEASE_JIRA_PROJECT", "ENV")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("jira-project", "", "")
	require.NoError(t, flags.Parse([]string{"--jira-project", "FLAG"}))

	v, err := loadConfig(flags, cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "FLAG", v.GetString("jira.project"))
	assert.Equal(t, "from-env", v.GetString("marker"))
	assert.Equal(t, "from-file", v.GetString("project"))
	assert.Equal(t, "validator", v.GetString("website.directory"))
	assert.Equal(t, ".", v.GetString("base_dir"))
	assert.Zero(t, v.GetDuration("ssh.timeout"), "connections are not bounded unless configured")
}

const jiraVersions = `[{"id":"1","name":"8.0.1.Final","released":true,"releaseDate":"2023-06-26"}]`

const jiraIssues = `{"startAt":0,"maxResults":100,"total":1,"issues":[
  {"key":"HV-1901","fields":{"issuetype":{"name":"Bug"},"components":[{"name":"engine"}],"summary":"Fix NPE"}}
]}`

func TestRun_Prepare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/versions") {
			_, _ = w.Write([]byte(jiraVersions))
			return
		}
		_, _ = w.Write([]byte(jiraIssues))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	osfs := billy.NewHost()
	repo, err := git.Init(context.Background(), &git.Options{FS: osfs, Workdir: dir})
	require.NoError(t, err)

	readme := filepath.Join(dir, "README.md")
	changelog := filepath.Join(dir, "changelog.txt")
	require.NoError(t, os.WriteFile(readme, []byte("Version: 8.0.0.Final - 07 Jun 2022\n"), 0o644))
	require.NoError(t, os.WriteFile(changelog, []byte("Changelog\n=========\n\n"), 0o644))
	require.NoError(t, repo.Add(context.Background(), readme, changelog))
	_, err = repo.Commit(context.Background(), "Initial commit",
		git.Signature{Name: "Hibernate CI", Email: "ci@hibernate.org"}, git.CommitOpts{})
	require.NoError(t, err)

	code, stdout, stderr := execute(t, "prepare", "-v", "8.0.1.Final", "-w",
		"-r", readme, "-c", changelog,
		"--jira-url", srv.URL,
		"--git-name", "Hibernate CI", "--git-email", "ci@hibernate.org")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "cat <<EOF > _data/projects/validator/releases/8.0.1.Final.yml")

	data, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Version: 8.0.1.Final - "))

	data, err = os.ReadFile(changelog)
	require.NoError(t, err)
	assert.Contains(t, string(data), "    * HV-1901 - engine - Fix NPE\n")

	clean, err := repo.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)
}
