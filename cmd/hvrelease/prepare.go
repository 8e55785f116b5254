package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hibernate/hvrelease/fs/billy"
	"github.com/hibernate/hvrelease/git"
	"github.com/hibernate/hvrelease/jira"
	"github.com/hibernate/hvrelease/release"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Update the release notes of a version before it is built",
	Long: `Prepare checks that the version is released in JIRA and then, as selected,
prints the hibernate.org release file, updates the version line of the README
and prepends the version's issues to the changelog. Each updated file is
committed on its own.`,
	Args: noArgs,
	RunE: runPrepare,
}

var prepareCmdFlags struct {
	version   string
	website   bool
	readme    string
	changelog string
	noCommit  bool
}

func init() {
	rootCmd.AddCommand(prepareCmd)

	f := prepareCmd.Flags()
	f.StringVarP(&prepareCmdFlags.version, "release-version", "v", "", "the release version to process (required)")
	f.BoolVarP(&prepareCmdFlags.website, "create-website-release-template", "w", false,
		"print the hibernate.org release file of the version")
	f.StringVarP(&prepareCmdFlags.readme, "update-readme", "r", "", "README whose version line is updated")
	f.StringVarP(&prepareCmdFlags.changelog, "update-change-log", "c", "", "changelog the release notes are prepended to")
	f.BoolVar(&prepareCmdFlags.noCommit, "no-commit", false, "leave the updated files uncommitted")
	f.String("jira-url", "", "JIRA instance (default \"https://hibernate.atlassian.net\")")
	f.String("jira-project", "", "JIRA project key (default \"HV\")")
	f.String("website-dir", "", "project directory on hibernate.org (default \"validator\")")
	f.String("git-name", "", "commit author name (default from git configuration)")
	f.String("git-email", "", "commit author email (default from git configuration)")
}

func runPrepare(cmd *cobra.Command, _ []string) error {
	cfg, err := prepareConfig()
	if err != nil {
		return err
	}

	tracker, err := jira.New(config.GetString("jira.url"), config.GetString("jira.project"), jira.WithLogger(logger))
	if err != nil {
		return err
	}

	preparer, err := release.NewPreparer(cfg, billy.NewHost(), tracker, cmd.OutOrStdout(), release.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := setupSignalHandler()
	defer cancel()

	res, err := preparer.Prepare(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare release %s: %w", cfg.Version, err)
	}

	if logger != nil {
		logger.Info("prepared release", "version", res.Release.Name, "commits", len(res.Commits))
	}
	return nil
}

func prepareConfig() (release.PrepareConfig, error) {
	if prepareCmdFlags.version == "" {
		return release.PrepareConfig{}, requiredFlag("release-version")
	}

	cfg := release.PrepareConfig{
		Version:        prepareCmdFlags.version,
		WebsiteRelease: prepareCmdFlags.website,
		WebsiteDir:     config.GetString("website.directory"),
		Commit:         !prepareCmdFlags.noCommit,
		Author: git.Signature{
			Name:  config.GetString("git.name"),
			Email: config.GetString("git.email"),
		},
	}

	var err error
	if cfg.Readme, err = absPath(prepareCmdFlags.readme); err != nil {
		return release.PrepareConfig{}, err
	}
	if cfg.Changelog, err = absPath(prepareCmdFlags.changelog); err != nil {
		return release.PrepareConfig{}, err
	}
	return cfg, nil
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return abs, nil
}
