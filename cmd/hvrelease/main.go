// Command hvrelease runs the release steps of the validator project:
// preparing the release notes of a version and publishing a finished build.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:               "hvrelease",
	Short:             "Release tooling for Hibernate Validator",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var rootCmdFlags struct {
	verbose bool
	config  string
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"base-dir":          "base_dir",
	"project":           "project",
	"marker":            "marker",
	"user":              "user",
	"dist-target":       "dist.target",
	"docs-target":       "docs.target",
	"stable-target":     "docs.stable_target",
	"ssh-key":           "ssh.key_file",
	"known-hosts":       "ssh.known_hosts",
	"insecure-host-key": "ssh.insecure_ignore_host_key",
	"s3-region":         "s3.region",
	"s3-endpoint":       "s3.endpoint",
	"jira-url":          "jira.url",
	"jira-project":      "jira.project",
	"website-dir":       "website.directory",
	"git-name":          "git.name",
	"git-email":         "git.email",
}

var (
	config *viper.Viper
	logger *slog.Logger
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootCmdFlags.verbose, "verbose", false, "log debug messages")
	rootCmd.PersistentFlags().StringVar(&rootCmdFlags.config, "config", "",
		"configuration file (default ./hvrelease.yaml when present)")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes the command line and returns the process exit status.
func run(args []string, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintf(stderr, "Error: %s\n", oneLine(err))
	if isUsageError(err) {
		return 2
	}
	return 1
}

// usageError marks a command line mistake.
type usageError struct {
	error
}

func (e usageError) Unwrap() error {
	return e.error
}

func isUsageError(err error) bool {
	var uerr usageError
	if errors.As(err, &uerr) {
		return true
	}
	// Returned by cobra before any of our hooks run.
	return strings.HasPrefix(err.Error(), "unknown command")
}

func requiredFlag(name string) error {
	return usageError{fmt.Errorf("required flag %q not set", name)}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("unexpected argument %q for %q", args[0], cmd.CommandPath())}
	}
	return nil
}

func oneLine(err error) string {
	return strings.Join(strings.Fields(err.Error()), " ")
}

// setup loads the configuration and builds the logger before a subcommand runs.
// Precedence is flag, HVRELEASE_* environment variable, configuration file,
// default.
func setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if rootCmdFlags.verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	v, err := loadConfig(cmd.Flags(), rootCmdFlags.config)
	if err != nil {
		return err
	}
	config = v
	return nil
}

func loadConfig(flags *pflag.FlagSet, file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("project", "hibernate-validator")
	v.SetDefault("marker", "hibernate-validator")
	v.SetDefault("base_dir", ".")
	v.SetDefault("jira.url", "https://hibernate.atlassian.net")
	v.SetDefault("jira.project", "HV")
	v.SetDefault("website.directory", "validator")

	v.SetEnvPrefix("HVRELEASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("hvrelease")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}
	return v, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
