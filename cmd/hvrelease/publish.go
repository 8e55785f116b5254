package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hibernate/hvrelease/confirm"
	"github.com/hibernate/hvrelease/fs/billy"
	"github.com/hibernate/hvrelease/release"
	"github.com/hibernate/hvrelease/remote"
	"github.com/hibernate/hvrelease/remote/s3"
	"github.com/hibernate/hvrelease/remote/sftp"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the distribution bundles and documentation of a finished build",
	Long: `Publish validates the build output in the distribution module, then uploads
the bundles into a new release directory and replaces the published
documentation of the version. Every remote change is confirmed first.

Targets look like user@host:/path, sftp://user@host:port/path or s3://bucket/prefix.`,
	Args: noArgs,
	RunE: runPublish,
}

var publishCmdFlags struct {
	dist   bool
	docs   bool
	stable bool
	yes    bool
}

func init() {
	rootCmd.AddCommand(publishCmd)

	f := publishCmd.Flags()
	f.StringP("user", "u", "", "upload identity for targets that name none (required)")
	f.String("base-dir", "", "distribution module directory holding pom.xml (default \".\")")
	f.String("project", "", "distribution name prefix (default \"hibernate-validator\")")
	f.String("marker", "", "text the artifactId must contain (default \"hibernate-validator\")")
	f.String("dist-target", "", "remote directory receiving the release directories")
	f.String("docs-target", "", "remote directory receiving the documentation")
	f.String("stable-target", "", "remote directory receiving the stable documentation")
	f.String("ssh-key", "", "private key used in addition to the ssh agent")
	f.String("known-hosts", "", "known_hosts file verifying SFTP hosts")
	f.Bool("insecure-host-key", false, "skip SFTP host key verification")
	f.String("s3-region", "", "region of S3 targets")
	f.String("s3-endpoint", "", "custom S3 endpoint")
	f.BoolVar(&publishCmdFlags.dist, "dist", false, "upload the distribution bundles")
	f.BoolVar(&publishCmdFlags.docs, "docs", false, "mirror the documentation")
	f.BoolVar(&publishCmdFlags.stable, "stable", false, "also mirror the documentation to the stable target")
	f.BoolVar(&publishCmdFlags.yes, "yes", false, "confirm every remote change without asking")
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := publishConfig()
	if err != nil {
		return err
	}

	ctx, cancel := setupSignalHandler()
	defer cancel()

	dialer, err := newDialer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up transports: %w", err)
	}

	var confirmer confirm.Confirmer = confirm.NewPrompt(cmd.InOrStdin(), cmd.OutOrStdout())
	if publishCmdFlags.yes {
		confirmer = confirm.Always{}
	}

	publisher, err := release.NewPublisher(cfg, billy.NewHost(), dialer,
		release.WithLogger(logger),
		release.WithConfirmer(confirmer),
		release.WithProgress(remote.NewLogProgress(logger)),
	)
	if err != nil {
		return err
	}

	res, err := publisher.Publish(ctx)
	if err != nil {
		return fmt.Errorf("failed to publish release: %w", err)
	}

	out := cmd.OutOrStdout()
	if res.ReleaseDir != "" {
		fmt.Fprintf(out, "Uploaded %d files of %s to %s\n", len(res.Artifacts), res.Descriptor.Version, res.ReleaseDir)
	}
	for _, dir := range res.Mirrors {
		fmt.Fprintf(out, "Published documentation to %s\n", dir)
	}
	return nil
}

func publishConfig() (release.PublishConfig, error) {
	user := config.GetString("user")
	if user == "" {
		return release.PublishConfig{}, requiredFlag("user")
	}

	baseDir, err := filepath.Abs(config.GetString("base_dir"))
	if err != nil {
		return release.PublishConfig{}, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	cfg := release.PublishConfig{
		BaseDir: baseDir,
		Project: config.GetString("project"),
		Marker:  config.GetString("marker"),
		User:    user,
		Dist:    publishCmdFlags.dist,
		Docs:    publishCmdFlags.docs,
		Stable:  publishCmdFlags.stable,
	}

	targets := []struct {
		key string
		dst *remote.Target
	}{
		{key: "dist.target", dst: &cfg.DistTarget},
		{key: "docs.target", dst: &cfg.DocsTarget},
		{key: "docs.stable_target", dst: &cfg.StableTarget},
	}
	for _, t := range targets {
		raw := config.GetString(t.key)
		if raw == "" {
			continue
		}
		if *t.dst, err = remote.ParseTarget(raw); err != nil {
			return release.PublishConfig{}, err
		}
	}

	return cfg, cfg.Validate()
}

// newDialer builds a transport for every scheme the configured targets use.
func newDialer(ctx context.Context, cfg release.PublishConfig) (remote.SchemeDialer, error) {
	dialer := remote.SchemeDialer{}
	for _, t := range []remote.Target{cfg.DistTarget, cfg.DocsTarget, cfg.StableTarget} {
		if t.Host == "" {
			continue
		}
		if _, ok := dialer[t.Scheme]; ok {
			continue
		}

		switch t.Scheme {
		case remote.SchemeSFTP:
			d, err := sftp.NewDialer(sftp.Config{
				KeyFile:               config.GetString("ssh.key_file"),
				KnownHostsFile:        config.GetString("ssh.known_hosts"),
				InsecureIgnoreHostKey: config.GetBool("ssh.insecure_ignore_host_key"),
				Timeout:               config.GetDuration("ssh.timeout"),
			}, sftp.WithLogger(logger))
			if err != nil {
				return nil, err
			}
			dialer[remote.SchemeSFTP] = d
		case remote.SchemeS3:
			d, err := s3.NewDialer(ctx,
				s3.WithLogger(logger),
				s3.WithRegion(config.GetString("s3.region")),
				s3.WithEndpoint(config.GetString("s3.endpoint")),
			)
			if err != nil {
				return nil, err
			}
			dialer[remote.SchemeS3] = d
		}
	}
	return dialer, nil
}
