package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/liweiyi88/syncto/config"
	"github.com/liweiyi88/syncto/env"
	"github.com/liweiyi88/syncto/notifier/slack"
	"github.com/liweiyi88/syncto/project"
	"github.com/liweiyi88/syncto/syncer"
	"github.com/liweiyi88/syncto/transfer"
	"github.com/spf13/cobra"
)

const stateDir = ".syncto"

type options struct {
	sync       config.Sync
	configPath string
	s3Region   string
	verbose    bool
}

func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sync-to --user USER --dest DEST --path PATH [--port PORT]",
		Short: "Copy the project src folder and Cargo.toml to a remote server.",
		Long: `Copy the src folder and the Cargo.toml file of the project in the current
directory to a remote server, by default with the scp executable.

The values can also be read from a yaml profile, either .syncto.yaml in the
current directory, a file passed with --config or an s3://bucket/key object.
Flags always take precedence over the profile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := project.Current()
			if err != nil {
				return err
			}

			profile, err := loadProfile(ctx, cmd, p, opts)
			if err != nil {
				return err
			}

			sync := mergeFlags(cmd, profile, &opts.sync)

			if err := sync.Validate(); err != nil {
				return fmt.Errorf("invalid sync configuration, error: %w", err)
			}

			// From here on errors are about the transfer, not about how the command was called.
			cmd.SilenceUsage = true

			return run(ctx, cmd, p, sync)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.sync.User, "user", "u", "", "the remote user (required)")
	flags.StringVarP(&opts.sync.Dest, "dest", "d", "", "the remote ssh server address (required)")
	flags.StringVarP(&opts.sync.Path, "path", "p", "", "the remote path (required)")
	flags.IntVar(&opts.sync.Port, "port", config.DefaultPort, "the remote ssh server port")
	flags.StringVar(&opts.sync.Source, "source", config.DefaultSource, "the source folder to copy, relative to the current directory")
	flags.StringVar(&opts.sync.Manifest, "manifest", config.DefaultManifest, "the manifest file to copy, relative to the current directory")
	flags.StringVar(&opts.sync.Transport, "transport", config.TransportScp, "how files are copied: scp or sftp")
	flags.StringVar(&opts.sync.OnFailure, "on-failure", config.OnFailureAbort, "what to do when a copy fails: abort, continue or ignore")
	flags.StringVar(&opts.sync.ScpBinary, "scp-binary", config.DefaultScp, "the scp executable used by the scp transport")
	// Pass encoded private key content via base64. e.g. MacOS: base64 < ~/.ssh/id_rsa
	// Or just pass the private key filename.
	flags.StringVar(&opts.sync.SshKey, "ssh-key", "", "the base64 encoded ssh private key content, the private key file path or the raw private key, required by sftp")
	flags.StringVar(&opts.sync.KnownHosts, "known-hosts", "", "the known_hosts file used to verify the server by sftp, the host key is not checked if empty")
	flags.IntVar(&opts.sync.MaxAttempts, "max-attempts", 1, "the maximum number of attempts for each copy")
	flags.BoolVar(&opts.sync.Checksum, "checksum", false, "skip files that have already been copied with the same content, sftp only")
	flags.StringVar(&opts.sync.ChecksumFile, "checksum-file", "", "where the checksum state is saved if --checksum=true, default: ./.syncto/checksum.syncto")
	flags.DurationVar(&opts.sync.Every, "every", 0, "keep running and sync again on this interval, e.g. 30s")
	flags.StringVar(&opts.sync.SlackWebhook, "slack-webhook", "", "post the results to a slack incoming webhook, also read from SYNCTO_SLACK_WEBHOOK")
	flags.StringVarP(&opts.configPath, "config", "c", "", "the yaml profile path or s3://bucket/key, default: ./.syncto.yaml if it exists")
	flags.StringVar(&opts.s3Region, "s3-region", "", "the s3 region to read the profile from, overrides AWS_REGION")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "prints additional debug information")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, p *project.Project, sync *config.Sync) error {
	target := transfer.Target{
		User: sync.User,
		Host: sync.Dest,
		Path: sync.Path,
		Port: sync.Port,
	}

	s := syncer.NewSyncer(
		newTransport(p, sync, cmd.ErrOrStderr()),
		target,
		p.Artifacts(sync.Source, sync.Manifest),
		cmd.OutOrStdout(),
		syncer.WithOnFailure(sync.OnFailure),
	)

	if webhook := slackWebhook(sync); webhook != "" {
		syncer.WithNotifier(slack.New(webhook))(s)
	}

	if sync.Every > 0 {
		slog.Info("sync scheduled", slog.String("target", target.String()), slog.Duration("every", sync.Every))

		return syncer.Schedule(ctx, sync.Every, func(ctx context.Context) {
			if _, err := s.Run(ctx); err != nil {
				slog.Error("sync failed", slog.Any("error", err))
			}
		})
	}

	_, err := s.Run(ctx)
	return err
}

func newTransport(p *project.Project, sync *config.Sync, progress io.Writer) transfer.Transport {
	if sync.Transport == config.TransportSftp {
		checksumFile := sync.ChecksumFile
		if checksumFile == "" {
			checksumFile = p.Path(stateDir, "checksum.syncto")
		} else if !filepath.IsAbs(checksumFile) {
			checksumFile = p.Path(checksumFile)
		}

		return transfer.NewSftp(&transfer.SftpConfig{
			Key:          sync.SshKey,
			KnownHosts:   sync.KnownHosts,
			MaxAttempts:  sync.MaxAttempts,
			Checksum:     sync.Checksum,
			ChecksumFile: checksumFile,
			Progress:     progress,
		})
	}

	return transfer.NewScp(sync.ScpBinary, sync.MaxAttempts)
}

func slackWebhook(sync *config.Sync) string {
	if sync.SlackWebhook != "" {
		return sync.SlackWebhook
	}

	return env.New().SlackWebhook()
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
