package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/liweiyi88/syncto/config"
	"github.com/liweiyi88/syncto/env"
	"github.com/liweiyi88/syncto/project"
	"github.com/liweiyi88/syncto/storage/s3"
	"github.com/spf13/cobra"
)

// loadProfile reads the yaml profile. Without --config the default profile in
// the project root is used when it exists.
func loadProfile(ctx context.Context, cmd *cobra.Command, p *project.Project, opts *options) (*config.Sync, error) {
	path := opts.configPath

	if !cmd.Flags().Changed("config") {
		path = p.Path(config.DefaultProfile)

		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return &config.Sync{}, nil
		}
	}

	content, err := getConfigContent(ctx, path, opts.s3Region)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync profile from %s, error: %v", path, err)
	}

	slog.Debug("loaded sync profile", slog.String("path", path))

	return config.ParseProfile(content)
}

func getConfigContent(ctx context.Context, path, region string) ([]byte, error) {
	bucket, key, ok, err := s3.ParsePath(path)
	if err != nil {
		return nil, err
	}

	if !ok {
		return os.ReadFile(path)
	}

	// Fall back to the default aws credential chain when the variables are not all set.
	credentials, err := env.New().AWSCredentials()
	if err != nil {
		slog.Debug("use the default aws credential chain", slog.Any("reason", err))
		credentials = env.AWSCredentials{}
	}

	if region != "" {
		credentials.Region = region
	}

	return s3.NewS3(
		bucket,
		key,
		credentials.Region,
		credentials.AccessKeyID,
		credentials.SecretAccessKey,
		credentials.SessionToken).GetContent(ctx)
}

// mergeFlags fills the profile defaults and layers the explicitly set flags on top.
func mergeFlags(cmd *cobra.Command, profile *config.Sync, flagValues *config.Sync) *config.Sync {
	merged := *profile
	merged.ApplyDefaults()

	flags := cmd.Flags()

	overrides := map[string]func(){
		"user":          func() { merged.User = flagValues.User },
		"dest":          func() { merged.Dest = flagValues.Dest },
		"path":          func() { merged.Path = flagValues.Path },
		"port":          func() { merged.Port = flagValues.Port },
		"source":        func() { merged.Source = flagValues.Source },
		"manifest":      func() { merged.Manifest = flagValues.Manifest },
		"transport":     func() { merged.Transport = flagValues.Transport },
		"on-failure":    func() { merged.OnFailure = flagValues.OnFailure },
		"scp-binary":    func() { merged.ScpBinary = flagValues.ScpBinary },
		"ssh-key":       func() { merged.SshKey = flagValues.SshKey },
		"known-hosts":   func() { merged.KnownHosts = flagValues.KnownHosts },
		"max-attempts":  func() { merged.MaxAttempts = flagValues.MaxAttempts },
		"checksum":      func() { merged.Checksum = flagValues.Checksum },
		"checksum-file": func() { merged.ChecksumFile = flagValues.ChecksumFile },
		"every":         func() { merged.Every = flagValues.Every },
		"slack-webhook": func() { merged.SlackWebhook = flagValues.SlackWebhook },
	}

	for name, override := range overrides {
		if flags.Changed(name) {
			override()
		}
	}

	return &merged
}
