package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/k0kubun/go-ansi"
	"github.com/liweiyi88/syncto/dialer"
	"github.com/liweiyi88/syncto/filesync"
	"github.com/liweiyi88/syncto/project"
	"github.com/schollz/progressbar/v3"

	sftpclient "github.com/pkg/sftp"
)

type SftpConfig struct {
	Key          string
	KnownHosts   string
	MaxAttempts  int
	Checksum     bool
	ChecksumFile string
	Progress     io.Writer // defaults to an ansi aware stderr
}

// placement is shared by every attempt of one artifact, so a retry writes
// into the same remote root and skips files an earlier attempt finished.
type placement struct {
	remoteRoot string
	done       map[string]bool
}

// Sftp copies artifacts over a native ssh connection without an external binary.
// Files that were fully written are not sent again when a later attempt retries the artifact.
type Sftp struct {
	config   *SftpConfig
	fileSync *filesync.FileSync
}

func NewSftp(config *SftpConfig) *Sftp {
	return &Sftp{
		config:   config,
		fileSync: filesync.NewFileSync(config.Checksum, config.ChecksumFile),
	}
}

func (sf *Sftp) progressWriter() io.Writer {
	if sf.config.Progress != nil {
		return sf.config.Progress
	}

	return ansi.NewAnsiStderr()
}

func (sf *Sftp) createProgressBar(maxBytes int64, name string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(maxBytes,
		progressbar.OptionSetWriter(sf.progressWriter()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(25),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][reset] %s", name)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func (sf *Sftp) Transfer(ctx context.Context, artifact project.Artifact, target Target) error {
	info, err := os.Stat(artifact.LocalPath)
	if err != nil {
		return &TransferError{
			Artifact: artifact.Name,
			Err:      fmt.Errorf("fail to stat %s: %v, %w", artifact.LocalPath, err, ErrNotRetryable),
		}
	}

	if info.IsDir() && !artifact.Recursive {
		return &TransferError{
			Artifact: artifact.Name,
			Err:      fmt.Errorf("%s is a directory: %w", artifact.LocalPath, ErrNotRetryable),
		}
	}

	state := &placement{done: make(map[string]bool)}

	err = retry(ctx, sf.config.MaxAttempts, func() error {
		return sf.write(ctx, artifact, target, state)
	})

	if err != nil {
		return &TransferError{Artifact: artifact.Name, Err: err}
	}

	return nil
}

func (sf *Sftp) write(ctx context.Context, artifact project.Artifact, target Target, state *placement) error {
	conn, err := dialer.NewSsh(target.Host, target.Port, sf.config.Key, target.User, sf.config.KnownHosts).CreateSshClient()
	if err != nil {
		return fmt.Errorf("fail to create ssh connection, error: %v", err)
	}

	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("fail to close ssh connection", slog.Any("error", err))
		}
	}()

	client, err := sftpclient.NewClient(conn)
	if err != nil {
		return fmt.Errorf("fail to start sftp session, error: %v", err)
	}

	defer func() {
		if err := client.Close(); err != nil {
			slog.Debug("fail to close sftp connection", slog.Any("error", err))
		}
	}()

	if state.remoteRoot == "" {
		remoteRoot, err := remoteDestination(client, artifact.LocalPath, target.Path)
		if err != nil {
			return err
		}

		state.remoteRoot = remoteRoot
	}

	return filepath.WalkDir(artifact.LocalPath, func(localPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("fail to walk %s: %v, %w", localPath, walkErr, ErrNotRetryable)
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%v, %w", err, ErrNotRetryable)
		}

		rel, err := filepath.Rel(artifact.LocalPath, localPath)
		if err != nil {
			return fmt.Errorf("%v, %w", err, ErrNotRetryable)
		}

		remotePath := path.Join(state.remoteRoot, filepath.ToSlash(rel))

		if d.IsDir() {
			if err := client.MkdirAll(remotePath); err != nil {
				return fmt.Errorf("fail to create remote directory %s, error: %v", remotePath, err)
			}
			return nil
		}

		if !d.Type().IsRegular() {
			slog.Debug("skip non regular file", slog.String("path", localPath))
			return nil
		}

		if state.done[localPath] {
			return nil
		}

		skipped, err := sf.fileSync.SyncFile(localPath, remotePath, func() error {
			return sf.upload(client, localPath, remotePath)
		})
		if err != nil {
			return err
		}

		if skipped {
			slog.Debug("skip unchanged file", slog.String("path", localPath))
		}

		state.done[localPath] = true
		return nil
	})
}

// remoteDestination mirrors scp: copying into an existing remote directory keeps
// the local base name, otherwise the remote path itself becomes the copy.
func remoteDestination(client *sftpclient.Client, localPath, remotePath string) (string, error) {
	info, err := client.Stat(remotePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return remotePath, nil
		}

		return "", fmt.Errorf("fail to stat remote path %s, error: %v", remotePath, err)
	}

	if info.IsDir() {
		return path.Join(remotePath, filepath.Base(localPath)), nil
	}

	return remotePath, nil
}

func (sf *Sftp) upload(client *sftpclient.Client, localPath, remotePath string) error {
	source, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("fail to open source file: %s, error: %v, %w", localPath, err, ErrNotRetryable)
	}

	defer func() {
		if err := source.Close(); err != nil {
			slog.Error("fail to close source file", slog.Any("error", err))
		}
	}()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("fail to get source file stat, error: %v, %w", err, ErrNotRetryable)
	}

	file, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("fail to create remote file %s via SFTP, error: %v", remotePath, err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Debug("fail to close sftp file", slog.Any("error", err))
		}
	}()

	bar := sf.createProgressBar(info.Size(), filepath.Base(localPath))

	if _, err := io.Copy(io.MultiWriter(file, bar), source); err != nil {
		return fmt.Errorf("fail to write remote file %s, error: %v", remotePath, err)
	}

	if err := file.Chmod(info.Mode().Perm()); err != nil {
		slog.Debug("fail to set remote file mode", slog.String("path", remotePath), slog.Any("error", err))
	}

	return nil
}
