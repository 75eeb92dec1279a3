package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/liweiyi88/syncto/project"
	"github.com/liweiyi88/syncto/runner"
)

type CommandRunner interface {
	Run(ctx context.Context) (*runner.Result, error)
}

// Scp copies artifacts by running the external scp executable.
type Scp struct {
	Binary      string
	MaxAttempts int
	newRunner   func(command string, args []string) CommandRunner
}

func NewScp(binary string, maxAttempts int) *Scp {
	return &Scp{
		Binary:      binary,
		MaxAttempts: maxAttempts,
		newRunner: func(command string, args []string) CommandRunner {
			return runner.NewExecRunner(command, args, nil)
		},
	}
}

// Args builds: -P <port> [-r] <local> <user>@<host>:<path>
func (s *Scp) Args(artifact project.Artifact, target Target) []string {
	args := []string{"-P", strconv.Itoa(target.Port)}

	if artifact.Recursive {
		args = append(args, "-r")
	}

	return append(args, artifact.LocalPath, target.String())
}

func (s *Scp) Transfer(ctx context.Context, artifact project.Artifact, target Target) error {
	if _, err := os.Stat(artifact.LocalPath); err != nil {
		return &TransferError{
			Artifact: artifact.Name,
			Err:      fmt.Errorf("fail to stat %s: %v, %w", artifact.LocalPath, err, ErrNotRetryable),
		}
	}

	args := s.Args(artifact, target)

	var result *runner.Result
	err := retry(ctx, s.MaxAttempts, func() error {
		var runErr error

		slog.Debug("running scp", slog.String("binary", s.Binary), slog.Any("args", args))
		result, runErr = s.newRunner(s.Binary, args).Run(ctx)

		if result != nil {
			slog.Debug("scp finished", slog.Int("exit", result.ExitCode), slog.String("stdout", result.Stdout), slog.String("stderr", result.Stderr))
		}

		return runErr
	})

	if err != nil {
		transferErr := &TransferError{Artifact: artifact.Name, Err: err}
		if result != nil {
			transferErr.Stderr = result.Stderr
		}

		return transferErr
	}

	return nil
}
