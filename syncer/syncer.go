package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/liweiyi88/syncto/config"
	"github.com/liweiyi88/syncto/project"
	"github.com/liweiyi88/syncto/result"
	"github.com/liweiyi88/syncto/transfer"
)

type Notifier interface {
	Notify(ctx context.Context, results []*result.Result) error
}

type Syncer struct {
	transport transfer.Transport
	target    transfer.Target
	artifacts []project.Artifact
	onFailure string
	out       io.Writer
	notifier  Notifier
}

type Option func(s *Syncer)

func WithNotifier(notifier Notifier) Option {
	return func(s *Syncer) {
		s.notifier = notifier
	}
}

func WithOnFailure(policy string) Option {
	return func(s *Syncer) {
		s.onFailure = policy
	}
}

func NewSyncer(transport transfer.Transport, target transfer.Target, artifacts []project.Artifact, out io.Writer, opts ...Option) *Syncer {
	s := &Syncer{
		transport: transport,
		target:    target,
		artifacts: artifacts,
		onFailure: config.OnFailureAbort,
		out:       out,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Syncer) confirm(artifact project.Artifact) {
	fmt.Fprintf(s.out, "Copied %s to %s\n", artifact.Name, s.target.Host)
}

// Run copies the artifacts one after another and prints a confirmation for each
// successful copy. With the ignore policy every artifact is confirmed and no error is returned.
func (s *Syncer) Run(ctx context.Context) ([]*result.Result, error) {
	results := make([]*result.Result, 0, len(s.artifacts))

	var errs error

	for _, artifact := range s.artifacts {
		start := time.Now()
		err := s.transport.Transfer(ctx, artifact, s.target)

		results = append(results, &result.Result{
			Error:    err,
			Artifact: artifact.Name,
			Dest:     s.target.Host,
			Elapsed:  time.Since(start),
		})

		if err == nil {
			s.confirm(artifact)
			continue
		}

		if s.onFailure == config.OnFailureIgnore {
			slog.Debug("ignore failed transfer", slog.String("artifact", artifact.Name), slog.Any("error", err))
			s.confirm(artifact)
			continue
		}

		errs = errors.Join(errs, err)

		if s.onFailure != config.OnFailureContinue {
			break
		}

		slog.Error("transfer failed, continue with the next artifact", slog.String("artifact", artifact.Name), slog.Any("error", err))
	}

	for _, r := range results {
		slog.Debug("sync result", slog.String("result", r.String()))
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, results); err != nil {
			slog.Error("fail to send sync notification", slog.Any("error", err))
		}
	}

	return results, errs
}
