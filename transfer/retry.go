package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	BaseDelay = 5 * time.Second
	MaxDelay  = 1 * time.Minute
)

// backoff doubles BaseDelay per attempt and stops at MaxDelay.
func backoff(attempt int) time.Duration {
	delay := BaseDelay

	for i := 0; i < attempt && delay < MaxDelay; i++ {
		delay *= 2
	}

	return min(delay, MaxDelay)
}

// retry calls fn until it succeeds, returns ErrNotRetryable or maxAttempts is reached.
// maxAttempts below 1 means a single attempt.
func retry(ctx context.Context, maxAttempts int, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := fn()

		if err == nil || errors.Is(err, ErrNotRetryable) {
			return err
		}

		if attempt >= maxAttempts {
			if maxAttempts > 1 {
				return fmt.Errorf("failed after %d attempts: %w", maxAttempts, err)
			}
			return err
		}

		delay := backoff(attempt - 1)
		slog.Info(fmt.Sprintf("retry after %0.f seconds", delay.Seconds()), slog.Any("error", err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", errors.Join(ctx.Err(), err))
		case <-time.After(delay):
		}

		slog.Info("retrying transfer", slog.Int("attempt", attempt+1))
	}
}
