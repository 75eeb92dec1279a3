package transfer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(5*time.Second, backoff(0))
	assert.Equal(10*time.Second, backoff(1))
	assert.Equal(40*time.Second, backoff(3))
	assert.Equal(time.Minute, backoff(4))
	assert.Equal(time.Minute, backoff(10))

	for _, attempt := range []int{31, 32, 63, 64, 1000} {
		assert.Equal(time.Minute, backoff(attempt), "attempt %d", attempt)
	}
}

func TestRetry(t *testing.T) {
	defer func(base time.Duration) { BaseDelay = base }(BaseDelay)
	BaseDelay = time.Millisecond

	t.Run("it should run once when attempts is below one", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), 0, func() error { calls++; return errors.New("boom") })

		assert.EqualError(t, err, "boom")
		assert.Equal(t, 1, calls)
	})

	t.Run("it should stop after max attempts", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), 3, func() error { calls++; return errors.New("boom") })

		assert.EqualError(t, err, "failed after 3 attempts: boom")
		assert.Equal(t, 3, calls)
	})

	t.Run("it should not retry a non retryable error", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), 3, func() error {
			calls++
			return fmt.Errorf("bad file: %w", ErrNotRetryable)
		})

		assert.ErrorIs(t, err, ErrNotRetryable)
		assert.Equal(t, 1, calls)
	})

	t.Run("it should stop when the context is cancelled", func(t *testing.T) {
		BaseDelay = time.Hour
		defer func() { BaseDelay = time.Millisecond }()

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0

		err := retry(ctx, 3, func() error {
			calls++
			cancel()
			return errors.New("boom")
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
