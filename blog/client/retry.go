package client

import (
	"context"
	"errors"
	"time"
)

// RetryConfig controls how transient failures are retried. Delays grow
// geometrically: InitialDelay, InitialDelay*Multiplier, and so on, capped
// at MaxDelay.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryConfig retries up to three times with a 1s, 2s, 4s backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     30 * time.Second,
	}
}

// Delay returns the wait before the given retry attempt. The first retry is
// attempt 0.
func (c RetryConfig) Delay(attempt int) time.Duration {
	d := c.InitialDelay
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if c.MaxDelay > 0 && d > c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// shouldRetry reports whether another attempt is warranted for err.
func shouldRetry(err error) bool {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr.retryable()
	}
	return false
}
