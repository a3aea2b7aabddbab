package fetch

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a fallible operation is attempted and how
// long to wait between attempts. Delay doubles per failure, clamped to
// [BaseDelay, MaxDelay].
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the source-fetch budget: 3 attempts total,
// waits between 2s and 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// Backoff returns the wait before the next attempt, given how many
// attempts have already failed (1 after the first failure).
func (p RetryPolicy) Backoff(failures int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Do runs op until it succeeds, the attempt budget is exhausted, or ctx is
// done. The last error is returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, sleep func(time.Duration), op func() error) error {
	if sleep == nil {
		sleep = time.Sleep
	}
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt < p.MaxAttempts {
			sleep(p.Backoff(attempt))
		}
	}
	return lastErr
}
