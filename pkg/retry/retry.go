package retry

import (
	"context"
	"time"
)

// Policy controls Do.
type Policy struct {
	// MaxAttempts counts the first call. Values below 1 mean a single attempt.
	MaxAttempts int
	// Backoff defaults to DefaultBackoff when nil.
	Backoff BackoffStrategy
	// Retryable reports whether err deserves another attempt.
	// A nil Retryable retries every error.
	Retryable func(err error) bool
}

// Do calls fn until it succeeds, returns a non-retryable error or the attempts
// run out. The last error is returned unchanged. If ctx ends while waiting, the
// last error from fn is returned.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)
	backoff := p.Backoff
	if backoff == nil {
		backoff = DefaultBackoff()
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts || (p.Retryable != nil && !p.Retryable(err)) {
			return err
		}
		if !sleep(ctx, backoff.NextInterval(attempt)) {
			return err
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
