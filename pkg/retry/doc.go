// Package retry runs an operation again after transient failures.
//
// A Policy bounds the number of attempts, picks the wait between them and
// decides which errors are worth another attempt:
//
//	err := retry.Do(ctx, retry.Policy{
//		MaxAttempts: 2,
//		Backoff:     retry.DefaultBackoff(),
//		Retryable:   func(err error) bool { return errors.Is(err, ErrUnavailable) },
//	}, func(attempt int) error {
//		return call(ctx)
//	})
//
// The callback receives the 1-based attempt number. Waiting honours ctx.
package retry
