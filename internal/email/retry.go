package email

import (
	"context"
	"errors"
	"time"
)

// retryFixed calls fn up to attempts times, sleeping delay between tries.
// It stops early on success, on a permanent error or when ctx is done, and
// returns the number of attempts made.
func retryFixed(ctx context.Context, attempts int, delay time.Duration, fn func(attempt int) error) (int, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return attempt, perm.Unwrap()
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return attempt, errors.Join(lastErr, ctx.Err())
		}
	}
	return attempts, lastErr
}
