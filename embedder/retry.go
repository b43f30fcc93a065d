package embedder

import (
	"math/rand/v2"
	"time"

	"context"
)

// Do runs fn up to attempts times, sleeping between tries with exponential
// backoff plus jitter, capped at max. Errors fn reports as non-transient
// stop the loop immediately; the last error is returned once the schedule
// is exhausted. Cancelling ctx interrupts the wait.
func Do(ctx context.Context, attempts int, base, max time.Duration, transient func(error) bool, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	if base < 1 {
		base = time.Second
	}
	if max < base {
		max = base
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := base << (attempt - 1)
			if backoff > max {
				backoff = max
			}

			// jitter to avoid lockstep retries against a rate-limited service
			delay := backoff + time.Duration(rand.Int64N(int64(backoff/2+1)))
			if delay > max {
				delay = max
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := fn(); err != nil {
			lastErr = err
			if transient != nil && !transient(err) {
				return err
			}
			continue
		}

		return nil
	}

	return lastErr
}
