package api

import (
	"context"
	"errors"
	"time"
)

// Retry defaults: a short fixed delay and a small bounded attempt count.
// This helper is the only automatic retry in the client; everything else is
// user-initiated.
const (
	RetryAttempts = 3
	RetryDelay    = 2 * time.Second
)

// Retryable reports whether err is worth retrying: transport-level failures
// are, application errors from the service are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// Retry runs fn up to attempts times with a fixed delay between attempts,
// stopping early on success, a non-retryable error, or context cancellation.
// Non-positive attempts and negative delays fall back to the defaults; a
// zero delay retries immediately.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = RetryAttempts
	}
	if delay < 0 {
		delay = RetryDelay
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = fn(ctx)
		if err == nil || !Retryable(err) {
			return err
		}
	}
	return err
}
