// Package retry re-runs network operations that fail because the remote
// service is still starting.
package retry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mcpe2e/internal/transport"
)

const (
	// DefaultMaxAttempts is the total number of attempts, including the first.
	DefaultMaxAttempts = 3
	// DefaultDelay is the fixed pause between attempts.
	DefaultDelay = 2 * time.Second
)

// Policy configures retry behavior.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (including the initial attempt).
	// A value of 0 or 1 means no retries.
	MaxAttempts int
	// Delay is the fixed wait between attempts. There is no backoff.
	Delay time.Duration
	// Sleep waits for d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each delay with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the policy used for control-plane and protocol calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
	}
}

// ExhaustedError is returned when all retry attempts have been exhausted.
type ExhaustedError struct {
	// Attempts is the number of attempts made.
	Attempts int
	// LastError is the error from the last attempt.
	LastError error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.LastError)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastError
}

// IsRetryable reports whether err signals a remote service that is not yet
// available. Only 502 Bad Gateway and 503 Service Unavailable qualify; every
// other failure is fatal on first occurrence.
func IsRetryable(err error) bool {
	code, ok := transport.StatusCode(err)
	if !ok {
		return false
	}
	return code == http.StatusBadGateway || code == http.StatusServiceUnavailable
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt bound is reached.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return zero, fmt.Errorf("retry aborted: %w", err)
		}
	}

	return zero, &ExhaustedError{
		Attempts:  maxAttempts,
		LastError: lastErr,
	}
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
