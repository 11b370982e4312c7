package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy drives the generation gateway's retry loop. It is a plain
// value so tests can swap the sleep function and abort predicate for fakes.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, including the first call.
	MaxAttempts int

	// Backoff returns the wait before the next attempt, given the attempt
	// number that just failed (1-based).
	Backoff func(attempt int) time.Duration

	// Abort reports whether retrying should stop early for this error class
	// after the given attempt. Connectivity failures abort after 2 attempts:
	// hammering an unreachable endpoint wastes the whole budget for nothing.
	Abort func(err error, attempt int) bool

	// Sleep waits out the backoff. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy is the gateway's standard policy: 3 attempts, linear
// 1s-per-attempt backoff, early abort on connectivity failure.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
		Abort: func(err error, attempt int) bool {
			return errors.Is(err, ErrConnectivity) && attempt >= 2
		},
		Sleep: sleepContext,
	}
}

// WithMaxAttempts returns a copy of the policy with a different budget.
func (p RetryPolicy) WithMaxAttempts(maxAttempts int) RetryPolicy {
	p.MaxAttempts = maxAttempts
	return p
}

// Do runs op until it succeeds, the budget runs out, or the abort predicate
// fires. Authentication failures never retry: new attempts cannot fix bad
// credentials. The returned error wraps both ErrRetryExhausted and the last
// underlying failure so callers can classify with errors.Is.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if errors.Is(lastErr, ErrAuthentication) {
			return lastErr
		}
		if p.Abort != nil && p.Abort(lastErr, attempt) {
			break
		}
		if attempt == maxAttempts {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if wait > 0 {
			sleep := p.Sleep
			if sleep == nil {
				sleep = sleepContext
			}
			if err := sleep(ctx, wait); err != nil {
				return fmt.Errorf("%w: %w", ErrRetryExhausted, err)
			}
		}
	}

	return fmt.Errorf("%w: %w", ErrRetryExhausted, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
