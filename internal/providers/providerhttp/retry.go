package providerhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Policy controls retries of a single provider call.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Sleep replaces the real timer, mainly in tests.
	Sleep func(time.Duration)
}

// DefaultPolicy returns three attempts with 1s base and 10s cap.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: defaultRetryAttempts, BaseDelay: defaultRetryBaseDelay, MaxDelay: defaultRetryMaxDelay}
}

// NoRetry runs a call exactly once.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

// RetryableError lets callers flag their own errors as worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so Policy retries it.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx ends.
func Retry[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := max(p.MaxAttempts, 1)
	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
		delay, retry := p.Delay(ctx, err, attempt)
		if !retry {
			if attempt == 1 {
				return zero, err
			}
			return zero, fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
		}
		if err := p.wait(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

// Delay reports whether err deserves another attempt and how long to wait.
// Timeouts, 408, 429 and 5xx responses are retried; a Retry-After header
// wins over exponential backoff.
func (p Policy) Delay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if err == nil || attempt >= max(p.MaxAttempts, 1) {
		return 0, false
	}
	if ctx != nil && ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var marked *RetryableError
	if errors.As(err, &marked) {
		return p.backoff(attempt), true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if !statusErr.Retryable() {
			return 0, false
		}
		if statusErr.RetryAfter > 0 {
			return p.capDelay(statusErr.RetryAfter), true
		}
		return p.backoff(attempt), true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return p.backoff(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return p.backoff(attempt), true
	}
	return 0, false
}

// attempt 1 waits base, attempt 2 base*2, attempt 3 base*4, capped at MaxDelay.
func (p Policy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if limit := p.maxDelay(); delay >= limit {
			return limit
		}
	}
	return p.capDelay(delay)
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay > 0 {
		return p.MaxDelay
	}
	return defaultRetryMaxDelay
}

func (p Policy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	return min(delay, p.maxDelay())
}

func (p Policy) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if p.Sleep != nil {
		p.Sleep(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryableStatus reports whether an HTTP status is worth retrying.
func IsRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
