package common

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimit indicates that the backend rejected a request with 429.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryOptions configures how backend requests are retried.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions returns the retry policy used for backend requests.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

func (o RetryOptions) normalized() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2.0
	}
	return o
}

// backoff is the wait before retry number attempt (1-based), capped at MaxDelay.
func (o RetryOptions) backoff(attempt int) time.Duration {
	d := float64(o.InitialDelay)
	for range attempt - 1 {
		d *= o.Multiplier
		if d >= float64(o.MaxDelay) {
			return o.MaxDelay
		}
	}
	return time.Duration(d)
}

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a rate limit, server error or timeout, or is
// explicitly marked retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}

// RetryDelayer is implemented by errors that carry a server-requested wait,
// such as a Retry-After header.
type RetryDelayer interface {
	RetryDelay() time.Duration
}

// delayFor picks the wait after err: the server's request when it gave one, the
// longest wait for an unannotated rate limit, else exponential backoff.
func (o RetryOptions) delayFor(err error, attempt int) time.Duration {
	var d RetryDelayer
	if errors.As(err, &d) && d.RetryDelay() > 0 {
		return min(d.RetryDelay(), o.MaxDelay)
	}
	if errors.Is(err, ErrRateLimit) {
		return o.MaxDelay
	}
	return o.backoff(attempt)
}

// WithRetry runs operation until it succeeds or attempts run out. Errors marked
// not retryable, and context cancellation, are returned immediately; exhausting
// the attempts wraps the last error in ErrMaxRetries.
func WithRetry(ctx context.Context, operation func() error, opts RetryOptions) error {
	opts = opts.normalized()
	logger := Logger(ctx)

	var err error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		var re *RetryableError
		if errors.As(err, &re) && !re.Retryable {
			return err
		}
		if attempt == opts.MaxAttempts {
			break
		}

		delay := opts.delayFor(err, attempt)
		logger.Warn("Backend request failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, err)
}
