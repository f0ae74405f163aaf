// Package retry provides exponential-backoff retries for transient cloud
// API failures. Provisioning-script failures are never retried; wrap those
// with Permanent.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy holds retry configuration
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Option customizes the retry policy
type Option func(*Policy)

// Attempts sets the total number of attempts (including the first)
func Attempts(n int) Option {
	return func(p *Policy) { p.Attempts = n }
}

// InitialDelay sets the delay before the second attempt
func InitialDelay(d time.Duration) Option {
	return func(p *Policy) { p.InitialDelay = d }
}

// MaxDelay caps the backoff delay
func MaxDelay(d time.Duration) Option {
	return func(p *Policy) { p.MaxDelay = d }
}

// Do runs op until it succeeds, a permanent error is returned, the policy
// is exhausted, or the context is cancelled.
func Do(ctx context.Context, op func() error, opts ...Option) error {
	p := Policy{
		Attempts:     5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	for _, opt := range opts {
		opt(&p)
	}

	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if IsPermanent(lastErr) {
			return lastErr
		}

		if attempt == p.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", p.Attempts, lastErr)
}

// permanentError marks an error as non-retryable
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do stops retrying when it sees it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
