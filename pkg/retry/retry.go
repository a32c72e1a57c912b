// Package retry implements retry policies for store requests.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/futonlabs/couchstream/pkg/couch"
	"github.com/futonlabs/couchstream/pkg/multipart"
)

// Policy controls how many times a request is attempted and how the
// delay between attempts grows.
type Policy struct {
	MaxRetries int
	Interval   time.Duration
	Multiplier float64
}

// DefaultPolicy retries three times with exponential backoff starting
// at one second.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		Interval:   time.Second,
		Multiplier: 2.0,
	}
}

// Delay returns the backoff before the given attempt. Attempts count
// from zero; the first retry waits Interval.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return p.Interval
	}
	delay := float64(p.Interval)
	for i := 0; i < attempt; i++ {
		delay *= p.Multiplier
	}
	return time.Duration(delay)
}

// Retryable reports whether an error is worth retrying. Transport
// failures and server-side errors are transient; malformed responses
// and client-side rejections are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	// Malformed or truncated responses mean the payload itself is
	// bad; repeating the request replays the failure.
	var parseErr *multipart.ParseError
	if errors.As(err, &parseErr) {
		return false
	}
	var truncErr *multipart.TruncatedError
	if errors.As(err, &truncErr) {
		return false
	}
	var statusErr *couch.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Anything else is a transport-level failure.
	return true
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// policy is exhausted. The last error is returned.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) || attempt >= policy.MaxRetries {
			return lastErr
		}
		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
