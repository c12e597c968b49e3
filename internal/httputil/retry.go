// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the feed client, the
// download worker, and the notification sinks.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s from %s", e.Code, http.StatusText(e.Code), e.URL)
}

// CheckStatus returns a *StatusError when code is outside 2xx.
func CheckStatus(code int, url string) error {
	if code < 200 || code > 299 {
		return &StatusError{Code: code, URL: url}
	}
	return nil
}

// IsTransient reports whether err is worth retrying: a non-2xx status, or
// a network-level failure such as a refused connection or timeout.
// Cancellation is never transient. An expired caller deadline ends the
// retry loop on its own, at the next backoff wait.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// Policy parameterizes Retry. MaxAttempts counts the first call; values
// below 1 mean a single attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps a single backoff wait; zero means no cap.
	MaxDelay time.Duration
	// Retryable decides whether an error is retried. Nil retries nothing.
	Retryable func(error) bool
	// OnRetry, when set, is called before each backoff wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Backoff returns the wait after the given zero-based attempt:
// BaseDelay * 2^attempt, capped at MaxDelay.
func (p Policy) Backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * p.BaseDelay
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retry calls op until it succeeds, returns a non-retryable error, or the
// attempt ceiling is reached. The last error is returned wrapped with the
// attempt count. If ctx is cancelled during a backoff wait, ctx.Err() is
// returned.
func Retry(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = op(ctx, attempt)
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
