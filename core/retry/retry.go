// Package retry runs an operation under a bounded exponential-backoff policy.
//
// With the default policy an operation is attempted at most three times,
// waiting 1s then 2s between attempts. Only transient failures are retried:
// network errors, timeouts, 5xx responses and 429. Any other error, and
// cancellation of the context, is returned immediately. When every attempt
// fails the last error is returned unchanged.
package retry

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/woodman33/llmbridge/internal/transport"
	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/observability"
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
	DefaultMultiplier   = 2.0
)

// SleepFunc waits for d or until ctx is done, returning ctx.Err() in the latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy tunes the retry loop. Zero-valued fields fall back to the defaults.
type Policy struct {
	// MaxAttempts counts the first call. 1 disables retries.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	Multiplier float64

	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration

	// Retryable decides whether an error is worth another attempt.
	Retryable func(error) bool

	// Sleep replaces the real wait, mostly for tests.
	Sleep SleepFunc
}

// DefaultPolicy returns 3 attempts, 1s initial delay, ×2 backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		Multiplier:   DefaultMultiplier,
		Retryable:    IsRetryable,
		Sleep:        Sleep,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultMultiplier
	}
	if p.Retryable == nil {
		p.Retryable = IsRetryable
	}
	if p.Sleep == nil {
		p.Sleep = Sleep
	}
	return p
}

// Delay returns the wait before attempt number attempt+1, where attempt is
// the 1-based number of the attempt that just failed.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// Do calls op until it succeeds, returns a non-retryable error, or the
// attempts run out. The context is checked before every attempt and during
// every wait.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()
	observer := observability.ObserverFromContext(ctx)

	var zero T
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, transport.Classify(ctx, err)
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == policy.MaxAttempts || !policy.Retryable(err) {
			return zero, err
		}

		delay := policy.Delay(attempt)
		if observer != nil {
			observer.Debug(ctx, "retrying after transient error",
				observability.Int(observability.AttrRetryAttempt, attempt),
				observability.Duration(observability.AttrRetryDelay, delay),
				observability.Error(err),
			)
		}
		if span := observability.SpanFromContext(ctx); span != nil {
			span.AddEvent(observability.EventRetry,
				observability.Int(observability.AttrRetryAttempt, attempt),
				observability.Duration(observability.AttrRetryDelay, delay),
			)
		}

		if sleepErr := policy.Sleep(ctx, delay); sleepErr != nil {
			return zero, transport.Classify(ctx, sleepErr)
		}
	}
	return zero, lastErr
}

// Sleep waits for d, returning early with ctx.Err() if ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryable reports whether err is transient: a network error, a timeout,
// a 5xx or a 429, whether still a raw *transport.HTTPError or already
// classified. Cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) {
		return retryableStatus(httpErr.StatusCode)
	}

	providerErr, ok := ai.AsProviderError(err)
	if !ok {
		return errors.Is(err, context.DeadlineExceeded)
	}
	switch providerErr.Kind {
	case ai.KindNetworkError, ai.KindTimeout, ai.KindServerError, ai.KindRateLimitExceeded:
		return true
	case ai.KindHTTPError:
		return retryableStatus(providerErr.StatusCode)
	}
	return false
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}
