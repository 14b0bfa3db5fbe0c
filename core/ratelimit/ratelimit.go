// Package ratelimit provides per-provider admission control.
//
// Each provider gets a fixed 60s window holding a request count and the
// window start. A request is admitted while the count is below the
// provider's requests-per-minute limit; once the window elapses the count
// starts again from zero. Providers without a configured limit are always
// admitted. A token counter is kept alongside for observability only and
// never gates admission.
//
// State lives in a [Store]: [MemoryStore] for a single process, [RedisStore]
// to share limits between processes. Store failures fail open.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/woodman33/llmbridge/providers/observability"
)

// DefaultWindow is the length of one admission window.
const DefaultWindow = 60 * time.Second

// Clock supplies the current time. Tests replace it to simulate elapsed windows.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Limiter gates requests per provider.
type Limiter struct {
	store   Store
	clock   Clock
	window  time.Duration
	metrics *metrics

	mu     sync.RWMutex
	limits map[string]int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithStore replaces the default in-memory store.
func WithStore(store Store) Option {
	return func(l *Limiter) {
		if store != nil {
			l.store = store
		}
	}
}

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithWindow overrides the 60s window length.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithLimits sets initial requests-per-minute limits by provider id.
func WithLimits(limits map[string]int) Option {
	return func(l *Limiter) {
		for provider, rpm := range limits {
			if rpm > 0 {
				l.limits[provider] = rpm
			}
		}
	}
}

// WithRegisterer registers the limiter's metrics on reg. Without it the
// counters are still maintained but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *Limiter) {
		l.metrics.register(reg)
	}
}

// New returns a Limiter with an in-memory store and the system clock.
func New(opts ...Option) *Limiter {
	limiter := &Limiter{
		store:   NewMemoryStore(),
		clock:   systemClock{},
		window:  DefaultWindow,
		metrics: newMetrics(),
		limits:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(limiter)
	}
	return limiter
}

// SetLimit sets the requests-per-minute ceiling for provider. A value ≤ 0
// removes the limit.
func (l *Limiter) SetLimit(provider string, requestsPerMinute int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if requestsPerMinute <= 0 {
		delete(l.limits, provider)
		return
	}
	l.limits[provider] = requestsPerMinute
}

// Limit returns the configured ceiling for provider, if any.
func (l *Limiter) Limit(provider string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rpm, ok := l.limits[provider]
	return rpm, ok
}

// IsRequestAllowed admits one request for provider, counting it against the
// current window when admitted.
func (l *Limiter) IsRequestAllowed(ctx context.Context, provider string) bool {
	limit, ok := l.Limit(provider)
	if !ok {
		l.metrics.decision(provider, true)
		return true
	}

	decision, err := l.store.Admit(ctx, provider, limit, l.clock.Now(), l.window)
	if err != nil {
		l.warn(ctx, "rate limit store unavailable, admitting request", provider, err)
		l.metrics.decision(provider, true)
		return true
	}

	l.metrics.decision(provider, decision.Allowed)
	if span := observability.SpanFromContext(ctx); span != nil && !decision.Allowed {
		span.AddEvent(observability.EventRateLimited,
			observability.String(observability.AttrProvider, provider),
			observability.Int(observability.AttrRateLimitCount, decision.Count),
		)
	}
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Trace(ctx, "rate limit decision",
			observability.String(observability.AttrProvider, provider),
			observability.Bool(observability.AttrRateLimitAllowed, decision.Allowed),
			observability.Int(observability.AttrRateLimitCount, decision.Count),
			observability.Int(observability.AttrRateLimitRemaining, max(limit-decision.Count, 0)),
		)
	}
	return decision.Allowed
}

// RecordRequest adds tokens to provider's running total. The total is
// reported through metrics and TokensUsed; it never affects admission.
func (l *Limiter) RecordRequest(ctx context.Context, provider string, tokens int) {
	if tokens <= 0 {
		return
	}
	total, err := l.store.AddTokens(ctx, provider, int64(tokens))
	if err != nil {
		l.warn(ctx, "failed to record token usage", provider, err)
		return
	}
	l.metrics.tokens.WithLabelValues(provider).Add(float64(tokens))
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventTokensUpdated,
			observability.String(observability.AttrProvider, provider),
			observability.Int64(observability.AttrTokensTotal, total),
		)
	}
}

// TokensUsed returns the accumulated token total for provider.
func (l *Limiter) TokensUsed(ctx context.Context, provider string) int64 {
	total, err := l.store.Tokens(ctx, provider)
	if err != nil {
		l.warn(ctx, "failed to read token usage", provider, err)
		return 0
	}
	return total
}

// TimeUntilNextRequest returns how long until provider's window reopens when
// it is saturated, and zero when a request would be admitted now.
func (l *Limiter) TimeUntilNextRequest(ctx context.Context, provider string) time.Duration {
	limit, ok := l.Limit(provider)
	if !ok {
		return 0
	}
	count, start, err := l.store.Window(ctx, provider)
	if err != nil {
		l.warn(ctx, "rate limit store unavailable", provider, err)
		return 0
	}
	if start.IsZero() || count < limit {
		return 0
	}
	remaining := start.Add(l.window).Sub(l.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears provider's window and token total. The limit is kept.
func (l *Limiter) Reset(ctx context.Context, provider string) {
	if err := l.store.Reset(ctx, provider); err != nil {
		l.warn(ctx, "failed to reset rate limit", provider, err)
	}
}

// ResetAll clears every provider's window and token total.
func (l *Limiter) ResetAll(ctx context.Context) {
	if err := l.store.ResetAll(ctx); err != nil {
		l.warn(ctx, "failed to reset rate limits", "", err)
	}
}

func (l *Limiter) warn(ctx context.Context, msg, provider string, err error) {
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Warn(ctx, msg,
			observability.String(observability.AttrProvider, provider),
			observability.Error(err),
		)
	}
}
