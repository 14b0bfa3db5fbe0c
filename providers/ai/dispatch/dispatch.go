// Package dispatch is the collaborator every vendor adapter delegates its
// network work to. One call goes rate limiter → retry loop → transport, and
// whatever fails comes back as an *ai.ProviderError attributed to the
// adapter's provider id.
//
// The limiter is consulted once per call, before the first attempt; retries
// of the same call do not count against the window again. For streams only
// the opening of the connection is retried: once chunks have been handed to
// the consumer, a severed connection ends the stream with an error.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/woodman33/llmbridge/core/ratelimit"
	"github.com/woodman33/llmbridge/core/retry"
	"github.com/woodman33/llmbridge/core/stream"
	"github.com/woodman33/llmbridge/internal/transport"
	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/observability"
)

// Dispatcher runs calls for one provider.
type Dispatcher struct {
	provider  string
	transport *transport.Client
	limiter   *ratelimit.Limiter
	policy    retry.Policy
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTransport replaces the default transport client.
func WithTransport(client *transport.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.transport = client
		}
	}
}

// WithLimiter gates every call through limiter. Without it calls are never throttled locally.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(d *Dispatcher) {
		d.limiter = limiter
	}
}

// WithRetryPolicy replaces retry.DefaultPolicy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(d *Dispatcher) {
		d.policy = policy
	}
}

// New returns a Dispatcher for provider with the default transport and retry policy.
func New(provider string, opts ...Option) *Dispatcher {
	dispatcher := &Dispatcher{
		provider:  provider,
		transport: transport.New(),
		policy:    retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	return dispatcher
}

// Provider returns the provider id errors are attributed to.
func (d *Dispatcher) Provider() string { return d.provider }

// Limiter returns the configured limiter, or nil.
func (d *Dispatcher) Limiter() *ratelimit.Limiter { return d.limiter }

// Admit asks the limiter for a slot, failing with a rate-limit error when
// the provider's window is saturated.
func (d *Dispatcher) Admit(ctx context.Context) error {
	if d.limiter == nil || d.limiter.IsRequestAllowed(ctx, d.provider) {
		return nil
	}
	wait := d.limiter.TimeUntilNextRequest(ctx, d.provider)
	return ai.NewRateLimitExceeded(d.provider, fmt.Sprintf("local request limit reached, next slot in %s", wait.Round(time.Millisecond)))
}

// Send performs a complete exchange and returns the 2xx response body.
func (d *Dispatcher) Send(ctx context.Context, request transport.Request) ([]byte, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanProviderSend,
		observability.String(observability.AttrProvider, d.provider),
		observability.String(observability.AttrEndpoint, request.URL),
	)
	if span != nil {
		defer span.End()
	}

	if err := d.Admit(ctx); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	response, err := retry.Do(ctx, d.policy, func(ctx context.Context) (*transport.Response, error) {
		return d.transport.Do(ctx, request)
	})
	if err != nil {
		err = d.Error(err)
		recordSpanError(span, err)
		return nil, err
	}
	if span != nil {
		span.SetStatus(observability.StatusOK, "")
	}
	return response.Body, nil
}

// Open starts a streaming exchange and returns the open connection.
func (d *Dispatcher) Open(ctx context.Context, request transport.Request) (*transport.Stream, error) {
	if err := d.Admit(ctx); err != nil {
		return nil, err
	}

	opened, err := retry.Do(ctx, d.policy, func(ctx context.Context) (*transport.Stream, error) {
		return d.transport.Open(ctx, request)
	})
	if err != nil {
		return nil, d.Error(err)
	}
	return opened, nil
}

// Stream opens a streaming exchange and decodes its SSE body with decode.
// Usage reported by any chunk is recorded against the limiter's token
// counter. Closing the returned stream, or finishing or abandoning its
// iteration, closes the connection.
func (d *Dispatcher) Stream(ctx context.Context, request transport.Request, decode stream.ChunkDecoder) (*ai.ChatStream, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanProviderStream,
		observability.String(observability.AttrProvider, d.provider),
		observability.String(observability.AttrEndpoint, request.URL),
		observability.Bool(observability.AttrStreaming, true),
	)

	opened, err := d.Open(ctx, request)
	if err != nil {
		if span != nil {
			recordSpanError(span, err)
			span.End()
		}
		return nil, err
	}

	streamCtx := opened.Context()
	chunks := stream.Decode(streamCtx, opened.Body, decode)

	sequence := func(yield func(*ai.ChatResponse, error) bool) {
		emitted := 0
		defer func() {
			if observer := observability.ObserverFromContext(streamCtx); observer != nil {
				observer.Debug(streamCtx, observability.EventStreamClosed,
					observability.String(observability.AttrProvider, d.provider),
					observability.Int("chunks", emitted),
				)
			}
		}()

		for chunk, err := range chunks {
			if err != nil {
				err = d.Error(err)
				recordSpanError(span, err)
				yield(nil, err)
				return
			}
			emitted++
			if chunk.Usage != nil {
				d.RecordUsage(streamCtx, chunk.Usage)
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}

	return ai.NewChatStream(sequence, func() {
		_ = opened.Close()
		if span != nil {
			span.End()
		}
	}), nil
}

// RecordUsage adds usage's total to the limiter's token counter.
func (d *Dispatcher) RecordUsage(ctx context.Context, usage *ai.TokenUsage) {
	if d.limiter == nil || usage == nil {
		return
	}
	d.limiter.RecordRequest(ctx, d.provider, usage.TotalTokens)
}

// Error maps err onto the taxonomy. Raw HTTP failures are classified from
// their status and vendor body; provider errors missing a provider id get
// this dispatcher's.
func (d *Dispatcher) Error(err error) error {
	if err == nil {
		return nil
	}

	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) {
		return ai.ErrorFromStatus(d.provider, httpErr.StatusCode, httpErr.Body)
	}

	if providerErr, ok := ai.AsProviderError(err); ok {
		if providerErr.Provider == "" {
			attributed := *providerErr
			attributed.Provider = d.provider
			return &attributed
		}
		return providerErr
	}
	return ai.NewUnknownError(err)
}

func recordSpanError(span observability.Span, err error) {
	if span == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(observability.String(observability.AttrErrorKind, string(ai.KindOf(err))))
	span.SetStatus(observability.StatusError, err.Error())
}

// JSONHeaders returns the base header set for a JSON call with extra vendor
// headers applied on top.
func JSONHeaders(extra map[string]string) http.Header {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	for key, value := range extra {
		header.Set(key, value)
	}
	return header
}
