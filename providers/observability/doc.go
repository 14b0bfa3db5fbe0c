// Package observability defines the tracing and structured-logging interfaces
// used throughout llmbridge, together with the attribute names every
// component records.
//
// An [Observer] composes a [Tracer] and a [Logger]. Callers attach one to a
// [context.Context] with [ContextWithObserver]; the transport, retry
// coordinator, rate limiter, stream decoder and adapters pick it up with
// [ObserverFromContext] and stay silent when none is present. The
// observability/slog subpackage provides a log/slog backed implementation.
package observability
