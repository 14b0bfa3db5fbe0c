package observability

import "context"

type observerKey struct{}

type spanKey struct{}

// ContextWithObserver attaches observer to ctx.
func ContextWithObserver(ctx context.Context, observer Observer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, observerKey{}, observer)
}

// ObserverFromContext returns the observer attached to ctx, or nil.
func ObserverFromContext(ctx context.Context) Observer {
	if ctx == nil {
		return nil
	}
	observer, _ := ctx.Value(observerKey{}).(Observer)
	return observer
}

// ContextWithSpan attaches span to ctx.
func ContextWithSpan(ctx context.Context, span Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanKey{}, span)
}

// SpanFromContext returns the span attached to ctx, or nil.
func SpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return nil
	}
	span, _ := ctx.Value(spanKey{}).(Span)
	return span
}

// StartSpan starts a span on the observer in ctx and attaches it to the
// returned context. Without an observer it returns ctx unchanged and a nil span.
func StartSpan(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	observer := ObserverFromContext(ctx)
	if observer == nil {
		return ctx, nil
	}
	ctx, span := observer.StartSpan(ctx, name, attrs...)
	return ContextWithSpan(ctx, span), span
}
