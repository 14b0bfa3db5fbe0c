package transport

import (
	"context"
	"errors"
	"net"

	"github.com/woodman33/llmbridge/providers/ai"
)

// Classify maps a transport-level failure onto the provider error taxonomy.
// ctx is the context the exchange ran under; its cancellation cause tells a
// timeout apart from a caller cancellation.
//
//   - already classified errors are returned unchanged
//   - request/resource timeouts, deadline exceeded and net timeouts → timeout
//   - caller cancellation → unknown error wrapping context.Canceled
//   - anything else → network error
func Classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if providerErr, ok := ai.AsProviderError(err); ok {
		return providerErr
	}

	if ctx != nil {
		if cause := context.Cause(ctx); cause != nil {
			if errors.Is(cause, ErrRequestTimeout) || errors.Is(cause, ErrResourceTimeout) || errors.Is(cause, context.DeadlineExceeded) {
				return ai.NewTimeout(cause)
			}
			if errors.Is(cause, context.Canceled) {
				return ai.NewUnknownError(cause)
			}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ai.NewTimeout(err)
	}
	if errors.Is(err, context.Canceled) {
		return ai.NewUnknownError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ai.NewTimeout(err)
	}
	return ai.NewNetworkError(err)
}
