package ai

import "context"

// Provider is the contract every vendor adapter implements. Shared concerns
// (rate limiting, retries, transport, SSE decoding) are injected into the
// adapter as collaborators; the adapter itself owns only the translation
// between the unified types and the vendor wire format.
type Provider interface {
	// ID returns the provider identifier (e.g. "openai", "anthropic").
	ID() string

	// Capabilities returns the static capabilities of the provider.
	Capabilities() ProviderCapabilities

	// SendRequest sends a request and returns the complete response. Failures
	// are reported as *ProviderError.
	SendRequest(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// StreamRequest opens a streaming call and returns a finite, single-use
	// sequence of partial responses. Errors that occur before the stream
	// opens (validation, auth, HTTP status) are returned directly; a severed
	// connection is yielded once through the stream.
	StreamRequest(ctx context.Context, request ChatRequest) (*ChatStream, error)

	// TransformRequest encodes the request in the vendor wire format.
	TransformRequest(request ChatRequest) ([]byte, error)

	// TransformResponse decodes a complete vendor response body.
	TransformResponse(body []byte, original ChatRequest) (*ChatResponse, error)

	// ValidateConfiguration fails with an invalid-configuration error when a
	// required key or the base URL is missing.
	ValidateConfiguration() error

	// EstimateCost returns an approximate USD cost for the request and
	// whether the model is priced at all.
	EstimateCost(request ChatRequest) (float64, bool)
}
