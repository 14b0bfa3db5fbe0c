// Package ai defines the shared, provider-agnostic vocabulary used across all
// chat-completion adapters (OpenAI, Anthropic, Mistral, Gemini, etc.).
// Each adapter's conversion layer maps these types to and from its own wire
// format, keeping callers decoupled from vendor-specific details.
//
// Requests flow through [ChatRequest] and come back as [ChatResponse]. The
// [Provider] interface is implemented once per vendor. Failures are reported
// as [*ProviderError] values whose [ErrorKind] lets callers decide what to
// show without re-inspecting raw HTTP details. Streaming responses are
// delivered through [ChatStream], a pull-based sequence of partial responses
// whose message contents are deltas.
package ai
