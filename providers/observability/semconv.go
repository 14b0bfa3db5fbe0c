package observability

// Attribute keys and span/event names shared by all components.

const (
	AttrError = "error"

	AttrProvider     = "llm.provider"
	AttrModel        = "llm.model"
	AttrEndpoint     = "llm.endpoint"
	AttrStreaming    = "llm.streaming"
	AttrResponseID   = "llm.response.id"
	AttrFinishReason = "llm.finish_reason"
	AttrMessages     = "llm.request.messages"
	AttrFunctions    = "llm.request.functions"

	AttrTokensPrompt     = "llm.tokens.prompt"     // #nosec G101 -- LLM tokens, not credentials
	AttrTokensCompletion = "llm.tokens.completion" // #nosec G101
	AttrTokensTotal      = "llm.tokens.total"      // #nosec G101

	AttrHTTPMethod       = "http.method"
	AttrHTTPURL          = "http.url"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPRequestSize  = "http.request.body.size"
	AttrHTTPResponseSize = "http.response.body.size"
	AttrHTTPDuration     = "http.request.duration"

	AttrRetryAttempt = "retry.attempt"
	AttrRetryDelay   = "retry.delay"

	AttrRateLimitAllowed   = "ratelimit.allowed"
	AttrRateLimitCount     = "ratelimit.count"
	AttrRateLimitRemaining = "ratelimit.remaining"

	AttrStreamPayload = "stream.payload"
	AttrErrorKind     = "error.kind"
)

const (
	SpanProviderSend   = "llm.provider.send"
	SpanProviderStream = "llm.provider.stream"

	EventHTTPRequest   = "http.request.sent"
	EventHTTPResponse  = "http.response.received"
	EventRetry         = "retry.scheduled"
	EventChunkSkipped  = "stream.chunk.skipped"
	EventStreamClosed  = "stream.closed"
	EventRateLimited   = "ratelimit.rejected"
	EventTokensUpdated = "llm.tokens.received"
)
