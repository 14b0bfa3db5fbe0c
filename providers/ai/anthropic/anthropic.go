package anthropic

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/woodman33/llmbridge/core/cost"
	"github.com/woodman33/llmbridge/internal/transport"
	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/ai/dispatch"
	"github.com/woodman33/llmbridge/providers/observability"
)

const (
	// ProviderID identifies the Anthropic adapter.
	ProviderID = "anthropic"

	// DefaultMaxTokens is sent when a request sets no MaxTokens.
	DefaultMaxTokens = 4096

	// defaultBaseURL is the canonical base URL for Anthropic's Messages API.
	defaultBaseURL = "https://api.anthropic.com/v1"

	messagesEndpoint = "/messages"

	// anthropicVersion version-locks response formats independently of the URL.
	anthropicVersion = "2023-06-01"

	minTemperature = 0.0
	maxTemperature = 1.0
)

// Configuration returns the default Anthropic connection description.
func Configuration() ai.ProviderConfiguration {
	return ai.ProviderConfiguration{
		BaseURL:         defaultBaseURL,
		RequiresAPIKey:  true,
		SupportedModels: []string{ModelClaudeSonnet4, ModelClaudeOpus4, ModelClaudeHaiku45, ModelClaude37Sonnet, ModelClaude35Haiku},
		DefaultModel:    ModelClaudeSonnet4,
	}
}

// Capabilities returns the static capabilities for config. Output is capped
// per request by max_tokens, which defaults to DefaultMaxTokens.
func Capabilities(config ai.ProviderConfiguration) ai.ProviderCapabilities {
	maxTokens := DefaultMaxTokens
	return ai.ProviderCapabilities{
		SupportsStreaming:    true,
		SupportsFunctions:    true,
		SupportsSystemPrompt: true,
		MaxTokens:            &maxTokens,
		SupportedModels:      config.SupportedModels,
	}
}

// Provider implements [ai.Provider] for Anthropic's Messages API. Use [New]
// to construct one; the zero value is not usable.
type Provider struct {
	apiKey       string
	config       ai.ProviderConfiguration
	capabilities ai.ProviderCapabilities
	dispatcher   *dispatch.Dispatcher
	pricing      cost.Table
	now          func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithAPIKey sets the key sent in the x-api-key header.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) {
		p.apiKey = strings.TrimSpace(apiKey)
	}
}

// WithConfiguration replaces the default configuration.
func WithConfiguration(config ai.ProviderConfiguration) Option {
	return func(p *Provider) {
		p.config = config
	}
}

// WithBaseURL overrides the API base URL. Use this when targeting a proxy or
// a local test server.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		if baseURL != "" {
			p.config.BaseURL = baseURL
		}
	}
}

// WithDispatcher injects the limiter/retry/transport collaborator.
func WithDispatcher(dispatcher *dispatch.Dispatcher) Option {
	return func(p *Provider) {
		p.dispatcher = dispatcher
	}
}

// WithPricing replaces [ModelPricing].
func WithPricing(table cost.Table) Option {
	return func(p *Provider) {
		p.pricing = table
	}
}

// WithClock sets the time source for response timestamps; the Messages API
// reports none.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// New returns an Anthropic adapter configured by opts.
func New(opts ...Option) *Provider {
	provider := &Provider{
		config:  Configuration(),
		pricing: ModelPricing,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(provider)
	}
	provider.config.BaseURL = strings.TrimRight(provider.config.BaseURL, "/")
	if provider.dispatcher == nil {
		provider.dispatcher = dispatch.New(ProviderID)
	}
	provider.capabilities = Capabilities(provider.config).Clone()
	return provider
}

// ID returns "anthropic".
func (p *Provider) ID() string { return ProviderID }

// Capabilities returns a copy of the adapter capabilities.
func (p *Provider) Capabilities() ai.ProviderCapabilities { return p.capabilities.Clone() }

// ValidateConfiguration fails when the base URL or the key is missing.
func (p *Provider) ValidateConfiguration() error {
	if err := p.config.Validate(ProviderID); err != nil {
		return err
	}
	return p.config.ValidateCredentials(ProviderID, p.apiKey)
}

// EstimateCost prices request from the pricing table.
func (p *Provider) EstimateCost(request ai.ChatRequest) (float64, bool) {
	return cost.EstimateRequest(p.pricing, p.config.Model(request), request)
}

// SendRequest sends a non-streaming Messages call.
func (p *Provider) SendRequest(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	request.Stream = false
	body, err := p.encode(ctx, request)
	if err != nil {
		return nil, err
	}

	responseBody, err := p.dispatcher.Send(ctx, p.httpRequest(body))
	if err != nil {
		return nil, err
	}

	response, err := p.TransformResponse(responseBody, request)
	if err != nil {
		return nil, err
	}
	p.dispatcher.RecordUsage(ctx, response.Usage)

	if observer := observability.ObserverFromContext(ctx); observer != nil && response.Usage != nil {
		observer.Debug(ctx, observability.EventTokensUpdated,
			observability.String(observability.AttrProvider, ProviderID),
			observability.Int(observability.AttrTokensPrompt, response.Usage.PromptTokens),
			observability.Int(observability.AttrTokensCompletion, response.Usage.CompletionTokens),
		)
	}
	return response, nil
}

// StreamRequest opens a streaming Messages call.
func (p *Provider) StreamRequest(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	request.Stream = true
	body, err := p.encode(ctx, request)
	if err != nil {
		return nil, err
	}
	return p.dispatcher.Stream(ctx, p.httpRequest(body), p.newChunkDecoder(request))
}

func (p *Provider) encode(ctx context.Context, request ai.ChatRequest) ([]byte, error) {
	if err := p.ValidateConfiguration(); err != nil {
		return nil, err
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Trace(ctx, "preparing anthropic messages request",
			observability.String(observability.AttrModel, p.config.Model(request)),
			observability.Int(observability.AttrMessages, len(request.Messages)),
			observability.Int(observability.AttrFunctions, len(request.Functions)),
		)
	}
	return p.TransformRequest(request)
}

func (p *Provider) httpRequest(body []byte) transport.Request {
	header := dispatch.JSONHeaders(p.config.Headers)
	header.Set("x-api-key", p.apiKey)
	header.Set("anthropic-version", anthropicVersion)
	return transport.Request{
		Method: http.MethodPost,
		URL:    p.config.BaseURL + messagesEndpoint,
		Header: header,
		Body:   body,
	}
}

var _ ai.Provider = (*Provider)(nil)
