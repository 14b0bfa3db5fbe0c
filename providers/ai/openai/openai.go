package openai

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
	// ProviderID identifies the OpenAI adapter.
	ProviderID = "openai"

	// OllamaProviderID identifies a local Ollama server served by this adapter.
	OllamaProviderID = "ollama"

	defaultBaseURL          = "https://api.openai.com/v1"
	defaultOllamaBaseURL    = "http://localhost:11434/v1"
	chatCompletionsEndpoint = "/chat/completions"

	minTemperature = 0.0
	maxTemperature = 2.0
)

// Configuration returns the default OpenAI connection description.
func Configuration() ai.ProviderConfiguration {
	return ai.ProviderConfiguration{
		BaseURL:         defaultBaseURL,
		RequiresAPIKey:  true,
		SupportedModels: []string{ModelGPT4o, ModelGPT4oMini, ModelGPT41, ModelGPT41Mini, ModelGPT41Nano, ModelGPT35Turbo},
		DefaultModel:    ModelGPT4oMini,
	}
}

// OllamaConfiguration returns the default local Ollama connection description.
func OllamaConfiguration() ai.ProviderConfiguration {
	return ai.ProviderConfiguration{
		BaseURL:         defaultOllamaBaseURL,
		RequiresAPIKey:  false,
		SupportedModels: []string{"llama3.2", "llama3.1", "mistral", "qwen2.5"},
		DefaultModel:    "llama3.2",
	}
}

// Capabilities returns the static capabilities for config.
func Capabilities(config ai.ProviderConfiguration) ai.ProviderCapabilities {
	return ai.ProviderCapabilities{
		SupportsStreaming:    true,
		SupportsFunctions:    true,
		SupportsSystemPrompt: true,
		MaxTokens:            nil, // varies by model
		SupportedModels:      config.SupportedModels,
	}
}

// Provider implements ai.Provider for OpenAI-compatible chat completions.
type Provider struct {
	id           string
	apiKey       string
	config       ai.ProviderConfiguration
	capabilities ai.ProviderCapabilities
	dispatcher   *dispatch.Dispatcher
	pricing      cost.Table
	now          func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithID sets the provider id used in responses, errors and rate limiting.
func WithID(id string) Option {
	return func(p *Provider) {
		if id != "" {
			p.id = id
		}
	}
}

// WithAPIKey sets the bearer key.
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

// WithBaseURL overrides only the base URL of the configuration.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		if baseURL != "" {
			p.config.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithDispatcher injects the shared limiter/retry/transport collaborator.
func WithDispatcher(dispatcher *dispatch.Dispatcher) Option {
	return func(p *Provider) {
		p.dispatcher = dispatcher
	}
}

// WithPricing replaces the built-in pricing table.
func WithPricing(table cost.Table) Option {
	return func(p *Provider) {
		p.pricing = table
	}
}

// WithClock sets the time source for responses without a vendor timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds an OpenAI adapter. Without options it targets api.openai.com
// with no key; call ValidateConfiguration before use.
func New(opts ...Option) *Provider {
	provider := &Provider{
		id:      ProviderID,
		config:  Configuration(),
		pricing: ModelPricing,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(provider)
	}
	provider.config.BaseURL = strings.TrimRight(provider.config.BaseURL, "/")
	if provider.dispatcher == nil {
		provider.dispatcher = dispatch.New(provider.id)
	}
	provider.capabilities = Capabilities(provider.config).Clone()
	return provider
}

// NewOllama builds the adapter for a local Ollama server.
func NewOllama(opts ...Option) *Provider {
	base := []Option{WithID(OllamaProviderID), WithConfiguration(OllamaConfiguration()), WithPricing(nil)}
	return New(append(base, opts...)...)
}

func (p *Provider) ID() string { return p.id }

func (p *Provider) Capabilities() ai.ProviderCapabilities { return p.capabilities.Clone() }

// ValidateConfiguration checks the base URL, models and key.
func (p *Provider) ValidateConfiguration() error {
	if err := p.config.Validate(p.id); err != nil {
		return err
	}
	return p.config.ValidateCredentials(p.id, p.apiKey)
}

// EstimateCost prices request from the pricing table.
func (p *Provider) EstimateCost(request ai.ChatRequest) (float64, bool) {
	return cost.EstimateRequest(p.pricing, p.config.Model(request), request)
}

// SendRequest implements ai.Provider.
func (p *Provider) SendRequest(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := p.prepare(ctx, request); err != nil {
		return nil, err
	}

	request.Stream = false
	body, err := p.TransformRequest(request)
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

	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Debug(ctx, "chat completion received",
			observability.String(observability.AttrProvider, p.id),
			observability.String(observability.AttrModel, response.Model),
			observability.String(observability.AttrResponseID, response.ID),
		)
	}
	return response, nil
}

// StreamRequest implements ai.Provider.
func (p *Provider) StreamRequest(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if err := p.prepare(ctx, request); err != nil {
		return nil, err
	}

	request.Stream = true
	body, err := p.TransformRequest(request)
	if err != nil {
		return nil, err
	}
	return p.dispatcher.Stream(ctx, p.httpRequest(body), p.newChunkDecoder(request))
}

func (p *Provider) prepare(ctx context.Context, request ai.ChatRequest) error {
	if err := p.ValidateConfiguration(); err != nil {
		return err
	}
	if err := request.Validate(); err != nil {
		return err
	}
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Trace(ctx, "preparing chat completion",
			observability.String(observability.AttrProvider, p.id),
			observability.String(observability.AttrModel, p.config.Model(request)),
			observability.Int(observability.AttrMessages, len(request.Messages)),
			observability.Int(observability.AttrFunctions, len(request.Functions)),
			observability.Bool(observability.AttrStreaming, request.Stream),
		)
	}
	return nil
}

func (p *Provider) httpRequest(body []byte) transport.Request {
	header := dispatch.JSONHeaders(p.config.Headers)
	if p.apiKey != "" {
		header.Set("Authorization", "Bearer "+p.apiKey)
	}
	return transport.Request{
		Method: http.MethodPost,
		URL:    p.config.BaseURL + chatCompletionsEndpoint,
		Header: header,
		Body:   body,
	}
}

func (p *Provider) timestamp(created int64) time.Time {
	if created > 0 {
		return time.Unix(created, 0).UTC()
	}
	return p.now().UTC()
}

var _ ai.Provider = (*Provider)(nil)
