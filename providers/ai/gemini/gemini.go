package gemini

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/woodman33/llmbridge/core/cost"
	"github.com/woodman33/llmbridge/internal/transport"
	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/ai/dispatch"
	"github.com/woodman33/llmbridge/providers/observability"
)

const (
	// ProviderID identifies the Gemini adapter.
	ProviderID = "gemini"

	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	generateMethod = ":generateContent"
	streamMethod   = ":streamGenerateContent?alt=sse"

	minTemperature = 0.0
	maxTemperature = 2.0
)

// Configuration returns the default Gemini connection description.
func Configuration() ai.ProviderConfiguration {
	return ai.ProviderConfiguration{
		BaseURL:         defaultBaseURL,
		RequiresAPIKey:  true,
		SupportedModels: []string{Model25Flash, Model25Pro, Model25FlashLite, Model20Flash, Model20FlashLite, Model15Pro, Model15Flash},
		DefaultModel:    Model25Flash,
	}
}

// Capabilities returns the static capabilities for config.
func Capabilities(config ai.ProviderConfiguration) ai.ProviderCapabilities {
	return ai.ProviderCapabilities{
		SupportsStreaming:    true,
		SupportsFunctions:    true,
		SupportsSystemPrompt: true,
		SupportedModels:      config.SupportedModels,
	}
}

// Provider implements [ai.Provider] for the Gemini API.
type Provider struct {
	apiKey       string
	config       ai.ProviderConfiguration
	capabilities ai.ProviderCapabilities
	dispatcher   *dispatch.Dispatcher
	pricing      cost.Table
	now          func() time.Time
	newID        func() string
}

// Option configures a Provider.
type Option func(*Provider)

// WithAPIKey sets the key sent in the x-goog-api-key header.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) { p.apiKey = strings.TrimSpace(apiKey) }
}

// WithConfiguration replaces the default configuration.
func WithConfiguration(config ai.ProviderConfiguration) Option {
	return func(p *Provider) { p.config = config }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		if baseURL != "" {
			p.config.BaseURL = baseURL
		}
	}
}

// WithDispatcher injects the limiter/retry/transport collaborator.
func WithDispatcher(dispatcher *dispatch.Dispatcher) Option {
	return func(p *Provider) { p.dispatcher = dispatcher }
}

// WithPricing replaces [ModelPricing].
func WithPricing(table cost.Table) Option {
	return func(p *Provider) { p.pricing = table }
}

// WithClock sets the time source for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDGenerator replaces the UUID generator used for responses without a
// responseId.
func WithIDGenerator(newID func() string) Option {
	return func(p *Provider) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// New returns a Gemini adapter configured by opts.
func New(opts ...Option) *Provider {
	provider := &Provider{
		config:  Configuration(),
		pricing: ModelPricing,
		now:     time.Now,
		newID:   uuid.NewString,
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

func (p *Provider) ID() string { return ProviderID }

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

// SendRequest calls generateContent.
func (p *Provider) SendRequest(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	request.Stream = false
	body, err := p.encode(ctx, request)
	if err != nil {
		return nil, err
	}

	responseBody, err := p.dispatcher.Send(ctx, p.httpRequest(request, body))
	if err != nil {
		return nil, err
	}

	response, err := p.TransformResponse(responseBody, request)
	if err != nil {
		return nil, err
	}
	p.dispatcher.RecordUsage(ctx, response.Usage)
	return response, nil
}

// StreamRequest calls streamGenerateContent with SSE framing.
func (p *Provider) StreamRequest(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	request.Stream = true
	body, err := p.encode(ctx, request)
	if err != nil {
		return nil, err
	}
	return p.dispatcher.Stream(ctx, p.httpRequest(request, body), p.newChunkDecoder(request))
}

func (p *Provider) encode(ctx context.Context, request ai.ChatRequest) ([]byte, error) {
	if err := p.ValidateConfiguration(); err != nil {
		return nil, err
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Trace(ctx, "preparing gemini request",
			observability.String(observability.AttrModel, p.config.Model(request)),
			observability.Int(observability.AttrMessages, len(request.Messages)),
			observability.Bool(observability.AttrStreaming, request.Stream),
		)
	}
	return p.TransformRequest(request)
}

// endpoint returns the method URL for the request's model.
func (p *Provider) endpoint(request ai.ChatRequest) string {
	method := generateMethod
	if request.Stream {
		method = streamMethod
	}
	return p.config.BaseURL + "/models/" + url.PathEscape(p.config.Model(request)) + method
}

func (p *Provider) httpRequest(request ai.ChatRequest, body []byte) transport.Request {
	header := dispatch.JSONHeaders(p.config.Headers)
	header.Set("x-goog-api-key", p.apiKey)
	return transport.Request{
		Method: http.MethodPost,
		URL:    p.endpoint(request),
		Header: header,
		Body:   body,
	}
}

var _ ai.Provider = (*Provider)(nil)
