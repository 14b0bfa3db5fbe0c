package mistral

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
	// ProviderID identifies the Mistral adapter.
	ProviderID = "mistral"

	defaultBaseURL = "https://api.mistral.ai/v1"
	chatEndpoint   = "/chat/completions"

	minTemperature = 0.0
	maxTemperature = 1.5
)

// Configuration returns the default Mistral connection description.
func Configuration() ai.ProviderConfiguration {
	return ai.ProviderConfiguration{
		BaseURL:         defaultBaseURL,
		RequiresAPIKey:  true,
		SupportedModels: []string{ModelLarge, ModelMedium, ModelSmall, ModelCodestral, ModelNemo},
		DefaultModel:    ModelSmall,
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

// Provider implements ai.Provider for the Mistral chat API.
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

func WithAPIKey(apiKey string) Option {
	return func(p *Provider) { p.apiKey = strings.TrimSpace(apiKey) }
}

func WithConfiguration(config ai.ProviderConfiguration) Option {
	return func(p *Provider) { p.config = config }
}

func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		if baseURL != "" {
			p.config.BaseURL = baseURL
		}
	}
}

func WithDispatcher(dispatcher *dispatch.Dispatcher) Option {
	return func(p *Provider) { p.dispatcher = dispatcher }
}

func WithPricing(table cost.Table) Option {
	return func(p *Provider) { p.pricing = table }
}

// WithClock sets the time source for responses without a vendor timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds a Mistral adapter.
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

func (p *Provider) ID() string { return ProviderID }

func (p *Provider) Capabilities() ai.ProviderCapabilities { return p.capabilities.Clone() }

func (p *Provider) ValidateConfiguration() error {
	if err := p.config.Validate(ProviderID); err != nil {
		return err
	}
	return p.config.ValidateCredentials(ProviderID, p.apiKey)
}

func (p *Provider) EstimateCost(request ai.ChatRequest) (float64, bool) {
	return cost.EstimateRequest(p.pricing, p.config.Model(request), request)
}

// SendRequest implements ai.Provider.
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
	return response, nil
}

// StreamRequest implements ai.Provider. Mistral reports usage on the final
// chunk without needing a stream option.
func (p *Provider) StreamRequest(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	request.Stream = true
	body, err := p.encode(ctx, request)
	if err != nil {
		return nil, err
	}
	return p.dispatcher.Stream(ctx, p.httpRequest(body), p.newChunkDecoder(request))
}

// encode validates the adapter and request, then builds the wire body.
func (p *Provider) encode(ctx context.Context, request ai.ChatRequest) ([]byte, error) {
	if err := p.ValidateConfiguration(); err != nil {
		return nil, err
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Trace(ctx, "preparing mistral chat request",
			observability.String(observability.AttrModel, p.config.Model(request)),
			observability.Int(observability.AttrMessages, len(request.Messages)),
			observability.Bool(observability.AttrStreaming, request.Stream),
		)
	}
	return p.TransformRequest(request)
}

func (p *Provider) httpRequest(body []byte) transport.Request {
	header := dispatch.JSONHeaders(p.config.Headers)
	header.Set("Authorization", "Bearer "+p.apiKey)
	return transport.Request{
		Method: http.MethodPost,
		URL:    p.config.BaseURL + chatEndpoint,
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
