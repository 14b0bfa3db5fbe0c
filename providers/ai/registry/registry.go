package registry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/woodman33/llmbridge/core/credential"
	"github.com/woodman33/llmbridge/core/ratelimit"
	"github.com/woodman33/llmbridge/core/retry"
	"github.com/woodman33/llmbridge/internal/transport"
	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/ai/anthropic"
	"github.com/woodman33/llmbridge/providers/ai/dispatch"
	"github.com/woodman33/llmbridge/providers/ai/gemini"
	"github.com/woodman33/llmbridge/providers/ai/mistral"
	"github.com/woodman33/llmbridge/providers/ai/openai"
	"github.com/woodman33/llmbridge/providers/observability"
)

// Registry constructs adapters for the providers in its catalog and answers
// capability queries without touching the network or the credential chain.
type Registry struct {
	mu           sync.RWMutex
	entries      map[string]Entry
	order        []string
	capabilities map[string]ai.ProviderCapabilities
	adapters     map[string]ai.Provider

	credentials credential.Lookup
	limiter     *ratelimit.Limiter
	transport   *transport.Client
	policy      *retry.Policy
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	catalog     []Entry
	documents   [][]byte
	credentials credential.Lookup
	limiter     *ratelimit.Limiter
	transport   *transport.Client
	policy      *retry.Policy
	getenv      func(string) string
}

// WithCredentials sets the key lookup used by CreateProvider and
// AvailableProviders. The default reads <ID>_API_KEY from the environment.
func WithCredentials(lookup credential.Lookup) Option {
	return func(o *options) {
		if lookup != nil {
			o.credentials = lookup
		}
	}
}

// WithCatalog replaces the built-in catalog.
func WithCatalog(entries ...Entry) Option {
	return func(o *options) { o.catalog = entries }
}

// WithCatalogYAML merges a YAML catalog over the built-in one. See mergeCatalog for the format.
func WithCatalogYAML(document []byte) Option {
	return func(o *options) { o.documents = append(o.documents, document) }
}

// WithLimiter shares limiter across every adapter the registry builds.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(o *options) {
		if limiter != nil {
			o.limiter = limiter
		}
	}
}

// WithTransport shares client across every adapter the registry builds.
func WithTransport(client *transport.Client) Option {
	return func(o *options) { o.transport = client }
}

// WithRetryPolicy applies policy to every adapter the registry builds.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(o *options) { o.policy = &policy }
}

// WithEnv replaces os.Getenv for <ID>_API_BASE_URL overrides.
func WithEnv(getenv func(string) string) Option {
	return func(o *options) {
		if getenv != nil {
			o.getenv = getenv
		}
	}
}

// New builds the catalog, applies YAML and environment overrides, registers
// configured rate limits with the shared limiter and precomputes capabilities.
func New(opts ...Option) (*Registry, error) {
	o := options{
		catalog:     DefaultCatalog(),
		credentials: credential.Chain{credential.Environment{}},
		getenv:      os.Getenv,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.limiter == nil {
		o.limiter = ratelimit.New()
	}

	entries := append([]Entry(nil), o.catalog...)
	for _, document := range o.documents {
		var err error
		if entries, err = mergeCatalog(entries, document); err != nil {
			return nil, err
		}
	}

	registry := &Registry{
		entries:      make(map[string]Entry, len(entries)),
		capabilities: make(map[string]ai.ProviderCapabilities, len(entries)),
		adapters:     make(map[string]ai.Provider),
		credentials:  o.credentials,
		limiter:      o.limiter,
		transport:    o.transport,
		policy:       o.policy,
	}

	for _, entry := range entries {
		if err := entry.validate(); err != nil {
			return nil, err
		}
		if _, duplicate := registry.entries[entry.ID]; duplicate {
			return nil, fmt.Errorf("provider %q registered twice", entry.ID)
		}
		if baseURL := strings.TrimSpace(o.getenv(credential.BaseURLName(entry.ID))); baseURL != "" {
			entry.Configuration.BaseURL = baseURL
		}
		if err := entry.Configuration.Validate(entry.ID); err != nil {
			return nil, err
		}
		if entry.Configuration.RateLimit != nil {
			registry.limiter.SetLimit(entry.ID, entry.Configuration.RateLimit.RequestsPerMinute)
		}

		registry.entries[entry.ID] = entry
		registry.order = append(registry.order, entry.ID)
		registry.capabilities[entry.ID] = entry.capabilities().Clone()
	}
	return registry, nil
}

// Providers returns every known provider id in catalog order.
func (r *Registry) Providers() []string {
	return append([]string(nil), r.order...)
}

// Configuration returns the resolved configuration of id.
func (r *Registry) Configuration(id string) (ai.ProviderConfiguration, bool) {
	entry, ok := r.entries[id]
	return entry.Configuration, ok
}

// Capabilities returns the precomputed capabilities of id.
func (r *Registry) Capabilities(id string) (ai.ProviderCapabilities, bool) {
	capabilities, ok := r.capabilities[id]
	if !ok {
		return ai.ProviderCapabilities{}, false
	}
	return capabilities.Clone(), true
}

// Limiter returns the limiter shared by the registry's adapters.
func (r *Registry) Limiter() *ratelimit.Limiter { return r.limiter }

// AvailableProviders returns the providers that can be constructed right
// now: those needing no key plus those whose key the credential chain
// resolves.
func (r *Registry) AvailableProviders(ctx context.Context) []string {
	available := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if !r.entries[id].Configuration.RequiresAPIKey || credential.Has(ctx, r.credentials, id) {
			available = append(available, id)
		}
	}
	return available
}

// CreateProvider returns the adapter for id, resolving its key through the
// credential chain. Adapters built this way are cached until Reset.
func (r *Registry) CreateProvider(ctx context.Context, id string) (ai.Provider, error) {
	r.mu.RLock()
	cached, ok := r.adapters[id]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	entry, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	key, found := r.credentials.Get(ctx, id)
	if !found && entry.Configuration.RequiresAPIKey {
		return nil, ai.NewInvalidConfiguration(id,
			fmt.Sprintf("API key is required: set %s or store a key for %q", credential.KeyName(id), id))
	}

	provider, err := r.build(ctx, entry, key)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.adapters[id]; ok {
		return cached, nil
	}
	r.adapters[id] = provider
	return provider, nil
}

// CreateProviderWithKey builds a fresh adapter for id with apiKey, bypassing
// the credential chain and the cache.
func (r *Registry) CreateProviderWithKey(id, apiKey string) (ai.Provider, error) {
	entry, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	return r.build(context.Background(), entry, apiKey)
}

// Reset drops every cached adapter.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.adapters)
}

func (r *Registry) entry(id string) (Entry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, ai.NewInvalidConfiguration(id,
			fmt.Sprintf("unknown provider (known: %s)", strings.Join(r.order, ", ")))
	}
	return entry, nil
}

func (r *Registry) build(ctx context.Context, entry Entry, apiKey string) (ai.Provider, error) {
	dispatchOpts := []dispatch.Option{dispatch.WithLimiter(r.limiter), dispatch.WithTransport(r.transport)}
	if r.policy != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithRetryPolicy(*r.policy))
	}
	dispatcher := dispatch.New(entry.ID, dispatchOpts...)

	var provider ai.Provider
	switch entry.Adapter {
	case AdapterAnthropic:
		provider = anthropic.New(anthropic.WithConfiguration(entry.Configuration), anthropic.WithAPIKey(apiKey), anthropic.WithDispatcher(dispatcher))
	case AdapterMistral:
		provider = mistral.New(mistral.WithConfiguration(entry.Configuration), mistral.WithAPIKey(apiKey), mistral.WithDispatcher(dispatcher))
	case AdapterGemini:
		provider = gemini.New(gemini.WithConfiguration(entry.Configuration), gemini.WithAPIKey(apiKey), gemini.WithDispatcher(dispatcher))
	default:
		opts := []openai.Option{
			openai.WithID(entry.ID),
			openai.WithConfiguration(entry.Configuration),
			openai.WithAPIKey(apiKey),
			openai.WithDispatcher(dispatcher),
		}
		if entry.ID != openai.ProviderID {
			opts = append(opts, openai.WithPricing(nil))
		}
		provider = openai.New(opts...)
	}

	if err := provider.ValidateConfiguration(); err != nil {
		return nil, err
	}
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Debug(ctx, "provider adapter created",
			observability.String(observability.AttrProvider, entry.ID),
			observability.String("adapter", string(entry.Adapter)),
			observability.String("base_url", entry.Configuration.BaseURL),
		)
	}
	return provider, nil
}
