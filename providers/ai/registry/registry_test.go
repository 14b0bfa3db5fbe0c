package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodman33/llmbridge/core/credential"
	"github.com/woodman33/llmbridge/core/ratelimit"
	"github.com/woodman33/llmbridge/core/retry"
	"github.com/woodman33/llmbridge/providers/ai"
)

func noEnv(string) string { return "" }

func newRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	base := []Option{WithEnv(noEnv), WithCredentials(credential.Static{})}
	reg, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return reg
}

func TestNew_DefaultCatalog(t *testing.T) {
	reg := newRegistry(t)

	assert.Equal(t, []string{"openai", "anthropic", "mistral", "gemini", "ollama"}, reg.Providers())

	capabilities, ok := reg.Capabilities("anthropic")
	require.True(t, ok)
	assert.True(t, capabilities.SupportsStreaming)
	require.NotNil(t, capabilities.MaxTokens)
	assert.Equal(t, 4096, *capabilities.MaxTokens)

	_, ok = reg.Capabilities("cohere")
	assert.False(t, ok)
}

func TestCapabilities_ReturnsCopies(t *testing.T) {
	reg := newRegistry(t)

	first, _ := reg.Capabilities("openai")
	first.SupportedModels[0] = "mutated"

	second, _ := reg.Capabilities("openai")
	assert.NotEqual(t, "mutated", second.SupportedModels[0])
}

func TestAvailableProviders(t *testing.T) {
	reg := newRegistry(t, WithCredentials(credential.Static{"anthropic": "sk-ant", "gemini": ""}))

	assert.Equal(t, []string{"anthropic", "ollama"}, reg.AvailableProviders(context.Background()))
}

func TestCreateProvider_ResolvesKeyAndCaches(t *testing.T) {
	lookups := 0
	lookup := credential.LookupFunc(func(_ context.Context, id string) (string, bool) {
		lookups++
		return "key-for-" + id, true
	})
	reg := newRegistry(t, WithCredentials(lookup))

	first, err := reg.CreateProvider(context.Background(), "mistral")
	require.NoError(t, err)
	second, err := reg.CreateProvider(context.Background(), "mistral")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "mistral", first.ID())
	assert.Equal(t, 1, lookups)

	reg.Reset()
	third, err := reg.CreateProvider(context.Background(), "mistral")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, lookups)
}

func TestCreateProvider_MissingKey(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.CreateProvider(context.Background(), "openai")

	require.ErrorIs(t, err, ai.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestCreateProvider_NoKeyRequired(t *testing.T) {
	reg := newRegistry(t)

	provider, err := reg.CreateProvider(context.Background(), "ollama")

	require.NoError(t, err)
	assert.Equal(t, "ollama", provider.ID())
}

func TestCreateProvider_Unknown(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.CreateProvider(context.Background(), "cohere")

	require.ErrorIs(t, err, ai.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestCreateProviderWithKey(t *testing.T) {
	reg := newRegistry(t)

	provider, err := reg.CreateProviderWithKey("gemini", "AIza-explicit")
	require.NoError(t, err)
	assert.Equal(t, "gemini", provider.ID())

	again, err := reg.CreateProviderWithKey("gemini", "AIza-explicit")
	require.NoError(t, err)
	assert.NotSame(t, provider, again, "explicit keys bypass the cache")

	_, err = reg.CreateProviderWithKey("anthropic", "  ")
	require.ErrorIs(t, err, ai.ErrInvalidConfiguration)
}

func TestCreateProvider_ConcurrentCallersShareOneAdapter(t *testing.T) {
	reg := newRegistry(t, WithCredentials(credential.Static{"openai": "sk-test"}))

	var wg sync.WaitGroup
	results := make([]ai.Provider, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			provider, err := reg.CreateProvider(context.Background(), "openai")
			assert.NoError(t, err)
			results[i] = provider
		}()
	}
	wg.Wait()

	for _, provider := range results[1:] {
		assert.Same(t, results[0], provider)
	}
}

func TestNew_BaseURLEnvironmentOverride(t *testing.T) {
	env := map[string]string{"MISTRAL_API_BASE_URL": "https://mistral.internal.example/v1"}
	reg := newRegistry(t, WithEnv(func(key string) string { return env[key] }))

	config, ok := reg.Configuration("mistral")
	require.True(t, ok)
	assert.Equal(t, "https://mistral.internal.example/v1", config.BaseURL)

	config, _ = reg.Configuration("openai")
	assert.Equal(t, "https://api.openai.com/v1", config.BaseURL)
}

func TestNew_InvalidBaseURLOverride(t *testing.T) {
	_, err := New(
		WithEnv(func(key string) string {
			if key == "OLLAMA_API_BASE_URL" {
				return "not a url"
			}
			return ""
		}),
	)

	require.ErrorIs(t, err, ai.ErrInvalidConfiguration)
}

func TestWithCatalogYAML(t *testing.T) {
	document := []byte(`
providers:
  openai:
    default_model: gpt-4.1-mini
    rate_limit:
      requests_per_minute: 2
  openrouter:
    adapter: openai
    base_url: https://openrouter.ai/api/v1
    requires_api_key: true
    supported_models: [openai/gpt-4o, anthropic/claude-sonnet-4.5]
    headers:
      HTTP-Referer: https://example.com
`)
	reg := newRegistry(t, WithCatalogYAML(document))

	assert.Equal(t, []string{"openai", "anthropic", "mistral", "gemini", "ollama", "openrouter"}, reg.Providers())

	openaiConfig, _ := reg.Configuration("openai")
	assert.Equal(t, "gpt-4.1-mini", openaiConfig.DefaultModel)
	assert.Equal(t, "https://api.openai.com/v1", openaiConfig.BaseURL, "fields absent from the document are kept")
	limit, ok := reg.Limiter().Limit("openai")
	require.True(t, ok)
	assert.Equal(t, 2, limit)

	routerConfig, _ := reg.Configuration("openrouter")
	assert.Equal(t, "https://openrouter.ai/api/v1", routerConfig.BaseURL)
	assert.Equal(t, "https://example.com", routerConfig.Headers["HTTP-Referer"])

	capabilities, ok := reg.Capabilities("openrouter")
	require.True(t, ok)
	assert.Equal(t, []string{"openai/gpt-4o", "anthropic/claude-sonnet-4.5"}, capabilities.SupportedModels)
}

func TestWithCatalogYAML_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown adapter":        "providers:\n  cohere:\n    adapter: cohere\n    base_url: https://api.cohere.ai\n",
		"missing adapter":        "providers:\n  custom:\n    base_url: https://llm.example.com\n",
		"adapter bound to an id": "providers:\n  claude-proxy:\n    adapter: anthropic\n    base_url: https://proxy.example.com\n",
		"unknown top-level key":  "vendors: {}\n",
		"providers not a map":    "providers: [openai]\n",
		"bad rate limit":         "providers:\n  openai:\n    rate_limit: {requests_per_minute: 0}\n",
	}

	for name, document := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(WithEnv(noEnv), WithCatalogYAML([]byte(document)))
			assert.Error(t, err)
		})
	}
}

func TestWithCatalogYAML_EmptyDocument(t *testing.T) {
	reg := newRegistry(t, WithCatalogYAML(nil))
	assert.Len(t, reg.Providers(), 5)
}

func TestCreatedAdaptersShareLimiter(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "https://example.com", r.Header.Get("HTTP-Referer"))
		_, _ = fmt.Fprint(w, `{"id":"r1","created":1700000000,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`)
	}))
	defer server.Close()

	document := fmt.Sprintf(`
providers:
  local:
    adapter: openai
    base_url: %s
    requires_api_key: false
    supported_models: [m]
    rate_limit: {requests_per_minute: 1}
    headers: {HTTP-Referer: "https://example.com"}
`, server.URL)

	limiter := ratelimit.New()
	reg := newRegistry(t,
		WithCatalogYAML([]byte(document)),
		WithLimiter(limiter),
		WithRetryPolicy(retry.Policy{Sleep: func(context.Context, time.Duration) error { return nil }}),
	)

	provider, err := reg.CreateProvider(context.Background(), "local")
	require.NoError(t, err)

	request := ai.ChatRequest{Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}}}
	response, err := provider.SendRequest(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "local", response.Provider)
	assert.Nil(t, response.Usage.EstimatedCost)

	_, err = provider.SendRequest(context.Background(), request)
	require.ErrorIs(t, err, ai.ErrRateLimitExceeded)

	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(7), limiter.TokensUsed(context.Background(), "local"))
}
