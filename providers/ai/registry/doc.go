// Package registry is the provider factory. It owns the catalog of known
// providers (openai, anthropic, mistral, gemini and a local ollama by default),
// precomputes their capabilities, and builds adapters wired to a shared rate
// limiter, transport and retry policy.
//
// Keys come from a [credential.Lookup]; base URLs can be overridden per
// provider with <ID>_API_BASE_URL. A YAML catalog can adjust built-in entries
// or add OpenAI-compatible ones:
//
//	reg, err := registry.New(
//		registry.WithCredentials(credential.DefaultChain(nil, nil)),
//		registry.WithCatalogYAML(catalog),
//	)
//	provider, err := reg.CreateProvider(ctx, "anthropic")
package registry
