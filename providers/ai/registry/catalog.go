package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/ai/anthropic"
	"github.com/woodman33/llmbridge/providers/ai/gemini"
	"github.com/woodman33/llmbridge/providers/ai/mistral"
	"github.com/woodman33/llmbridge/providers/ai/openai"
)

// Adapter names the wire format a catalog entry speaks.
type Adapter string

const (
	AdapterOpenAI    Adapter = "openai"
	AdapterAnthropic Adapter = "anthropic"
	AdapterMistral   Adapter = "mistral"
	AdapterGemini    Adapter = "gemini"
)

// Entry is one provider known to the registry.
type Entry struct {
	ID            string                   `yaml:"-"`
	Adapter       Adapter                  `yaml:"adapter"`
	Configuration ai.ProviderConfiguration `yaml:",inline"`
}

// DefaultCatalog returns the built-in providers in registration order.
func DefaultCatalog() []Entry {
	return []Entry{
		{ID: openai.ProviderID, Adapter: AdapterOpenAI, Configuration: openai.Configuration()},
		{ID: anthropic.ProviderID, Adapter: AdapterAnthropic, Configuration: anthropic.Configuration()},
		{ID: mistral.ProviderID, Adapter: AdapterMistral, Configuration: mistral.Configuration()},
		{ID: gemini.ProviderID, Adapter: AdapterGemini, Configuration: gemini.Configuration()},
		{ID: openai.OllamaProviderID, Adapter: AdapterOpenAI, Configuration: openai.OllamaConfiguration()},
	}
}

// capabilities derives the static capabilities of e from its adapter.
func (e Entry) capabilities() ai.ProviderCapabilities {
	switch e.Adapter {
	case AdapterAnthropic:
		return anthropic.Capabilities(e.Configuration)
	case AdapterMistral:
		return mistral.Capabilities(e.Configuration)
	case AdapterGemini:
		return gemini.Capabilities(e.Configuration)
	}
	return openai.Capabilities(e.Configuration)
}

// validate checks the adapter binding. Only the OpenAI-compatible adapter can
// serve an arbitrary id; the others report a fixed provider id.
func (e Entry) validate() error {
	if e.ID == "" {
		return errors.New("provider id is required")
	}
	switch e.Adapter {
	case AdapterOpenAI:
		return nil
	case AdapterAnthropic, AdapterMistral, AdapterGemini:
		if string(e.Adapter) != e.ID {
			return fmt.Errorf("provider %q: adapter %q only serves provider %q", e.ID, e.Adapter, e.Adapter)
		}
		return nil
	case "":
		return fmt.Errorf("provider %q: adapter is required", e.ID)
	}
	return fmt.Errorf("provider %q: unknown adapter %q (supported: %s, %s, %s, %s)",
		e.ID, e.Adapter, AdapterOpenAI, AdapterAnthropic, AdapterMistral, AdapterGemini)
}

type catalogFile struct {
	Providers yaml.Node `yaml:"providers"`
}

// mergeCatalog applies a YAML document onto entries. A document looks like:
//
//	providers:
//	  openai:
//	    default_model: gpt-4.1-mini
//	    rate_limit: {requests_per_minute: 60}
//	  openrouter:
//	    adapter: openai
//	    base_url: https://openrouter.ai/api/v1
//	    requires_api_key: true
//	    supported_models: [openai/gpt-4o]
//
// Keys present in the document override a known entry field by field; an
// unknown id appends a new entry. Document order is preserved.
func mergeCatalog(entries []Entry, document []byte) ([]Entry, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(document))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		return nil, fmt.Errorf("decode provider catalog: %w", err)
	}
	if file.Providers.Kind == 0 {
		return entries, nil
	}
	if file.Providers.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode provider catalog: line %d: providers must be a mapping", file.Providers.Line)
	}

	index := make(map[string]int, len(entries))
	for i, entry := range entries {
		index[entry.ID] = i
	}

	content := file.Providers.Content
	for i := 0; i+1 < len(content); i += 2 {
		id := content[i].Value
		position, known := index[id]
		entry := Entry{ID: id}
		if known {
			entry = entries[position]
		}
		if err := content[i+1].Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode provider %q: %w", id, err)
		}
		entry.ID = id
		if known {
			entries[position] = entry
			continue
		}
		index[id] = len(entries)
		entries = append(entries, entry)
	}
	return entries, nil
}
