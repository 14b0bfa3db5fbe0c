package cost

import (
	"fmt"
	"sort"
	"strings"

	"github.com/woodman33/llmbridge/providers/ai"
)

const (
	// CharsPerToken approximates tokenizer output for English text.
	CharsPerToken = 4

	// DefaultCompletionTokens is assumed when a request sets no max tokens.
	DefaultCompletionTokens = 1024
)

// ModelCost represents the pricing structure for a language model.
// Costs are expressed in USD per million tokens.
type ModelCost struct {
	InputCostPerMillion  float64 `json:"input_cost_per_million" yaml:"input_cost_per_million"`
	OutputCostPerMillion float64 `json:"output_cost_per_million" yaml:"output_cost_per_million"`

	// CachedInputCostPerMillion is the discounted rate some vendors charge for
	// prompt-cache hits. Zero when the vendor has none.
	CachedInputCostPerMillion float64 `json:"cached_input_cost_per_million,omitempty" yaml:"cached_input_cost_per_million,omitempty"`
}

// CalculateInputCost calculates the cost for the given number of input tokens.
func (mc ModelCost) CalculateInputCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.InputCostPerMillion
}

// CalculateOutputCost calculates the cost for the given number of output tokens.
func (mc ModelCost) CalculateOutputCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.OutputCostPerMillion
}

// CalculateCachedCost calculates the cost for the given number of cached tokens.
func (mc ModelCost) CalculateCachedCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.CachedInputCostPerMillion
}

// CalculateTotalCost calculates the total cost for input and output tokens.
func (mc ModelCost) CalculateTotalCost(inputTokens, outputTokens int) float64 {
	return mc.CalculateInputCost(inputTokens) + mc.CalculateOutputCost(outputTokens)
}

// String returns a formatted string representation of the model costs.
func (mc ModelCost) String() string {
	return fmt.Sprintf("Input: $%.6f/M, Output: $%.6f/M",
		mc.InputCostPerMillion, mc.OutputCostPerMillion)
}

// Table maps model ids to rates.
type Table map[string]ModelCost

// Lookup finds the rates for model: an exact match first, then the longest
// table key that model starts with ("gpt-4o-2024-08-06" → "gpt-4o").
func (t Table) Lookup(model string) (ModelCost, bool) {
	if rates, ok := t[model]; ok {
		return rates, true
	}

	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	for _, key := range keys {
		if strings.HasPrefix(model, key) {
			return t[key], true
		}
	}
	return ModelCost{}, false
}

// EstimateTokens approximates the token count of text, rounding up.
func EstimateTokens(text string) int {
	chars := len([]rune(text))
	return (chars + CharsPerToken - 1) / CharsPerToken
}

// EstimatePromptTokens approximates the prompt size of request: the system
// prompt, every message, and the serialized function declarations.
func EstimatePromptTokens(request ai.ChatRequest) int {
	total := EstimateTokens(request.SystemPrompt)
	for _, message := range request.Messages {
		total += EstimateTokens(message.Content) + EstimateTokens(message.Name)
	}
	for _, function := range request.Functions {
		total += EstimateTokens(function.Name) + EstimateTokens(function.Description)
		for name, property := range function.Parameters.Properties {
			total += EstimateTokens(name) + EstimateTokens(property.Description)
		}
	}
	return total
}

// EstimateRequest prices request against table for model. It reports false
// when the model has no rates.
func EstimateRequest(table Table, model string, request ai.ChatRequest) (float64, bool) {
	rates, ok := table.Lookup(model)
	if !ok {
		return 0, false
	}
	completion := DefaultCompletionTokens
	if request.MaxTokens != nil && *request.MaxTokens > 0 {
		completion = *request.MaxTokens
	}
	return rates.CalculateTotalCost(EstimatePromptTokens(request), completion), true
}

// PriceUsage fills usage.EstimatedCost from table when the model is priced.
func PriceUsage(table Table, model string, usage *ai.TokenUsage) {
	if usage == nil {
		return
	}
	rates, ok := table.Lookup(model)
	if !ok {
		return
	}
	estimated := rates.CalculateTotalCost(usage.PromptTokens, usage.CompletionTokens)
	usage.EstimatedCost = &estimated
}
