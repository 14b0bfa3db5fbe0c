package gemini

import "github.com/woodman33/llmbridge/core/cost"

// Model name constants for Gemini models.
const (
	Model25Pro       = "gemini-2.5-pro"
	Model25Flash     = "gemini-2.5-flash"
	Model25FlashLite = "gemini-2.5-flash-lite"
	Model20Flash     = "gemini-2.0-flash"
	Model20FlashLite = "gemini-2.0-flash-lite"
	Model15Pro       = "gemini-1.5-pro"
	Model15Flash     = "gemini-1.5-flash"
)

// ModelPricing holds list prices in USD per million tokens at the standard
// context tier (≤200k tokens for 2.5, ≤128k for 1.5). Dated and suffixed
// variants ("gemini-2.0-flash-001") resolve to their family by prefix.
var ModelPricing = cost.Table{
	// Input $1.25, output $10.00, cached input at 50%.
	Model25Pro: {InputCostPerMillion: 1.25, OutputCostPerMillion: 10.00, CachedInputCostPerMillion: 0.625},

	Model25Flash:     {InputCostPerMillion: 0.30, OutputCostPerMillion: 2.50, CachedInputCostPerMillion: 0.15},
	Model25FlashLite: {InputCostPerMillion: 0.10, OutputCostPerMillion: 0.40, CachedInputCostPerMillion: 0.05},
	Model20Flash:     {InputCostPerMillion: 0.10, OutputCostPerMillion: 0.40, CachedInputCostPerMillion: 0.05},
	Model20FlashLite: {InputCostPerMillion: 0.075, OutputCostPerMillion: 0.30, CachedInputCostPerMillion: 0.0375},

	// Legacy 1.5 models, 75% cache discount.
	Model15Pro:   {InputCostPerMillion: 1.25, OutputCostPerMillion: 5.00, CachedInputCostPerMillion: 0.3125},
	Model15Flash: {InputCostPerMillion: 0.075, OutputCostPerMillion: 0.30, CachedInputCostPerMillion: 0.01875},
}
