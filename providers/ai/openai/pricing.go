package openai

import "github.com/woodman33/llmbridge/core/cost"

// Model name constants for commonly used OpenAI chat models.
const (
	ModelGPT4o      = "gpt-4o"
	ModelGPT4oMini  = "gpt-4o-mini"
	ModelGPT41      = "gpt-4.1"
	ModelGPT41Mini  = "gpt-4.1-mini"
	ModelGPT41Nano  = "gpt-4.1-nano"
	ModelGPT35Turbo = "gpt-3.5-turbo"
)

// ModelPricing holds list prices in USD per million tokens. Dated snapshots
// ("gpt-4o-2024-08-06") resolve to their family by prefix.
var ModelPricing = cost.Table{
	ModelGPT4o:      {InputCostPerMillion: 2.50, OutputCostPerMillion: 10.00, CachedInputCostPerMillion: 1.25},
	ModelGPT4oMini:  {InputCostPerMillion: 0.15, OutputCostPerMillion: 0.60, CachedInputCostPerMillion: 0.075},
	ModelGPT41:      {InputCostPerMillion: 2.00, OutputCostPerMillion: 8.00, CachedInputCostPerMillion: 0.50},
	ModelGPT41Mini:  {InputCostPerMillion: 0.40, OutputCostPerMillion: 1.60, CachedInputCostPerMillion: 0.10},
	ModelGPT41Nano:  {InputCostPerMillion: 0.10, OutputCostPerMillion: 0.40, CachedInputCostPerMillion: 0.025},
	ModelGPT35Turbo: {InputCostPerMillion: 0.50, OutputCostPerMillion: 1.50},
}
