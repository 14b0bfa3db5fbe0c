package anthropic

import "github.com/woodman33/llmbridge/core/cost"

// Model name constants for the Claude models in the default catalog.
const (
	ModelClaudeOpus4    = "claude-opus-4-1"
	ModelClaudeSonnet4  = "claude-sonnet-4-5"
	ModelClaudeHaiku45  = "claude-haiku-4-5"
	ModelClaude35Haiku  = "claude-3-5-haiku-latest"
	ModelClaude37Sonnet = "claude-3-7-sonnet-latest"
)

// ModelPricing holds list prices in USD per million tokens. Cache reads are
// billed at a tenth of the input rate.
var ModelPricing = cost.Table{
	ModelClaudeOpus4:    {InputCostPerMillion: 15.00, OutputCostPerMillion: 75.00, CachedInputCostPerMillion: 1.50},
	ModelClaudeSonnet4:  {InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00, CachedInputCostPerMillion: 0.30},
	ModelClaudeHaiku45:  {InputCostPerMillion: 1.00, OutputCostPerMillion: 5.00, CachedInputCostPerMillion: 0.10},
	ModelClaude35Haiku:  {InputCostPerMillion: 0.80, OutputCostPerMillion: 4.00, CachedInputCostPerMillion: 0.08},
	ModelClaude37Sonnet: {InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00, CachedInputCostPerMillion: 0.30},
}
