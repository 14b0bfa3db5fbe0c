package mistral

import "github.com/woodman33/llmbridge/core/cost"

// Model name constants for the Mistral chat models in the default catalog.
const (
	ModelLarge     = "mistral-large-latest"
	ModelMedium    = "mistral-medium-latest"
	ModelSmall     = "mistral-small-latest"
	ModelCodestral = "codestral-latest"
	ModelNemo      = "open-mistral-nemo"
)

// ModelPricing holds list prices in USD per million tokens.
var ModelPricing = cost.Table{
	ModelLarge:     {InputCostPerMillion: 2.00, OutputCostPerMillion: 6.00},
	ModelMedium:    {InputCostPerMillion: 0.40, OutputCostPerMillion: 2.00},
	ModelSmall:     {InputCostPerMillion: 0.10, OutputCostPerMillion: 0.30},
	ModelCodestral: {InputCostPerMillion: 0.30, OutputCostPerMillion: 0.90},
	ModelNemo:      {InputCostPerMillion: 0.15, OutputCostPerMillion: 0.15},
}
