package mistral

import (
	"encoding/json"

	"github.com/woodman33/llmbridge/core/cost"
	"github.com/woodman33/llmbridge/core/stream"
	"github.com/woodman33/llmbridge/providers/ai"
)

// newChunkDecoder decodes chat.completion.chunk payloads. Mistral sends tool
// calls whole rather than as fragments, so each one is emitted as is.
func (p *Provider) newChunkDecoder(original ai.ChatRequest) stream.ChunkDecoder {
	model := p.config.Model(original)

	return func(payload []byte) (*ai.ChatResponse, bool, error) {
		var wire chatResponse
		if err := json.Unmarshal(payload, &wire); err != nil {
			return nil, false, err
		}

		chunk := &ai.ChatResponse{
			ID:        wire.ID,
			Message:   ai.Message{Role: ai.RoleAssistant},
			Model:     wire.Model,
			Provider:  ProviderID,
			Timestamp: p.timestamp(wire.Created),
		}
		if chunk.Model == "" {
			chunk.Model = model
		}

		emit := false
		for _, choice := range wire.Choices {
			if choice.Index != 0 {
				continue
			}
			if delta := choice.Delta; delta != nil {
				if delta.Content != nil && *delta.Content != "" {
					chunk.Message.Content = *delta.Content
					emit = true
				}
				if len(delta.ToolCalls) > 0 {
					chunk.FunctionCall = functionCall(delta.ToolCalls[0].Function)
					emit = true
				}
			}
			if reason := finishReasons.Normalize(choice.FinishReason); reason != nil {
				chunk.FinishReason = reason
				emit = true
			}
		}
		if wire.Usage != nil {
			chunk.Usage = tokenUsage(wire.Usage)
			cost.PriceUsage(p.pricing, chunk.Model, chunk.Usage)
			emit = true
		}
		return chunk, emit, nil
	}
}
