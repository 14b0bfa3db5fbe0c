package openai

import (
	"encoding/json"

	"github.com/woodman33/llmbridge/core/cost"
	"github.com/woodman33/llmbridge/core/stream"
	"github.com/woodman33/llmbridge/providers/ai"
)

// newChunkDecoder returns a decoder for chat.completion.chunk payloads. A
// chunk is emitted when it carries a content delta, a function-call
// fragment, a finish reason or usage; role-only and empty deltas are dropped.
func (p *Provider) newChunkDecoder(original ai.ChatRequest) stream.ChunkDecoder {
	fallbackModel := p.config.Model(original)

	return func(payload []byte) (*ai.ChatResponse, bool, error) {
		var wire chatCompletionResponse
		if err := json.Unmarshal(payload, &wire); err != nil {
			return nil, false, err
		}

		chunk := &ai.ChatResponse{
			ID:        wire.ID,
			Message:   ai.Message{Role: ai.RoleAssistant},
			Model:     wire.Model,
			Provider:  p.id,
			Timestamp: p.timestamp(wire.Created),
		}
		if chunk.Model == "" {
			chunk.Model = fallbackModel
		}

		emit := false
		if len(wire.Choices) > 0 {
			choice := wire.Choices[0]
			if choice.Delta != nil {
				if choice.Delta.Content != nil && *choice.Delta.Content != "" {
					chunk.Message.Content = *choice.Delta.Content
					emit = true
				}
				if call := functionCallFromWire(choice.Delta); call != nil {
					chunk.FunctionCall = call
					emit = true
				}
			}
			if reason := finishReasons.Normalize(choice.FinishReason); reason != nil {
				chunk.FinishReason = reason
				emit = true
			}
		}
		if wire.Usage != nil {
			chunk.Usage = usageFromWire(wire.Usage)
			cost.PriceUsage(p.pricing, chunk.Model, chunk.Usage)
			emit = true
		}
		return chunk, emit, nil
	}
}
