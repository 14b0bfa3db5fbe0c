package gemini

import (
	"encoding/json"

	"github.com/woodman33/llmbridge/core/stream"
	"github.com/woodman33/llmbridge/providers/ai"
)

// newChunkDecoder decodes streamGenerateContent payloads. Each payload is a
// complete GenerateContentResponse holding the next slice of text. The id is
// fixed on the first chunk so every chunk of one stream shares it, and usage
// is attached only once a finish reason arrives.
func (p *Provider) newChunkDecoder(original ai.ChatRequest) stream.ChunkDecoder {
	var id string

	return func(payload []byte) (*ai.ChatResponse, bool, error) {
		var wire generateContentResponse
		if err := json.Unmarshal(payload, &wire); err != nil {
			return nil, false, err
		}
		if id == "" {
			id = p.responseID(wire.ResponseID)
		}

		final := false
		for _, candidate := range wire.Candidates {
			final = final || candidate.FinishReason != ""
		}
		if len(wire.Candidates) == 0 && wire.PromptFeedback != nil && wire.PromptFeedback.BlockReason != "" {
			final = true
		}

		chunk := p.convertResponse(&wire, original, id, final)
		emit := chunk.Message.Content != "" || chunk.FunctionCall != nil || chunk.FinishReason != nil || chunk.Usage != nil
		return chunk, emit, nil
	}
}
