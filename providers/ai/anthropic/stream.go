package anthropic

import (
	"github.com/woodman33/llmbridge/core/stream"
	"github.com/woodman33/llmbridge/providers/ai"
)

// streamState carries what message_start announces across the events of
// one stream. The decoder runs on the consumer's goroutine, one payload at a
// time, so it needs no locking.
type streamState struct {
	id          string
	model       string
	inputUsage  usage
	toolBlock   int
	inToolBlock bool
}

// newChunkDecoder returns a stateful decoder for one Messages stream.
func (p *Provider) newChunkDecoder(original ai.ChatRequest) stream.ChunkDecoder {
	state := &streamState{model: p.config.Model(original)}

	return func(payload []byte) (*ai.ChatResponse, bool, error) {
		event, err := decodeStreamEvent(payload)
		if err != nil {
			return nil, false, err
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil {
				state.id = event.Message.ID
				if event.Message.Model != "" {
					state.model = event.Message.Model
				}
				if event.Message.Usage != nil {
					state.inputUsage = *event.Message.Usage
				}
			}
			return nil, false, nil

		case "content_block_start":
			block := event.ContentBlock
			if block == nil {
				return nil, false, nil
			}
			switch block.Type {
			case "tool_use":
				state.toolBlock, state.inToolBlock = event.Index, true
				chunk := p.chunk(state)
				chunk.FunctionCall = &ai.FunctionCall{Name: block.Name}
				return chunk, true, nil
			case "text":
				if block.Text != "" {
					chunk := p.chunk(state)
					chunk.Message.Content = block.Text
					return chunk, true, nil
				}
			}
			return nil, false, nil

		case "content_block_delta":
			if event.Delta == nil {
				return nil, false, nil
			}
			switch event.Delta.Type {
			case "text_delta":
				if event.Delta.Text == "" {
					return nil, false, nil
				}
				chunk := p.chunk(state)
				chunk.Message.Content = event.Delta.Text
				return chunk, true, nil
			case "input_json_delta":
				if !state.inToolBlock || event.Index != state.toolBlock || event.Delta.PartialJSON == "" {
					return nil, false, nil
				}
				chunk := p.chunk(state)
				chunk.FunctionCall = &ai.FunctionCall{Arguments: event.Delta.PartialJSON}
				return chunk, true, nil
			}
			return nil, false, nil

		case "content_block_stop":
			if state.inToolBlock && event.Index == state.toolBlock {
				state.inToolBlock = false
			}
			return nil, false, nil

		case "message_delta":
			chunk := p.chunk(state)
			emit := false
			if event.Delta != nil {
				if reason := finishReasons.Normalize(event.Delta.StopReason); reason != nil {
					chunk.FinishReason = reason
					emit = true
				}
			}
			if event.Usage != nil {
				total := state.inputUsage
				total.OutputTokens = event.Usage.OutputTokens
				if event.Usage.InputTokens > 0 {
					total.InputTokens = event.Usage.InputTokens
				}
				chunk.Usage = p.tokenUsage(state.model, &total)
				emit = true
			}
			return chunk, emit, nil

		case "error":
			chunk := p.chunk(state)
			chunk.FinishReason = ai.FinishReasonError.Ptr()
			if event.Error != nil {
				chunk.Metadata = map[string]ai.Value{
					"error":     ai.String(event.Error.Message),
					"errorType": ai.String(event.Error.Type),
				}
			}
			return chunk, true, nil
		}

		// ping, message_stop and future event types carry nothing to emit.
		return nil, false, nil
	}
}

func (p *Provider) chunk(state *streamState) *ai.ChatResponse {
	return &ai.ChatResponse{
		ID:        state.id,
		Message:   ai.Message{Role: ai.RoleAssistant},
		Model:     state.model,
		Provider:  ProviderID,
		Timestamp: p.now().UTC(),
	}
}
