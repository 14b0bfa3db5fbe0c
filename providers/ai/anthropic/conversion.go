package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/ai/dispatch"
)

// TransformRequest encodes request as a Messages API body.
func (p *Provider) TransformRequest(request ai.ChatRequest) ([]byte, error) {
	system, conversation := request.SplitSystem()

	payload := messagesRequest{
		Model:       p.config.Model(request),
		Messages:    convertMessages(conversation),
		System:      system,
		MaxTokens:   DefaultMaxTokens,
		Temperature: ai.ClampTemperature(request.Temperature, minTemperature, maxTemperature),
		Stream:      request.Stream,
	}
	if request.MaxTokens != nil && *request.MaxTokens > 0 {
		payload.MaxTokens = *request.MaxTokens
	}
	if userID := request.MetadataString("userId"); userID != "" {
		payload.Metadata = &requestMetadata{UserID: userID}
	}

	for _, function := range request.Functions {
		schema := function.Parameters
		if schema.Type == "" {
			schema.Type = "object"
		}
		if schema.Properties == nil {
			schema.Properties = map[string]ai.FunctionProperty{}
		}
		payload.Tools = append(payload.Tools, anthropicTool{
			Name:        function.Name,
			Description: function.Description,
			InputSchema: schema,
		})
	}
	if len(payload.Tools) > 0 {
		payload.ToolChoice, payload.Tools = convertToolChoice(request.FunctionCall, payload.Tools)
	}

	return dispatch.EncodeJSON(payload, request.Passthrough(ai.SnakeCase, "top_p", "top_k", "stop_sequences"))
}

// convertMessages maps the conversation onto alternating user/assistant
// turns. Function results become user text naming the function, and
// consecutive messages with the same role share one turn.
func convertMessages(messages []ai.Message) []anthropicMessage {
	converted := make([]anthropicMessage, 0, len(messages))
	for _, message := range messages {
		role := "user"
		text := message.Content
		switch message.Role {
		case ai.RoleAssistant:
			role = "assistant"
		case ai.RoleFunction:
			text = fmt.Sprintf("Result of function %s: %s", message.Name, message.Content)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		block := contentBlock{Type: "text", Text: text}
		if last := len(converted) - 1; last >= 0 && converted[last].Role == role {
			converted[last].Content = append(converted[last].Content, block)
			continue
		}
		converted = append(converted, anthropicMessage{Role: role, Content: []contentBlock{block}})
	}
	return converted
}

// convertToolChoice maps the directive onto tool_choice. The API has no
// "none" choice; tools are withheld instead.
func convertToolChoice(directive *ai.FunctionCallDirective, tools []anthropicTool) (*toolChoice, []anthropicTool) {
	if directive == nil {
		return nil, tools
	}
	switch directive.Mode {
	case ai.FunctionCallNone:
		return nil, nil
	case ai.FunctionCallRequired:
		return &toolChoice{Type: "any"}, tools
	case ai.FunctionCallNamed:
		return &toolChoice{Type: "tool", Name: directive.Name}, tools
	}
	return &toolChoice{Type: "auto"}, tools
}

// TransformResponse decodes a complete Messages API body. Text blocks are
// concatenated; the first tool_use block becomes the function call.
func (p *Provider) TransformResponse(body []byte, original ai.ChatRequest) (*ai.ChatResponse, error) {
	var wire messagesResponse
	if err := dispatch.DecodeJSON(body, &wire); err != nil {
		return nil, err
	}
	if wire.Type == "error" {
		return nil, ai.NewDecodingError(fmt.Errorf("unexpected error object in a successful response: %s", ai.ParseErrorMessage(body)))
	}

	response := &ai.ChatResponse{
		ID:           wire.ID,
		Message:      ai.Message{Role: ai.RoleAssistant},
		FinishReason: finishReasons.Normalize(wire.StopReason),
		Model:        wire.Model,
		Provider:     ProviderID,
		Timestamp:    p.now().UTC(),
		Metadata:     dispatch.Extras(body, consumedResponseFields...),
	}
	if response.Model == "" {
		response.Model = p.config.Model(original)
	}

	var text strings.Builder
	for _, block := range wire.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			if response.FunctionCall == nil {
				response.FunctionCall = &ai.FunctionCall{Name: block.Name, Arguments: toolInput(block.Input)}
			}
		}
	}
	response.Message.Content = text.String()

	if wire.Usage != nil {
		response.Usage = p.tokenUsage(response.Model, wire.Usage)
	}
	return response, nil
}

// toolInput renders a tool_use input object as argument text.
func toolInput(input json.RawMessage) string {
	if len(input) == 0 || string(input) == "null" {
		return "{}"
	}
	return string(input)
}

// tokenUsage counts cache writes and reads as prompt tokens and prices cache
// reads at the discounted rate.
func (p *Provider) tokenUsage(model string, wire *usage) *ai.TokenUsage {
	prompt := wire.InputTokens + wire.CacheCreationInputTokens + wire.CacheReadInputTokens
	converted := ai.NewTokenUsage(prompt, wire.OutputTokens)

	rates, ok := p.pricing.Lookup(model)
	if !ok {
		return converted
	}
	estimated := rates.CalculateTotalCost(prompt-wire.CacheReadInputTokens, wire.OutputTokens) +
		rates.CalculateCachedCost(wire.CacheReadInputTokens)
	converted.EstimatedCost = &estimated
	return converted
}
