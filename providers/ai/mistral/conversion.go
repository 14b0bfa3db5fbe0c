package mistral

import (
	"encoding/json"
	"fmt"

	"github.com/woodman33/llmbridge/core/cost"
	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/ai/dispatch"
)

// TransformRequest encodes request as a Mistral chat body.
func (p *Provider) TransformRequest(request ai.ChatRequest) ([]byte, error) {
	payload := chatRequest{
		Model:       p.config.Model(request),
		Temperature: ai.ClampTemperature(request.Temperature, minTemperature, maxTemperature),
		MaxTokens:   request.MaxTokens,
		Stream:      request.Stream,
	}

	for _, message := range request.WithLeadingSystem() {
		role := string(message.Role)
		name := ""
		if message.Role == ai.RoleFunction {
			role, name = "tool", message.Name
		}
		payload.Messages = append(payload.Messages, chatMessage{Role: role, Content: message.Content, Name: name})
	}

	for _, function := range request.Functions {
		parameters := function.Parameters
		if parameters.Type == "" {
			parameters.Type = "object"
		}
		if parameters.Properties == nil {
			parameters.Properties = map[string]ai.FunctionProperty{}
		}
		payload.Tools = append(payload.Tools, tool{
			Type:     "function",
			Function: functionDefinition{Name: function.Name, Description: function.Description, Parameters: parameters},
		})
	}
	if len(payload.Tools) > 0 {
		payload.ToolChoice = toolChoice(request.FunctionCall)
	}

	return dispatch.EncodeJSON(payload, request.Passthrough(ai.SnakeCase, passthroughFields...))
}

// toolChoice maps the directive onto tool_choice: "required" becomes "any",
// a named function becomes a function object.
func toolChoice(directive *ai.FunctionCallDirective) any {
	if directive == nil {
		return nil
	}
	switch directive.Mode {
	case ai.FunctionCallNone:
		return "none"
	case ai.FunctionCallRequired:
		return "any"
	case ai.FunctionCallNamed:
		choice := namedToolChoice{Type: "function"}
		choice.Function.Name = directive.Name
		return choice
	}
	return "auto"
}

// TransformResponse decodes a complete Mistral chat body.
func (p *Provider) TransformResponse(body []byte, original ai.ChatRequest) (*ai.ChatResponse, error) {
	var wire chatResponse
	if err := dispatch.DecodeJSON(body, &wire); err != nil {
		return nil, err
	}
	if len(wire.Choices) == 0 {
		return nil, ai.NewDecodingError(fmt.Errorf("response %q has no choices", wire.ID))
	}

	first := wire.Choices[0]
	response := &ai.ChatResponse{
		ID:           wire.ID,
		Message:      ai.Message{Role: ai.RoleAssistant},
		FinishReason: finishReasons.Normalize(first.FinishReason),
		Model:        wire.Model,
		Provider:     ProviderID,
		Timestamp:    p.timestamp(wire.Created),
		Metadata:     dispatch.Extras(body, consumedResponseFields...),
	}
	if response.Model == "" {
		response.Model = p.config.Model(original)
	}
	if first.Message != nil {
		if first.Message.Content != nil {
			response.Message.Content = *first.Message.Content
		}
		if len(first.Message.ToolCalls) > 0 {
			response.FunctionCall = functionCall(first.Message.ToolCalls[0].Function)
		}
	}
	if wire.Usage != nil {
		response.Usage = tokenUsage(wire.Usage)
		cost.PriceUsage(p.pricing, response.Model, response.Usage)
	}
	return response, nil
}

func functionCall(function toolFunction) *ai.FunctionCall {
	return &ai.FunctionCall{Name: function.Name, Arguments: argumentsText(function.Arguments)}
}

// argumentsText returns arguments as JSON text whether they arrived as an
// encoded string or an inline object.
func argumentsText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(raw)
}

func tokenUsage(wire *usage) *ai.TokenUsage {
	converted := ai.NewTokenUsage(wire.PromptTokens, wire.CompletionTokens)
	if wire.TotalTokens > converted.TotalTokens {
		converted.TotalTokens = wire.TotalTokens
	}
	return converted
}
