package openai

import (
	"fmt"

	"github.com/woodman33/llmbridge/core/cost"
	"github.com/woodman33/llmbridge/internal/utils"
	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/ai/dispatch"
)

// TransformRequest encodes request as a chat completions body.
func (p *Provider) TransformRequest(request ai.ChatRequest) ([]byte, error) {
	payload := chatCompletionRequest{
		Model:       p.config.Model(request),
		Messages:    messagesToWire(request.WithLeadingSystem()),
		Temperature: ai.ClampTemperature(request.Temperature, minTemperature, maxTemperature),
		MaxTokens:   request.MaxTokens,
		Stream:      request.Stream,
		User:        request.MetadataString("user"),
	}
	if request.Stream {
		payload.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	for _, function := range request.Functions {
		payload.Functions = append(payload.Functions, chatFunction{
			Name:        function.Name,
			Description: function.Description,
			Parameters:  normalizeParameters(function.Parameters),
		})
	}
	if len(payload.Functions) > 0 {
		payload.FunctionCall = functionCallToWire(request.FunctionCall)
	}

	return dispatch.EncodeJSON(payload, request.Passthrough(ai.SnakeCase, passthroughFields...))
}

func messagesToWire(messages []ai.Message) []chatMessage {
	wire := make([]chatMessage, 0, len(messages))
	for _, message := range messages {
		converted := chatMessage{
			Role:    string(message.Role),
			Content: utils.Ptr(message.Content),
		}
		if message.Role == ai.RoleFunction {
			converted.Name = message.Name
		}
		wire = append(wire, converted)
	}
	return wire
}

// functionCallToWire maps the directive onto the legacy function_call field.
// The legacy API has no "required" mode; it is sent as "auto".
func functionCallToWire(directive *ai.FunctionCallDirective) any {
	if directive == nil {
		return nil
	}
	switch directive.Mode {
	case ai.FunctionCallNone:
		return "none"
	case ai.FunctionCallNamed:
		return map[string]string{"name": directive.Name}
	}
	return "auto"
}

func normalizeParameters(parameters ai.FunctionParameters) ai.FunctionParameters {
	if parameters.Type == "" {
		parameters.Type = "object"
	}
	if parameters.Properties == nil {
		parameters.Properties = map[string]ai.FunctionProperty{}
	}
	return parameters
}

// TransformResponse decodes a complete chat completions body.
func (p *Provider) TransformResponse(body []byte, original ai.ChatRequest) (*ai.ChatResponse, error) {
	var wire chatCompletionResponse
	if err := dispatch.DecodeJSON(body, &wire); err != nil {
		return nil, err
	}
	if len(wire.Choices) == 0 {
		return nil, ai.NewDecodingError(fmt.Errorf("response %q has no choices", wire.ID))
	}

	choice := wire.Choices[0]
	response := &ai.ChatResponse{
		ID:           wire.ID,
		Message:      ai.Message{Role: ai.RoleAssistant},
		FinishReason: finishReasons.Normalize(choice.FinishReason),
		Model:        wire.Model,
		Provider:     p.id,
		Timestamp:    p.timestamp(wire.Created),
		Metadata:     dispatch.Extras(body, consumedResponseFields...),
	}
	if response.Model == "" {
		response.Model = p.config.Model(original)
	}
	if choice.Message != nil {
		if choice.Message.Content != nil {
			response.Message.Content = *choice.Message.Content
		}
		response.FunctionCall = functionCallFromWire(choice.Message)
	}
	if wire.Usage != nil {
		response.Usage = usageFromWire(wire.Usage)
		cost.PriceUsage(p.pricing, response.Model, response.Usage)
	}
	return response, nil
}

// functionCallFromWire reads the legacy function_call field, falling back to
// the first tool call for servers that only speak the tools format.
func functionCallFromWire(message *chatMessage) *ai.FunctionCall {
	if message.FunctionCall != nil && (message.FunctionCall.Name != "" || message.FunctionCall.Arguments != "") {
		return &ai.FunctionCall{Name: message.FunctionCall.Name, Arguments: message.FunctionCall.Arguments}
	}
	if len(message.ToolCalls) > 0 {
		call := message.ToolCalls[0].Function
		return &ai.FunctionCall{Name: call.Name, Arguments: call.Arguments}
	}
	return nil
}

func usageFromWire(usage *chatUsage) *ai.TokenUsage {
	converted := ai.NewTokenUsage(usage.PromptTokens, usage.CompletionTokens)
	if usage.TotalTokens > converted.TotalTokens {
		converted.TotalTokens = usage.TotalTokens
	}
	return converted
}
