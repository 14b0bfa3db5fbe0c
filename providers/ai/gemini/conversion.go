package gemini

import (
	"encoding/json"
	"strings"

	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/ai/dispatch"
)

// TransformRequest encodes request as a generateContent body.
func (p *Provider) TransformRequest(request ai.ChatRequest) ([]byte, error) {
	system, conversation := request.SplitSystem()

	payload := generateContentRequest{Contents: buildContents(conversation)}
	if system != "" {
		payload.SystemInstruction = &systemInstruction{Parts: []part{{Text: system}}}
	}

	config := generationConfig{
		Temperature:     ai.ClampTemperature(request.Temperature, minTemperature, maxTemperature),
		MaxOutputTokens: request.MaxTokens,
	}
	encodedConfig, err := dispatch.EncodeJSON(config, request.Passthrough(ai.CamelCase, generationFields...))
	if err != nil {
		return nil, err
	}
	if string(encodedConfig) != "{}" {
		payload.GenerationConfig = encodedConfig
	}

	if len(request.Functions) > 0 {
		declarations := make([]functionDeclaration, 0, len(request.Functions))
		for _, function := range request.Functions {
			parameters := function.Parameters
			if parameters.Type == "" {
				parameters.Type = "object"
			}
			if parameters.Properties == nil {
				parameters.Properties = map[string]ai.FunctionProperty{}
			}
			declarations = append(declarations, functionDeclaration{
				Name:        function.Name,
				Description: function.Description,
				Parameters:  parameters,
			})
		}
		payload.Tools = []tool{{FunctionDeclarations: declarations}}
		payload.ToolConfig = buildToolConfig(request.FunctionCall)
	}

	return dispatch.EncodeJSON(payload, request.Passthrough(ai.CamelCase, topLevelFields...))
}

// buildContents maps messages onto turns: assistant becomes "model" and
// function results become "function" turns with a functionResponse part.
func buildContents(messages []ai.Message) []content {
	contents := make([]content, 0, len(messages))
	for _, message := range messages {
		switch message.Role {
		case ai.RoleAssistant:
			contents = append(contents, content{Role: "model", Parts: []part{{Text: message.Content}}})
		case ai.RoleFunction:
			contents = append(contents, content{
				Role: "function",
				Parts: []part{{FunctionResponse: &functionResponse{
					Name:     message.Name,
					Response: responseObject(message.Content),
				}}},
			})
		default:
			contents = append(contents, content{Role: "user", Parts: []part{{Text: message.Content}}})
		}
	}
	return contents
}

// responseObject returns the function result as the JSON object Gemini
// requires: an object result is sent as is, anything else is wrapped under
// "content".
func responseObject(result string) ai.Value {
	if value, err := ai.ParseValue([]byte(strings.TrimSpace(result))); err == nil && value.Kind() == ai.KindObject {
		return value
	}
	return ai.Object(map[string]ai.Value{"content": ai.String(result)})
}

// buildToolConfig maps the directive onto functionCallingConfig. A named
// function is ANY restricted to that name.
func buildToolConfig(directive *ai.FunctionCallDirective) *toolConfig {
	if directive == nil {
		return nil
	}
	config := &functionCallingConfig{Mode: "AUTO"}
	switch directive.Mode {
	case ai.FunctionCallNone:
		config.Mode = "NONE"
	case ai.FunctionCallRequired:
		config.Mode = "ANY"
	case ai.FunctionCallNamed:
		config.Mode = "ANY"
		config.AllowedFunctionNames = []string{directive.Name}
	}
	return &toolConfig{FunctionCallingConfig: config}
}

// TransformResponse decodes a complete generateContent body.
func (p *Provider) TransformResponse(body []byte, original ai.ChatRequest) (*ai.ChatResponse, error) {
	var wire generateContentResponse
	if err := dispatch.DecodeJSON(body, &wire); err != nil {
		return nil, err
	}

	response := p.convertResponse(&wire, original, p.responseID(wire.ResponseID), true)
	response.Metadata = dispatch.Extras(body, consumedResponseFields...)
	return response, nil
}

func (p *Provider) responseID(responseID string) string {
	if responseID != "" {
		return responseID
	}
	return p.newID()
}

// convertResponse maps one response (or stream chunk) onto a ChatResponse.
// withUsage is false for stream chunks that are not final, since Gemini
// repeats running totals on every chunk.
func (p *Provider) convertResponse(wire *generateContentResponse, original ai.ChatRequest, id string, withUsage bool) *ai.ChatResponse {
	response := &ai.ChatResponse{
		ID:        id,
		Message:   ai.Message{Role: ai.RoleAssistant},
		Model:     wire.ModelVersion,
		Provider:  ProviderID,
		Timestamp: p.now().UTC(),
	}
	if response.Model == "" {
		response.Model = p.config.Model(original)
	}

	if len(wire.Candidates) > 0 {
		first := wire.Candidates[0]
		response.FinishReason = finishReasons.Normalize(first.FinishReason)
		if first.Content != nil {
			var text strings.Builder
			for _, piece := range first.Content.Parts {
				if piece.FunctionCall != nil && response.FunctionCall == nil {
					response.FunctionCall = &ai.FunctionCall{Name: piece.FunctionCall.Name, Arguments: argumentsText(piece.FunctionCall.Args)}
					continue
				}
				if !piece.Thought {
					text.WriteString(piece.Text)
				}
			}
			response.Message.Content = text.String()
		}
	} else if wire.PromptFeedback != nil && wire.PromptFeedback.BlockReason != "" {
		response.FinishReason = ai.FinishReasonContentFilter.Ptr()
	}

	// A STOP with a function call is a function call.
	if response.FunctionCall != nil && response.FinishReason != nil && *response.FinishReason == ai.FinishReasonStop {
		response.FinishReason = ai.FinishReasonFunctionCall.Ptr()
	}

	if withUsage && wire.UsageMetadata != nil {
		response.Usage = p.tokenUsage(response.Model, wire.UsageMetadata)
	}
	return response
}

func argumentsText(args json.RawMessage) string {
	if len(args) == 0 || string(args) == "null" {
		return "{}"
	}
	return string(args)
}

// tokenUsage counts thinking tokens as completion tokens and prices cached
// prompt tokens at the discounted rate.
func (p *Provider) tokenUsage(model string, wire *usageMetadata) *ai.TokenUsage {
	completion := wire.CandidatesTokenCount + wire.ThoughtsTokenCount
	usage := ai.NewTokenUsage(wire.PromptTokenCount, completion)
	if wire.TotalTokenCount > usage.TotalTokens {
		usage.TotalTokens = wire.TotalTokenCount
	}

	if rates, ok := p.pricing.Lookup(model); ok {
		cached := min(wire.CachedContentTokenCount, wire.PromptTokenCount)
		estimated := rates.CalculateTotalCost(wire.PromptTokenCount-cached, completion) + rates.CalculateCachedCost(cached)
		usage.EstimatedCost = &estimated
	}
	return usage
}
