package mistral

import (
	"encoding/json"

	"github.com/woodman33/llmbridge/providers/ai"
)

/*
	CHAT API - INPUT
*/

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	Tools       []tool        `json:"tools,omitempty"`
	ToolChoice  any           `json:"tool_choice,omitempty"` // "auto", "none", "any" or a named function object
}

type chatMessage struct {
	Role      string     `json:"role"` // system, user, assistant, tool
	Content   string     `json:"content"`
	Name      string     `json:"name,omitempty"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type tool struct {
	Type     string             `json:"type"`
	Function functionDefinition `json:"function"`
}

type functionDefinition struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Parameters  ai.FunctionParameters `json:"parameters"`
}

type namedToolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

type toolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Index    int          `json:"index,omitempty"`
	Function toolFunction `json:"function"`
}

// toolFunction carries arguments either as a JSON string or, from some
// models, as an inline object.
type toolFunction struct {
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

/*
	CHAT API - OUTPUT
*/

type chatResponse struct {
	ID      string   `json:"id"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

type choice struct {
	Index        int           `json:"index"`
	Message      *replyMessage `json:"message,omitempty"`
	Delta        *replyMessage `json:"delta,omitempty"`
	FinishReason string        `json:"finish_reason"`
}

type replyMessage struct {
	Role      string     `json:"role,omitempty"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

var consumedResponseFields = []string{"id", "created", "model", "choices", "usage"}

// passthroughFields are request metadata keys forwarded as top-level fields.
var passthroughFields = []string{"top_p", "random_seed", "safe_prompt", "stop", "presence_penalty", "frequency_penalty", "n"}

var finishReasons = ai.FinishReasonTable{
	"stop":         ai.FinishReasonStop,
	"length":       ai.FinishReasonLength,
	"model_length": ai.FinishReasonLength,
	"tool_calls":   ai.FinishReasonFunctionCall,
	"error":        ai.FinishReasonError,
}
