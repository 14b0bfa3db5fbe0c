package openai

import "github.com/woodman33/llmbridge/providers/ai"

/*
	CHAT COMPLETIONS API - INPUT
*/

type chatCompletionRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Temperature   *float64       `json:"temperature,omitempty"`
	MaxTokens     *int           `json:"max_tokens,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
	Functions     []chatFunction `json:"functions,omitempty"`
	FunctionCall  any            `json:"function_call,omitempty"` // "auto", "none", or {"name": ...}
	User          string         `json:"user,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role         string            `json:"role"` // system, user, assistant, function
	Content      *string           `json:"content"`
	Name         string            `json:"name,omitempty"`
	FunctionCall *chatFunctionCall `json:"function_call,omitempty"`
	ToolCalls    []chatToolCall    `json:"tool_calls,omitempty"` // returned by some compatible servers
}

type chatFunction struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Parameters  ai.FunctionParameters `json:"parameters"`
}

type chatFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function chatFunctionCall `json:"function"`
}

/*
	CHAT COMPLETIONS API - OUTPUT
*/

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	Delta        *chatMessage `json:"delta,omitempty"`
	FinishReason string       `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// consumedResponseFields are the top-level response keys the adapter maps
// itself; everything else lands in the response metadata.
var consumedResponseFields = []string{"id", "created", "model", "choices", "usage"}

// passthroughFields are request metadata keys forwarded as top-level fields.
var passthroughFields = []string{"seed", "top_p", "stop", "presence_penalty", "frequency_penalty", "logit_bias", "n"}

var finishReasons = ai.FinishReasonTable{
	"stop":           ai.FinishReasonStop,
	"length":         ai.FinishReasonLength,
	"function_call":  ai.FinishReasonFunctionCall,
	"tool_calls":     ai.FinishReasonFunctionCall,
	"content_filter": ai.FinishReasonContentFilter,
}
