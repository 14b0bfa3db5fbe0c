package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/woodman33/llmbridge/providers/ai"
)

/*
	ANTHROPIC MESSAGES API - REQUEST TYPES
*/

// messagesRequest is the request body for the Messages API.
type messagesRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"` // Required by Anthropic on every request
	Temperature *float64           `json:"temperature,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	ToolChoice  *toolChoice        `json:"tool_choice,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
	Metadata    *requestMetadata   `json:"metadata,omitempty"`
}

// anthropicMessage alternates between "user" and "assistant".
type anthropicMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock is a discriminated union on Type:
//   - "text": Text
//   - "tool_use": ID, Name, Input
type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicTool struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	InputSchema ai.FunctionParameters `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`           // "auto", "any", "tool"
	Name string `json:"name,omitempty"` // Only for type="tool"
}

type requestMetadata struct {
	UserID string `json:"user_id,omitempty"`
}

/*
	ANTHROPIC MESSAGES API - RESPONSE TYPES
*/

type messagesResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"` // "message"
	Role         string         `json:"role"`
	Content      []contentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   string         `json:"stop_reason"`
	StopSequence string         `json:"stop_sequence,omitempty"`
	Usage        *usage         `json:"usage,omitempty"`
}

type usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

/*
	ANTHROPIC SSE STREAMING

	Events arrive as "event:" + "data:" pairs. Only data lines reach the
	decoder, so the "type" field inside the payload discriminates:

	  message_start → (content_block_start → content_block_delta* → content_block_stop)* →
	  message_delta → message_stop
*/

type streamEvent struct {
	Type         string            `json:"type"`
	Message      *messagesResponse `json:"message,omitempty"`       // message_start
	Index        int               `json:"index,omitempty"`         // content_block_*
	ContentBlock *contentBlock     `json:"content_block,omitempty"` // content_block_start
	Delta        *streamDelta      `json:"delta,omitempty"`         // content_block_delta, message_delta
	Usage        *usage            `json:"usage,omitempty"`         // message_delta
	Error        *streamError      `json:"error,omitempty"`         // error
}

// streamDelta is either a block delta (text_delta, input_json_delta) or,
// on message_delta, the stop reason.
type streamDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

type streamError struct {
	Type    string `json:"type"` // e.g. "overloaded_error"
	Message string `json:"message"`
}

func decodeStreamEvent(payload []byte) (*streamEvent, error) {
	var event streamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("stream event has no type")
	}
	return &event, nil
}

var consumedResponseFields = []string{"id", "role", "content", "model", "stop_reason", "usage"}

var finishReasons = ai.FinishReasonTable{
	"end_turn":      ai.FinishReasonStop,
	"stop_sequence": ai.FinishReasonStop,
	"pause_turn":    ai.FinishReasonStop,
	"max_tokens":    ai.FinishReasonLength,
	"tool_use":      ai.FinishReasonFunctionCall,
	"refusal":       ai.FinishReasonContentFilter,
}
