package ai

import (
	"fmt"
	"slices"
	"time"
)

/*
	##### PROVIDER INPUT #####
*/

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions/configuration
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model response
	RoleFunction  MessageRole = "function"  // Function/tool output fed back to the model
)

// Valid reports whether r is one of the four known roles.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction:
		return true
	}
	return false
}

// Message represents a single message in a conversation
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
	Name    string      `json:"name,omitempty"` // For role=function, name of the function that produced Content
}

// ChatRequest is the unified, vendor-agnostic request contract.
type ChatRequest struct {
	Messages     []Message              `json:"messages"`
	Model        string                 `json:"model,omitempty"`        // Falls back to the provider default model when empty
	Temperature  *float64               `json:"temperature,omitempty"`  // Clamped to the vendor's accepted range
	MaxTokens    *int                   `json:"maxTokens,omitempty"`    // Upper bound on generated tokens
	SystemPrompt string                 `json:"systemPrompt,omitempty"` // Optional system prompt
	Stream       bool                   `json:"stream,omitempty"`
	Functions    []Function             `json:"functions,omitempty"`
	FunctionCall *FunctionCallDirective `json:"functionCall,omitempty"`
	Metadata     map[string]Value       `json:"metadata,omitempty"` // Opaque caller metadata
}

// Validate checks the invariants that must hold before a request is sent to a
// provider. It is called at the adapter boundary, never at construction.
func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return NewInvalidRequest("messages must not be empty")
	}
	for i, message := range r.Messages {
		if !message.Role.Valid() {
			return NewInvalidRequest(fmt.Sprintf("message %d has unknown role %q", i, message.Role))
		}
	}
	for _, function := range r.Functions {
		if err := function.Validate(); err != nil {
			return NewInvalidRequest(err.Error())
		}
	}
	if r.FunctionCall != nil && r.FunctionCall.Mode == FunctionCallNamed && r.FunctionCall.Name == "" {
		return NewInvalidRequest("function call directive names no function")
	}
	return nil
}

// Function declares a callable tool the model may invoke.
type Function struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  FunctionParameters `json:"parameters"`
}

// FunctionParameters is the JSON-schema-like object describing a function's arguments.
type FunctionParameters struct {
	Type       string                      `json:"type"` // always "object"
	Properties map[string]FunctionProperty `json:"properties"`
	Required   []string                    `json:"required,omitempty"`
}

// FunctionProperty describes a single argument.
type FunctionProperty struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
	Items       *FunctionProperty `json:"items,omitempty"` // For type=array
}

// Validate reports whether the declaration is well formed. Every name listed in
// Required must be a key of Properties.
func (f Function) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("function name must not be empty")
	}
	for _, name := range f.Parameters.Required {
		if _, ok := f.Parameters.Properties[name]; !ok {
			return fmt.Errorf("function %q requires undeclared property %q", f.Name, name)
		}
	}
	return nil
}

// FunctionCallMode selects how the model is allowed to call functions.
type FunctionCallMode string

const (
	FunctionCallAuto     FunctionCallMode = "auto"     // Model decides
	FunctionCallNone     FunctionCallMode = "none"     // Model must not call functions
	FunctionCallRequired FunctionCallMode = "required" // Model must call some function
	FunctionCallNamed    FunctionCallMode = "function" // Model must call the function in Name
)

// FunctionCallDirective tells the provider whether and which function to call.
type FunctionCallDirective struct {
	Mode FunctionCallMode `json:"mode"`
	Name string           `json:"name,omitempty"`
}

/*
	##### PROVIDER OUTPUT #####
*/

// FinishReason is the normalized reason a provider stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonFunctionCall  FinishReason = "function_call"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonError         FinishReason = "error"
	FinishReasonCancelled     FinishReason = "cancelled"
)

// TokenUsage reports token accounting for one call.
type TokenUsage struct {
	PromptTokens     int      `json:"promptTokens"`
	CompletionTokens int      `json:"completionTokens"`
	TotalTokens      int      `json:"totalTokens"`
	EstimatedCost    *float64 `json:"estimatedCost,omitempty"` // USD
}

// NewTokenUsage builds a TokenUsage whose total is the sum of prompt and completion.
func NewTokenUsage(prompt, completion int) *TokenUsage {
	return &TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// FunctionCall is a function invocation requested by the model. In streaming
// responses Arguments holds only the fragment carried by that chunk.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is the unified, vendor-agnostic response contract. In a stream
// each partial ChatResponse carries a content delta in Message.Content.
type ChatResponse struct {
	ID           string           `json:"id"`
	Message      Message          `json:"message"`
	FinishReason *FinishReason    `json:"finishReason,omitempty"`
	Usage        *TokenUsage      `json:"usage,omitempty"`
	Model        string           `json:"model"`
	Provider     string           `json:"provider"`
	Timestamp    time.Time        `json:"timestamp"`
	FunctionCall *FunctionCall    `json:"functionCall,omitempty"`
	Metadata     map[string]Value `json:"metadata,omitempty"`
}

/*
	##### PROVIDER DESCRIPTION #####
*/

// RateLimit is the request-count ceiling applied to a provider.
type RateLimit struct {
	RequestsPerMinute int `json:"requestsPerMinute" yaml:"requests_per_minute" validate:"gt=0"`
}

// ProviderConfiguration is the static connection description of a provider.
type ProviderConfiguration struct {
	BaseURL         string            `json:"baseURL" yaml:"base_url" validate:"required,url"`
	RequiresAPIKey  bool              `json:"requiresAPIKey" yaml:"requires_api_key"`
	SupportedModels []string          `json:"supportedModels" yaml:"supported_models" validate:"dive,required"`
	DefaultModel    string            `json:"defaultModel,omitempty" yaml:"default_model"`
	RateLimit       *RateLimit        `json:"rateLimit,omitempty" yaml:"rate_limit" validate:"omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers"` // Extra vendor headers sent on every call
}

// Model returns the model to use for request: the request's own model, else
// the configured default, else the first supported model.
func (c ProviderConfiguration) Model(request ChatRequest) string {
	if request.Model != "" {
		return request.Model
	}
	if c.DefaultModel != "" {
		return c.DefaultModel
	}
	if len(c.SupportedModels) > 0 {
		return c.SupportedModels[0]
	}
	return ""
}

// ProviderCapabilities is derived once from static provider metadata.
type ProviderCapabilities struct {
	SupportsStreaming    bool     `json:"supportsStreaming"`
	SupportsFunctions    bool     `json:"supportsFunctions"`
	SupportsSystemPrompt bool     `json:"supportsSystemPrompt"`
	MaxTokens            *int     `json:"maxTokens"` // nil means it varies by model
	SupportedModels      []string `json:"supportedModels"`
}

// Clone returns a deep copy so callers can never mutate a cached value.
func (c ProviderCapabilities) Clone() ProviderCapabilities {
	clone := c
	clone.SupportedModels = slices.Clone(c.SupportedModels)
	if c.MaxTokens != nil {
		maxTokens := *c.MaxTokens
		clone.MaxTokens = &maxTokens
	}
	return clone
}
