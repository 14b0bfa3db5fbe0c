package gemini

import (
	"encoding/json"

	"github.com/woodman33/llmbridge/providers/ai"
)

/*
	GEMINI API - REQUEST TYPES
*/

// generateContentRequest is the body of generateContent and streamGenerateContent.
type generateContentRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  json.RawMessage    `json:"generationConfig,omitempty"` // generationConfig plus passthrough fields
	Tools             []tool             `json:"tools,omitempty"`
	ToolConfig        *toolConfig        `json:"toolConfig,omitempty"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

// content is one conversation turn.
type content struct {
	Role  string `json:"role,omitempty"` // "user", "model" or "function"
	Parts []part `json:"parts"`
}

// part carries text, a function call or a function response.
type part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"` // reasoning summary, never surfaced as content
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string   `json:"name"`
	Response ai.Value `json:"response"` // must be a JSON object
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations,omitempty"`
}

type functionDeclaration struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Parameters  ai.FunctionParameters `json:"parameters"`
}

type toolConfig struct {
	FunctionCallingConfig *functionCallingConfig `json:"functionCallingConfig,omitempty"`
}

type functionCallingConfig struct {
	Mode                 string   `json:"mode,omitempty"` // "AUTO", "ANY", "NONE"
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

/*
	GEMINI API - RESPONSE TYPES
*/

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates,omitempty"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
	ResponseID     string          `json:"responseId,omitempty"`
}

type candidate struct {
	Content      *content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
	Index        int      `json:"index,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount        int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount    int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount         int `json:"totalTokenCount,omitempty"`
	ThoughtsTokenCount      int `json:"thoughtsTokenCount,omitempty"`
	CachedContentTokenCount int `json:"cachedContentTokenCount,omitempty"`
}

var consumedResponseFields = []string{"candidates", "usageMetadata", "modelVersion", "responseId"}

// generationFields are request metadata keys merged into generationConfig;
// topLevelFields are merged into the request body itself.
var (
	generationFields = []string{"topP", "topK", "stopSequences", "candidateCount", "presencePenalty", "frequencyPenalty", "seed", "responseMimeType"}
	topLevelFields   = []string{"safetySettings", "cachedContent"}
)

var finishReasons = ai.FinishReasonTable{
	"STOP":                    ai.FinishReasonStop,
	"MAX_TOKENS":              ai.FinishReasonLength,
	"SAFETY":                  ai.FinishReasonContentFilter,
	"RECITATION":              ai.FinishReasonContentFilter,
	"BLOCKLIST":               ai.FinishReasonContentFilter,
	"PROHIBITED_CONTENT":      ai.FinishReasonContentFilter,
	"SPII":                    ai.FinishReasonContentFilter,
	"IMAGE_SAFETY":            ai.FinishReasonContentFilter,
	"MALFORMED_FUNCTION_CALL": ai.FinishReasonError,
}
