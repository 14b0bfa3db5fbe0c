package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"topP":             "top_p",
		"maxTokens":        "max_tokens",
		"baseURLPath":      "base_url_path",
		"HTTPReferer":      "http_referer",
		"already_snake":    "already_snake",
		"logprobs":         "logprobs",
		"responseFormatV2": "response_format_v2",
		"":                 "",
	}
	for input, want := range tests {
		assert.Equal(t, want, SnakeCase(input), input)
	}
}

func TestCamelCase(t *testing.T) {
	tests := map[string]string{
		"top_p":              "topP",
		"system_fingerprint": "systemFingerprint",
		"stop__sequences":    "stopSequences",
		"_private_field":     "_privateField",
		"alreadyCamel":       "alreadyCamel",
	}
	for input, want := range tests {
		assert.Equal(t, want, CamelCase(input), input)
	}
}

func TestCaseKeysRecursive(t *testing.T) {
	fields := map[string]Value{
		"responseFormat": Object(map[string]Value{"jsonSchema": Object(map[string]Value{"strictMode": Bool(true)})}),
		"stopList":       Array(Object(map[string]Value{"innerKey": Int(1)})),
	}

	snake := SnakeCaseKeys(fields)
	format, ok := snake["response_format"].Field("json_schema")
	require.True(t, ok)
	_, ok = format.Field("strict_mode")
	assert.True(t, ok)

	camel := CamelCaseKeys(snake)
	assert.True(t, Object(camel).Equal(Object(fields)))
	assert.Nil(t, SnakeCaseKeys(nil))
}

func TestClampTemperature(t *testing.T) {
	assert.Nil(t, ClampTemperature(nil, 0, 1))
	assert.Equal(t, 1.0, *ClampTemperature(ptr(1.7), 0, 1))
	assert.Equal(t, 0.0, *ClampTemperature(ptr(-0.3), 0, 2))
	assert.Equal(t, 0.7, *ClampTemperature(ptr(0.7), 0, 2))
}

func TestSplitSystem(t *testing.T) {
	request := ChatRequest{
		SystemPrompt: "Be brief.",
		Messages: []Message{
			{Role: RoleSystem, Content: "Answer in French."},
			{Role: RoleUser, Content: "Hi"},
			{Role: RoleSystem, Content: "  "},
			{Role: RoleAssistant, Content: "Salut"},
		},
	}

	system, conversation := request.SplitSystem()

	assert.Equal(t, "Be brief.\n\nAnswer in French.", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "Hi"}, {Role: RoleAssistant, Content: "Salut"}}, conversation)
}

func TestWithLeadingSystem(t *testing.T) {
	messages := []Message{{Role: RoleUser, Content: "Hi"}}

	assert.Equal(t, messages, ChatRequest{Messages: messages}.WithLeadingSystem())

	withPrompt := ChatRequest{SystemPrompt: "Be brief.", Messages: messages}.WithLeadingSystem()
	assert.Equal(t, []Message{{Role: RoleSystem, Content: "Be brief."}, {Role: RoleUser, Content: "Hi"}}, withPrompt)
	assert.Len(t, messages, 1)
}

func TestPassthrough(t *testing.T) {
	request := ChatRequest{Metadata: map[string]Value{
		"topP":            Number(0.9),
		"response_format": Object(map[string]Value{"jsonSchema": String("s")}),
		"userId":          String("u"),
	}}

	selected := request.Passthrough(SnakeCase, "top_p", "response_format")

	require.Len(t, selected, 2)
	top, _ := selected["top_p"].AsFloat()
	assert.InDelta(t, 0.9, top, 1e-12)
	_, ok := selected["response_format"].Field("json_schema")
	assert.True(t, ok)

	assert.Nil(t, ChatRequest{}.Passthrough(SnakeCase, "top_p"))
	assert.Nil(t, request.Passthrough(CamelCase, "seed"))
}

func TestMetadataString(t *testing.T) {
	request := ChatRequest{Metadata: map[string]Value{"userId": String("u-1"), "tries": Int(2)}}

	assert.Equal(t, "u-1", request.MetadataString("userId"))
	assert.Empty(t, request.MetadataString("tries"))
	assert.Empty(t, request.MetadataString("missing"))
}

func TestChatRequest_Validate(t *testing.T) {
	valid := ChatRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	require.NoError(t, valid.Validate())

	tests := map[string]ChatRequest{
		"no messages":  {},
		"unknown role": {Messages: []Message{{Role: "tool", Content: "x"}}},
		"required not declared": {
			Messages: valid.Messages,
			Functions: []Function{{
				Name:       "lookup",
				Parameters: FunctionParameters{Type: "object", Properties: map[string]FunctionProperty{"q": {Type: "string"}}, Required: []string{"q", "page"}},
			}},
		},
		"unnamed function": {Messages: valid.Messages, Functions: []Function{{}}},
		"named directive without name": {
			Messages:     valid.Messages,
			FunctionCall: &FunctionCallDirective{Mode: FunctionCallNamed},
		},
	}
	for name, request := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, request.Validate(), ErrInvalidRequest)
		})
	}
}

func TestFinishReasonTable_Normalize(t *testing.T) {
	table := FinishReasonTable{"stop": FinishReasonStop, "length": FinishReasonLength, "tool_calls": FinishReasonFunctionCall}

	assert.Nil(t, table.Normalize(""))
	assert.Equal(t, FinishReasonFunctionCall, *table.Normalize("tool_calls"))
	assert.Equal(t, FinishReasonStop, *table.Normalize("something_new"))
}

func TestProviderConfiguration_Model(t *testing.T) {
	config := ProviderConfiguration{SupportedModels: []string{"a", "b"}}
	assert.Equal(t, "a", config.Model(ChatRequest{}))

	config.DefaultModel = "b"
	assert.Equal(t, "b", config.Model(ChatRequest{}))
	assert.Equal(t, "c", config.Model(ChatRequest{Model: "c"}))
}

func TestProviderConfiguration_Validate(t *testing.T) {
	valid := ProviderConfiguration{BaseURL: "https://api.example.com/v1", SupportedModels: []string{"m"}, RequiresAPIKey: true}
	require.NoError(t, valid.Validate("acme"))

	missingURL := valid
	missingURL.BaseURL = ""
	err := missingURL.Validate("acme")
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "BaseURL is required")

	badURL := valid
	badURL.BaseURL = "::not a url"
	assert.ErrorIs(t, badURL.Validate("acme"), ErrInvalidConfiguration)

	badLimit := valid
	badLimit.RateLimit = &RateLimit{RequestsPerMinute: -1}
	err = badLimit.Validate("acme")
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "greater than 0")

	err = valid.ValidateCredentials("acme", " ")
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Equal(t, "acme: invalid configuration: API key is required", err.Error())

	valid.RequiresAPIKey = false
	assert.NoError(t, valid.ValidateCredentials("acme", ""))
}

func TestProviderCapabilities_Clone(t *testing.T) {
	original := ProviderCapabilities{SupportedModels: []string{"a"}, MaxTokens: ptr(10)}
	clone := original.Clone()

	clone.SupportedModels[0] = "b"
	*clone.MaxTokens = 20

	assert.Equal(t, "a", original.SupportedModels[0])
	assert.Equal(t, 10, *original.MaxTokens)
}
