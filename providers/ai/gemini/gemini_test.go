package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodman33/llmbridge/core/retry"
	"github.com/woodman33/llmbridge/internal/utils"
	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/ai/dispatch"
)

func testProvider(t *testing.T, handler http.HandlerFunc, opts ...Option) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	instant := retry.Policy{Sleep: func(context.Context, time.Duration) error { return nil }}
	base := []Option{
		WithAPIKey("AIza-test"),
		WithBaseURL(server.URL),
		WithDispatcher(dispatch.New(ProviderID, dispatch.WithRetryPolicy(instant))),
	}
	return New(append(base, opts...)...)
}

func chatRequest() ai.ChatRequest {
	return ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "Name a prime."},
			{Role: ai.RoleAssistant, Content: "7"},
			{Role: ai.RoleUser, Content: "Another one."},
		},
	}
}

func TestSendRequest(t *testing.T) {
	provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "AIza-test", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body["contents"], 3)

		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "11"}]},
				"finishReason": "STOP",
				"index": 0,
				"safetyRatings": []
			}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15},
			"modelVersion": "gemini-2.5-flash",
			"responseId": "resp-abc"
		}`))
	})

	response, err := provider.SendRequest(context.Background(), chatRequest())

	require.NoError(t, err)
	assert.Equal(t, "resp-abc", response.ID)
	assert.Equal(t, ai.RoleAssistant, response.Message.Role)
	assert.Equal(t, "11", response.Message.Content)
	assert.Equal(t, ai.FinishReasonStop, *response.FinishReason)
	assert.Equal(t, 15, response.Usage.TotalTokens)
	require.NotNil(t, response.Usage.EstimatedCost)
	assert.InDelta(t, 10*0.30/1e6+5*2.50/1e6, *response.Usage.EstimatedCost, 1e-12)
	assert.Equal(t, ProviderID, response.Provider)
}

func TestSendRequest_GeneratesIDs(t *testing.T) {
	provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hi"}]},"finishReason":"STOP"}]}`))
	})

	first, err := provider.SendRequest(context.Background(), chatRequest())
	require.NoError(t, err)
	second, err := provider.SendRequest(context.Background(), chatRequest())
	require.NoError(t, err)

	_, err = uuid.Parse(first.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, Model25Flash, first.Model)
}

func TestSendRequest_Errors(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":"Rate limit exceeded"}`)
		})
		_, err := provider.SendRequest(context.Background(), chatRequest())

		require.ErrorIs(t, err, ai.ErrRateLimitExceeded)
		providerErr, _ := ai.AsProviderError(err)
		assert.Equal(t, "Rate limit exceeded", providerErr.Message)
	})

	t.Run("unauthorized", func(t *testing.T) {
		provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := provider.SendRequest(context.Background(), chatRequest())

		require.ErrorIs(t, err, ai.ErrAuthenticationFailed)
		providerErr, _ := ai.AsProviderError(err)
		assert.Equal(t, ai.UnknownErrorMessage, providerErr.Message)
	})

	t.Run("google error envelope", func(t *testing.T) {
		provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid.","status":"PERMISSION_DENIED"}}`)
		})
		_, err := provider.SendRequest(context.Background(), chatRequest())

		require.ErrorIs(t, err, ai.ErrHTTPError)
		providerErr, _ := ai.AsProviderError(err)
		assert.Equal(t, "API key not valid.", providerErr.Message)
		assert.Equal(t, http.StatusForbidden, providerErr.StatusCode)
	})
}

func TestTransformRequest(t *testing.T) {
	provider := New(WithAPIKey("k"))
	request := ai.ChatRequest{
		SystemPrompt: "You are a calculator.",
		Temperature:  utils.Ptr(2.6),
		MaxTokens:    utils.Ptr(100),
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "Add 2 and 3."},
			{Role: ai.RoleAssistant, Content: "Calling add."},
			{Role: ai.RoleFunction, Name: "add", Content: `{"sum":5}`},
			{Role: ai.RoleFunction, Name: "describe", Content: `five`},
		},
		Functions: []ai.Function{{
			Name:        "add",
			Description: "Adds numbers",
			Parameters: ai.FunctionParameters{
				Properties: map[string]ai.FunctionProperty{
					"a": {Type: "number"},
					"b": {Type: "number"},
				},
				Required: []string{"a", "b"},
			},
		}},
		FunctionCall: &ai.FunctionCallDirective{Mode: ai.FunctionCallNamed, Name: "add"},
		Metadata: map[string]ai.Value{
			"top_k":          ai.Int(20),
			"stop_sequences": ai.Array(ai.String("END")),
			"cached_content": ai.String("cachedContents/abc"),
			"unrelated":      ai.Bool(true),
		},
	}

	body, err := provider.TransformRequest(request)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"contents": [
			{"role": "user", "parts": [{"text": "Add 2 and 3."}]},
			{"role": "model", "parts": [{"text": "Calling add."}]},
			{"role": "function", "parts": [{"functionResponse": {"name": "add", "response": {"sum": 5}}}]},
			{"role": "function", "parts": [{"functionResponse": {"name": "describe", "response": {"content": "five"}}}]}
		],
		"systemInstruction": {"parts": [{"text": "You are a calculator."}]},
		"generationConfig": {"temperature": 2, "maxOutputTokens": 100, "topK": 20, "stopSequences": ["END"]},
		"tools": [{"functionDeclarations": [{
			"name": "add",
			"description": "Adds numbers",
			"parameters": {"type": "object", "properties": {"a": {"type": "number"}, "b": {"type": "number"}}, "required": ["a", "b"]}
		}]}],
		"toolConfig": {"functionCallingConfig": {"mode": "ANY", "allowedFunctionNames": ["add"]}},
		"cachedContent": "cachedContents/abc"
	}`, string(body))
}

func TestTransformRequest_MinimalOmitsGenerationConfig(t *testing.T) {
	body, err := New().TransformRequest(ai.ChatRequest{Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"contents":[{"role":"user","parts":[{"text":"hi"}]}]}`, string(body))
}

func TestBuildToolConfig(t *testing.T) {
	assert.Nil(t, buildToolConfig(nil))
	assert.Equal(t, "AUTO", buildToolConfig(&ai.FunctionCallDirective{Mode: ai.FunctionCallAuto}).FunctionCallingConfig.Mode)
	assert.Equal(t, "NONE", buildToolConfig(&ai.FunctionCallDirective{Mode: ai.FunctionCallNone}).FunctionCallingConfig.Mode)
	assert.Equal(t, "ANY", buildToolConfig(&ai.FunctionCallDirective{Mode: ai.FunctionCallRequired}).FunctionCallingConfig.Mode)
}

func TestTransformResponse_FinishReasons(t *testing.T) {
	provider := New(WithIDGenerator(func() string { return "fixed" }))
	tests := map[string]ai.FinishReason{
		"STOP":                    ai.FinishReasonStop,
		"MAX_TOKENS":              ai.FinishReasonLength,
		"SAFETY":                  ai.FinishReasonContentFilter,
		"RECITATION":              ai.FinishReasonContentFilter,
		"BLOCKLIST":               ai.FinishReasonContentFilter,
		"PROHIBITED_CONTENT":      ai.FinishReasonContentFilter,
		"SPII":                    ai.FinishReasonContentFilter,
		"MALFORMED_FUNCTION_CALL": ai.FinishReasonError,
		"OTHER":                   ai.FinishReasonStop,
	}

	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			body := fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":"x"}]},"finishReason":%q}]}`, raw)
			response, err := provider.TransformResponse([]byte(body), chatRequest())
			require.NoError(t, err)
			assert.Equal(t, ai.RoleAssistant, response.Message.Role)
			assert.Equal(t, want, *response.FinishReason)
			assert.Equal(t, "fixed", response.ID)
		})
	}
}

func TestTransformResponse_FunctionCallAndThoughts(t *testing.T) {
	body := `{
		"candidates": [{
			"content": {"role": "model", "parts": [
				{"text": "thinking about sums", "thought": true},
				{"functionCall": {"name": "add", "args": {"a": 2, "b": 3}}}
			]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 40, "candidatesTokenCount": 6, "thoughtsTokenCount": 20, "cachedContentTokenCount": 30, "totalTokenCount": 66}
	}`

	response, err := New().TransformResponse([]byte(body), chatRequest())

	require.NoError(t, err)
	assert.Empty(t, response.Message.Content)
	require.NotNil(t, response.FunctionCall)
	assert.Equal(t, "add", response.FunctionCall.Name)
	assert.JSONEq(t, `{"a":2,"b":3}`, response.FunctionCall.Arguments)
	assert.Equal(t, ai.FinishReasonFunctionCall, *response.FinishReason)
	assert.Equal(t, 26, response.Usage.CompletionTokens)
	assert.Equal(t, 66, response.Usage.TotalTokens)
	assert.InDelta(t, 10*0.30/1e6+26*2.50/1e6+30*0.15/1e6, *response.Usage.EstimatedCost, 1e-12)
}

func TestTransformResponse_BlockedPrompt(t *testing.T) {
	body := `{"promptFeedback":{"blockReason":"SAFETY","safetyRatings":[]},"usageMetadata":{"promptTokenCount":4,"totalTokenCount":4}}`

	response, err := New().TransformResponse([]byte(body), chatRequest())

	require.NoError(t, err)
	assert.Equal(t, ai.FinishReasonContentFilter, *response.FinishReason)
	feedback, ok := response.Metadata["promptFeedback"].Field("blockReason")
	require.True(t, ok)
	reason, _ := feedback.AsString()
	assert.Equal(t, "SAFETY", reason)
}

func TestStreamRequest(t *testing.T) {
	provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-pro:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"He\"}]}}],\"usageMetadata\":{\"promptTokenCount\":10,\"totalTokenCount\":10}}\r\n\r\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"llo\"}]},\"finishReason\":\"STOP\"}],\"usageMetadata\":{\"promptTokenCount\":10,\"candidatesTokenCount\":5,\"totalTokenCount\":15}}\r\n\r\n")
	}, WithIDGenerator(func() string { return "stream-id" }))

	request := chatRequest()
	request.Model = Model25Pro
	stream, err := provider.StreamRequest(context.Background(), request)
	require.NoError(t, err)

	var chunks []*ai.ChatResponse
	for chunk, err := range stream.Iter() {
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 2)
	assert.Equal(t, "He", chunks[0].Message.Content)
	assert.Nil(t, chunks[0].Usage, "running totals are not reported mid-stream")
	assert.Equal(t, "llo", chunks[1].Message.Content)
	assert.Equal(t, ai.FinishReasonStop, *chunks[1].FinishReason)
	assert.Equal(t, 15, chunks[1].Usage.TotalTokens)
	assert.Equal(t, "stream-id", chunks[0].ID)
	assert.Equal(t, "stream-id", chunks[1].ID)
}

func TestStreamRequest_SharedIDAcrossChunks(t *testing.T) {
	provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		for _, text := range []string{"a", "b", "c"} {
			fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":%q}]}}]}\n\n", text)
		}
	})

	stream, err := provider.StreamRequest(context.Background(), chatRequest())
	require.NoError(t, err)
	response, err := stream.Collect()

	require.NoError(t, err)
	assert.Equal(t, "abc", response.Message.Content)
	_, err = uuid.Parse(response.ID)
	assert.NoError(t, err)
}

func TestEndpointEscapesModel(t *testing.T) {
	provider := New(WithBaseURL("https://example.test/v1beta/"))
	request := chatRequest()
	request.Model = "tunedModels/my model"

	assert.Equal(t, "https://example.test/v1beta/models/tunedModels%2Fmy%20model:generateContent", provider.endpoint(request))
}

func TestEstimateCost(t *testing.T) {
	estimate, ok := New().EstimateCost(chatRequest())
	require.True(t, ok)
	assert.Greater(t, estimate, 0.0)

	request := chatRequest()
	request.Model = "gemini-2.0-flash-001"
	_, ok = New().EstimateCost(request)
	assert.True(t, ok, "suffixed variants resolve by prefix")
}
