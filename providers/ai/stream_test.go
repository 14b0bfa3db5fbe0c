package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunks(items ...*ChatResponse) func(func(*ChatResponse, error) bool) {
	return func(yield func(*ChatResponse, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func TestChatStream_CollectMergesDeltas(t *testing.T) {
	stream := NewChatStream(chunks(
		&ChatResponse{ID: "c1", Model: "m", Provider: "p", Message: Message{Role: RoleAssistant, Content: "He"}},
		&ChatResponse{ID: "c1", Message: Message{Content: "llo"}, FunctionCall: &FunctionCall{Name: "lookup", Arguments: `{"q":`}},
		&ChatResponse{ID: "c1", FunctionCall: &FunctionCall{Arguments: `"go"}`}, Metadata: map[string]Value{"a": Int(1)}},
		&ChatResponse{ID: "c1", FinishReason: FinishReasonFunctionCall.Ptr(), Usage: NewTokenUsage(10, 5)},
	), nil)

	response, err := stream.Collect()

	require.NoError(t, err)
	assert.Equal(t, "c1", response.ID)
	assert.Equal(t, "m", response.Model)
	assert.Equal(t, "p", response.Provider)
	assert.Equal(t, RoleAssistant, response.Message.Role)
	assert.Equal(t, "Hello", response.Message.Content)
	require.NotNil(t, response.FunctionCall)
	assert.Equal(t, "lookup", response.FunctionCall.Name)
	assert.Equal(t, `{"q":"go"}`, response.FunctionCall.Arguments)
	assert.Equal(t, FinishReasonFunctionCall, *response.FinishReason)
	assert.Equal(t, 15, response.Usage.TotalTokens)
	assert.Contains(t, response.Metadata, "a")
}

func TestChatStream_SingleUse(t *testing.T) {
	stream := NewChatStream(chunks(&ChatResponse{Message: Message{Content: "x"}}), nil)

	_, err := stream.Collect()
	require.NoError(t, err)

	_, err = stream.Collect()
	assert.ErrorIs(t, err, ErrStreamConsumed)
}

func TestChatStream_EarlyBreakCancelsOnce(t *testing.T) {
	cancels := 0
	stream := NewChatStream(chunks(
		&ChatResponse{Message: Message{Content: "a"}},
		&ChatResponse{Message: Message{Content: "b"}},
	), func() { cancels++ })

	for range stream.Iter() {
		break
	}
	stream.Close()

	assert.Equal(t, 1, cancels)
}

func TestChatStream_CloseWithoutIterating(t *testing.T) {
	cancels := 0
	stream := NewChatStream(chunks(), func() { cancels++ })

	stream.Close()
	stream.Close()

	assert.Equal(t, 1, cancels)
}

func TestChatStream_ErrorEndsSequence(t *testing.T) {
	severed := NewNetworkError(errors.New("connection reset"))
	stream := NewChatStream(func(yield func(*ChatResponse, error) bool) {
		if !yield(&ChatResponse{Message: Message{Content: "partial"}}, nil) {
			return
		}
		if !yield(nil, severed) {
			return
		}
		yield(&ChatResponse{Message: Message{Content: "never"}}, nil)
	}, nil)

	response, err := stream.Collect()

	assert.ErrorIs(t, err, ErrNetworkError)
	assert.Equal(t, "partial", response.Message.Content)
	assert.Nil(t, response.FinishReason)
}

func TestChatStream_CancelledMarksFinishReason(t *testing.T) {
	stream := NewChatStream(func(yield func(*ChatResponse, error) bool) {
		if yield(&ChatResponse{Message: Message{Content: "par"}}, nil) {
			yield(nil, NewUnknownError(context.Canceled))
		}
	}, nil)

	response, err := stream.Collect()

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "par", response.Message.Content)
	assert.Equal(t, FinishReasonCancelled, *response.FinishReason)
}

func TestNewSingleResponseStream(t *testing.T) {
	stream := NewSingleResponseStream(&ChatResponse{ID: "one", Message: Message{Role: RoleAssistant, Content: "done"}})

	response, err := stream.Collect()

	require.NoError(t, err)
	assert.Equal(t, "one", response.ID)
	assert.Equal(t, "done", response.Message.Content)
}

func TestDecodeArguments(t *testing.T) {
	strict, err := FunctionCall{Name: "f", Arguments: `{"city":"Oslo","days":3}`}.DecodeArguments()
	require.NoError(t, err)
	city, _ := strict.Field("city")
	text, _ := city.AsString()
	assert.Equal(t, "Oslo", text)

	empty, err := FunctionCall{Name: "f", Arguments: "  "}.DecodeArguments()
	require.NoError(t, err)
	assert.Equal(t, KindObject, empty.Kind())

	repaired, err := FunctionCall{Name: "f", Arguments: `{'city': 'Oslo', "days": 3,}`}.DecodeArguments()
	require.NoError(t, err)
	days, ok := repaired.Field("days")
	require.True(t, ok)
	n, _ := days.AsInt()
	assert.EqualValues(t, 3, n)

	truncated, err := FunctionCall{Name: "f", Arguments: `{"city": "Os`}.DecodeArguments()
	require.NoError(t, err)
	_, ok = truncated.Field("city")
	assert.True(t, ok)
}
