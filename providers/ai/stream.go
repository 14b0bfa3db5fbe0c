package ai

import (
	"context"
	"errors"
	"iter"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrStreamConsumed is yielded when a ChatStream is iterated a second time.
var ErrStreamConsumed = errors.New("chat stream already consumed")

// ChatStream is a single-use, pull-based sequence of partial ChatResponses.
// The producer decodes one chunk per pull; the consumer decides when to ask
// for the next one or stop.
//
// Breaking out of the range loop, finishing the sequence, or calling Close
// cancels the underlying request context, which closes the HTTP connection.
// A stream that is never iterated must be closed explicitly.
type ChatStream struct {
	iterator iter.Seq2[*ChatResponse, error]
	cancel   context.CancelFunc
	consumed atomic.Bool
	once     sync.Once
}

// NewChatStream wraps iterator. cancel, when non-nil, releases the resources
// behind the iterator and is called exactly once.
func NewChatStream(iterator iter.Seq2[*ChatResponse, error], cancel context.CancelFunc) *ChatStream {
	return &ChatStream{iterator: iterator, cancel: cancel}
}

// NewSingleResponseStream wraps a complete response as a one-chunk stream. It
// backs StreamRequest for providers without native streaming.
func NewSingleResponseStream(response *ChatResponse) *ChatStream {
	return NewChatStream(func(yield func(*ChatResponse, error) bool) {
		yield(response, nil)
	}, nil)
}

// Iter returns the sequence for use with range-over-func loops.
//
//	for chunk, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(chunk.Message.Content)
//	}
//
// A second call yields ErrStreamConsumed once.
func (stream *ChatStream) Iter() iter.Seq2[*ChatResponse, error] {
	return func(yield func(*ChatResponse, error) bool) {
		if !stream.consumed.CompareAndSwap(false, true) {
			yield(nil, ErrStreamConsumed)
			return
		}
		defer stream.Close()

		for chunk, err := range stream.iterator {
			if !yield(chunk, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// Close releases the underlying connection. It is safe to call more than once
// and concurrently with iteration.
func (stream *ChatStream) Close() {
	stream.once.Do(func() {
		if stream.cancel != nil {
			stream.cancel()
		}
	})
}

// Collect drains the stream and merges the partial responses: content deltas
// and function-call fragments are concatenated in emission order, the last
// finish reason and usage win. If the stream ends with an error the partial
// response is returned alongside it, marked cancelled when the error is a
// context cancellation.
func (stream *ChatStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{Message: Message{Role: RoleAssistant}}
	var content strings.Builder
	var functionName string
	var arguments strings.Builder
	hasFunctionCall := false

	var streamErr error
	for chunk, err := range stream.Iter() {
		if err != nil {
			streamErr = err
			break
		}
		if chunk == nil {
			continue
		}

		if accumulated.ID == "" {
			accumulated.ID = chunk.ID
		}
		if accumulated.Model == "" {
			accumulated.Model = chunk.Model
		}
		if accumulated.Provider == "" {
			accumulated.Provider = chunk.Provider
		}
		if accumulated.Timestamp.IsZero() {
			accumulated.Timestamp = chunk.Timestamp
		}

		content.WriteString(chunk.Message.Content)

		if chunk.FunctionCall != nil {
			hasFunctionCall = true
			if chunk.FunctionCall.Name != "" {
				functionName = chunk.FunctionCall.Name
			}
			arguments.WriteString(chunk.FunctionCall.Arguments)
		}
		if chunk.FinishReason != nil {
			accumulated.FinishReason = chunk.FinishReason
		}
		if chunk.Usage != nil {
			accumulated.Usage = chunk.Usage
		}
		if len(chunk.Metadata) > 0 {
			if accumulated.Metadata == nil {
				accumulated.Metadata = map[string]Value{}
			}
			maps.Copy(accumulated.Metadata, chunk.Metadata)
		}
	}

	accumulated.Message.Content = content.String()
	if hasFunctionCall {
		accumulated.FunctionCall = &FunctionCall{Name: functionName, Arguments: arguments.String()}
	}

	if streamErr != nil && errors.Is(streamErr, context.Canceled) {
		accumulated.FinishReason = FinishReasonCancelled.Ptr()
	}
	return accumulated, streamErr
}
