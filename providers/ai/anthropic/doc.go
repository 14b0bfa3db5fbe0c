// Package anthropic implements [ai.Provider] for Anthropic's Messages API.
//
// Requests go to POST {base}/messages authenticated with x-api-key and pinned
// to anthropic-version 2023-06-01. The system prompt and any system-role
// messages are joined into the dedicated "system" field. max_tokens is
// mandatory on this API, so requests without MaxTokens send
// [DefaultMaxTokens]. Function declarations become tools with an
// input_schema and the directive maps onto tool_choice (auto, any, tool).
//
// The Messages API only accepts tool results that reference the id of an
// earlier tool_use block, which the unified model does not carry. Function
// role messages are therefore sent as user text naming the function.
// Consecutive messages with the same role are merged into one turn.
//
// Streaming is stateful: message_start carries the id, model and prompt
// usage, content blocks stream text and tool-input fragments, message_delta
// carries the stop reason and output usage. An in-stream error event becomes
// a final chunk with finish reason error and the vendor message in its
// metadata.
package anthropic
