// Package openai adapts OpenAI-style chat completion APIs to the unified
// [ai.Provider] contract.
//
// Requests go to POST {base}/chat/completions with bearer authentication.
// The system prompt travels as a leading system message and function
// declarations use the functions/function_call fields, which every
// OpenAI-compatible server accepts. Function results are sent back as
// function-role messages carrying the function name. Temperature is clamped
// to [0, 2].
//
// The same adapter serves Ollama and other OpenAI-compatible hosts: build it
// with [OllamaConfiguration] (or any configuration whose RequiresAPIKey is
// false) and no Authorization header is sent when the key is empty.
package openai
