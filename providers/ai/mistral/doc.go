// Package mistral adapts the Mistral chat API to the unified [ai.Provider]
// contract.
//
// The wire format is close to OpenAI's but uses the tools API: functions are
// declared as tools[{type: "function"}], the directive travels in
// tool_choice ("auto", "none", "any" or a named function), and function
// results are sent back as tool-role messages carrying the function name.
// Temperature is clamped to [0, 1.5].
package mistral
