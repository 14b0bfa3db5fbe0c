// Package gemini implements [ai.Provider] for Google's Gemini generative
// language API.
//
// Complete calls go to POST {base}/models/{model}:generateContent and streams
// to :streamGenerateContent?alt=sse, authenticated with x-goog-api-key. The
// system prompt travels in systemInstruction, assistant turns use the "model"
// role, and function results are sent as "function" turns with a
// functionResponse part. Temperature is clamped to [0, 2].
//
// Gemini responses often carry no id; when responseId is absent a random
// UUID is generated, once per response or stream. Request metadata keys are
// camelCased and, when allowed, merged into generationConfig.
package gemini
