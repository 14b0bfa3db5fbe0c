// Package cost prices chat-completion calls from per-model token rates.
//
// [ModelCost] holds USD rates per million tokens. A [Table] maps model ids to
// rates, matching dated or suffixed variants by longest prefix. Estimates
// made before a call approximate prompt tokens at four characters per token
// and assume the requested max tokens (or [DefaultCompletionTokens]) for the
// completion.
package cost
