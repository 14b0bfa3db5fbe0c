// Package stream decodes Server-Sent-Events bodies into ordered sequences of
// partial [ai.ChatResponse] values.
//
// Framing is line oriented: only "data:" lines carry payloads, blank lines
// separate events, and a "data: [DONE]" line or the end of the body ends the
// sequence. Each payload is handed to a vendor-specific [ChunkDecoder]. A
// payload that fails to decode is skipped; only a failure to read the body
// itself terminates the sequence with an error.
package stream
