package ai

import (
	"bytes"
	"encoding/json"
)

// UnknownErrorMessage is reported when a failed response carries no usable text.
const UnknownErrorMessage = "Unknown error occurred"

// errorMessageKeys are tried in order against the top level of a vendor error body.
var errorMessageKeys = []string{"error", "message", "detail", "error_description", "error_message"}

// ParseErrorMessage extracts a human-readable message from a vendor error body.
// It tries the known top-level keys in order (string values only), then the
// nested error.message, then falls back to the raw body text and finally to
// UnknownErrorMessage for an empty body.
func ParseErrorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return UnknownErrorMessage
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err == nil {
		for _, key := range errorMessageKeys {
			if message, ok := stringField(fields, key); ok {
				return message
			}
		}

		if nested, ok := fields["error"]; ok {
			var inner map[string]json.RawMessage
			if json.Unmarshal(nested, &inner) == nil {
				if message, ok := stringField(inner, "message"); ok {
					return message
				}
			}
		}
	}

	return string(trimmed)
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var message string
	if err := json.Unmarshal(raw, &message); err != nil || message == "" {
		return "", false
	}
	return message, true
}
