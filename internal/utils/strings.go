package utils

import "fmt"

// DefaultPreviewLength bounds response previews embedded in errors and logs.
const DefaultPreviewLength = 500

// Preview shortens s to at most maxLen bytes, noting the original length so
// readers know data was omitted. A non-positive maxLen uses DefaultPreviewLength.
func Preview(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultPreviewLength
	}
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}
