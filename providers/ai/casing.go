package ai

import (
	"strings"
	"unicode"
)

// SnakeCase converts a camelCase or PascalCase key to snake_case.
// Runs of capitals are treated as one word: "baseURLPath" becomes "base_url_path".
func SnakeCase(key string) string {
	runes := []rune(key)
	var builder strings.Builder
	builder.Grow(len(key) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextIsLower) {
					builder.WriteByte('_')
				}
			}
			builder.WriteRune(unicode.ToLower(r))
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// CamelCase converts a snake_case key to camelCase. Keys without underscores
// are returned unchanged; leading underscores are preserved.
func CamelCase(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}

	trimmed := strings.TrimLeft(key, "_")
	prefix := key[:len(key)-len(trimmed)]

	parts := strings.Split(trimmed, "_")
	var builder strings.Builder
	builder.Grow(len(key))
	builder.WriteString(prefix)

	first := true
	for _, part := range parts {
		if part == "" {
			continue
		}
		if first {
			builder.WriteString(part)
			first = false
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		builder.WriteString(string(runes))
	}
	return builder.String()
}

// SnakeCaseKeys converts every key of the map (recursively) to snake_case.
func SnakeCaseKeys(fields map[string]Value) map[string]Value {
	return convertFieldKeys(fields, SnakeCase)
}

// CamelCaseKeys converts every key of the map (recursively) to camelCase.
func CamelCaseKeys(fields map[string]Value) map[string]Value {
	return convertFieldKeys(fields, CamelCase)
}

func convertFieldKeys(fields map[string]Value, convert func(string) string) map[string]Value {
	if fields == nil {
		return nil
	}
	converted, _ := Object(fields).ConvertKeys(convert).AsObject()
	return converted
}
