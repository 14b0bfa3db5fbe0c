package ai

import (
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeArguments parses the model-produced argument text into a Value.
// Models occasionally emit almost-JSON (single quotes, trailing commas,
// truncated objects); when strict decoding fails the text is repaired with
// jsonrepair and decoded again. Empty arguments decode to an empty object.
func (call FunctionCall) DecodeArguments() (Value, error) {
	text := strings.TrimSpace(call.Arguments)
	if text == "" {
		return Object(nil), nil
	}

	value, err := ParseValue([]byte(text))
	if err == nil {
		return value, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(text)
	if repairErr != nil {
		return Value{}, NewDecodingError(fmt.Errorf("arguments of %q are not valid JSON: %w (repair failed: %v)", call.Name, err, repairErr))
	}

	value, err = ParseValue([]byte(repaired))
	if err != nil {
		return Value{}, NewDecodingError(fmt.Errorf("repaired arguments of %q are not valid JSON: %w", call.Name, err))
	}
	return value, nil
}
