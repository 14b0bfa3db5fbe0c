package dispatch

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/woodman33/llmbridge/internal/utils"
	"github.com/woodman33/llmbridge/providers/ai"
)

// EncodeJSON encodes payload, then adds the extra top-level fields that the
// payload does not already set. Failures are encoding errors.
func EncodeJSON(payload any, extra map[string]ai.Value) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ai.NewEncodingError(err)
	}
	if len(extra) == 0 {
		return body, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, ai.NewEncodingError(fmt.Errorf("payload is not a JSON object: %w", err))
	}
	for key, value := range extra {
		if _, taken := fields[key]; taken {
			continue
		}
		encoded, err := value.MarshalJSON()
		if err != nil {
			return nil, ai.NewEncodingError(fmt.Errorf("metadata field %q: %w", key, err))
		}
		fields[key] = encoded
	}

	body, err = json.Marshal(fields)
	if err != nil {
		return nil, ai.NewEncodingError(err)
	}
	return body, nil
}

// DecodeJSON decodes a vendor body into target. Failures are decoding errors
// carrying a preview of the body.
func DecodeJSON(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return ai.NewDecodingError(fmt.Errorf("%w (body: %s)", err, utils.Preview(string(body), 200)))
	}
	return nil
}

// Extras returns the top-level fields of a vendor JSON object that the
// adapter did not consume, with keys converted to camelCase. They become the
// response metadata. Bodies that are not objects yield nil.
func Extras(body []byte, consumed ...string) map[string]ai.Value {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil
	}
	for _, key := range consumed {
		delete(fields, key)
	}
	if len(fields) == 0 {
		return nil
	}

	extras := make(map[string]ai.Value, len(fields))
	for key, raw := range fields {
		value, err := ai.ParseValue(raw)
		if err != nil || value.IsNull() {
			continue
		}
		extras[key] = value
	}
	if len(extras) == 0 {
		return nil
	}
	return ai.CamelCaseKeys(extras)
}

// MergeMetadata returns base with overlay applied on top. Either may be nil.
func MergeMetadata(base, overlay map[string]ai.Value) map[string]ai.Value {
	if len(overlay) == 0 {
		return base
	}
	merged := make(map[string]ai.Value, len(base)+len(overlay))
	maps.Copy(merged, base)
	maps.Copy(merged, overlay)
	return merged
}
