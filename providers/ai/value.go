package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
)

// ValueKind discriminates the variants of a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON type name of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is a JSON value modelled as a tagged union. Exactly the field matching
// Kind is meaningful. The zero Value is JSON null.
//
// Encoding and decoding follow explicit rules: the decoder dispatches on the
// first significant byte of the input and never inspects Go types at runtime.
type Value struct {
	kind   ValueKind
	b      bool
	num    json.Number
	str    string
	array  []Value
	object map[string]Value
}

// Null returns the JSON null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64. NaN and infinities have no JSON form and become null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// Int wraps an integer.
func Int(i int64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(i, 10))}
}

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array wraps a list of values.
func Array(items ...Value) Value { return Value{kind: KindArray, array: items} }

// Object wraps a map of values.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, object: fields}
}

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean and whether v is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string and whether v is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsFloat returns the number as float64 and whether v is a number.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

// AsInt returns the number as int64 and whether v is an integral number.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	i, err := v.num.Int64()
	return i, err == nil
}

// AsArray returns the elements and whether v is an array.
func (v Value) AsArray() ([]Value, bool) { return v.array, v.kind == KindArray }

// AsObject returns the fields and whether v is an object.
func (v Value) AsObject() (map[string]Value, bool) { return v.object, v.kind == KindObject }

// Field returns the named field of an object value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	field, ok := v.object[name]
	return field, ok
}

// Equal reports deep equality. Numbers compare by their textual form.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		a, errA := v.num.Float64()
		b, errB := other.num.Float64()
		if errA != nil || errB != nil {
			return v.num == other.num
		}
		return a == b
	case KindString:
		return v.str == other.str
	case KindArray:
		return slices.EqualFunc(v.array, other.array, Value.Equal)
	case KindObject:
		return maps.EqualFunc(v.object, other.object, Value.Equal)
	}
	return false
}

// ConvertKeys returns a copy of v with every object key (recursively) passed
// through convert. Non-object values are returned unchanged.
func (v Value) ConvertKeys(convert func(string) string) Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.array))
		for i, item := range v.array {
			items[i] = item.ConvertKeys(convert)
		}
		return Array(items...)
	case KindObject:
		fields := make(map[string]Value, len(v.object))
		for key, field := range v.object {
			fields[convert(key)] = field.ConvertKeys(convert)
		}
		return Object(fields)
	}
	return v
}

// MarshalJSON encodes v according to its kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindNumber:
		if v.num == "" {
			return []byte("0"), nil
		}
		return []byte(v.num), nil
	case KindString:
		return json.Marshal(v.str)
	case KindArray:
		if v.array == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.array)
	case KindObject:
		if v.object == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.object)
	}
	return nil, fmt.Errorf("cannot encode value of kind %d", v.kind)
}

// UnmarshalJSON decodes any JSON document into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("cannot decode empty input as a JSON value")
	}

	switch data[0] {
	case 'n':
		if !bytes.Equal(data, []byte("null")) {
			return fmt.Errorf("invalid JSON literal %q", data)
		}
		*v = Null()
	case 't', 'f':
		b, err := strconv.ParseBool(string(data))
		if err != nil {
			return fmt.Errorf("invalid JSON literal %q", data)
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]Value, len(raw))
		for i, element := range raw {
			if err := items[i].UnmarshalJSON(element); err != nil {
				return err
			}
		}
		*v = Array(items...)
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		fields := make(map[string]Value, len(raw))
		for key, element := range raw {
			var field Value
			if err := field.UnmarshalJSON(element); err != nil {
				return err
			}
			fields[key] = field
		}
		*v = Object(fields)
	default:
		var number json.Number
		if err := json.Unmarshal(data, &number); err != nil {
			return fmt.Errorf("invalid JSON number %q: %w", data, err)
		}
		*v = Value{kind: KindNumber, num: number}
	}
	return nil
}

// ParseValue decodes raw JSON into a Value.
func ParseValue(data []byte) (Value, error) {
	var v Value
	err := v.UnmarshalJSON(data)
	return v, err
}
