package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// FromAny converts a decoded Go value, as produced by encoding/json or a
// config loader, into a typed Value.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case Document:
		return Map(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case json.Number:
		return fromNumber(x)
	case map[string]any:
		doc, err := DocumentFromAny(x)
		if err != nil {
			return Value{}, err
		}

		return Map(doc), nil
	case []Value:
		return Array(x), nil
	case []string:
		return arrayOf(x, func(s string) (Value, error) { return String(s), nil })
	case []any:
		return arrayOf(x, FromAny)
	}

	if i, ok, err := integer(v); ok {
		if err != nil {
			return Value{}, err
		}

		return Int(i), nil
	}

	return Value{}, fmt.Errorf("unsupported metadata value type %T", v)
}

func integer(v any) (int64, bool, error) {
	switch x := v.(type) {
	case int:
		return int64(x), true, nil
	case int8:
		return int64(x), true, nil
	case int16:
		return int64(x), true, nil
	case int32:
		return int64(x), true, nil
	case int64:
		return x, true, nil
	case uint8:
		return int64(x), true, nil
	case uint16:
		return int64(x), true, nil
	case uint32:
		return int64(x), true, nil
	case uint:
		return fromUint(uint64(x))
	case uint64:
		return fromUint(x)
	default:
		return 0, false, nil
	}
}

func fromUint(x uint64) (int64, bool, error) {
	if x > math.MaxInt64 {
		return 0, true, fmt.Errorf("metadata uint64 out of range: %d", x)
	}

	return int64(x), true, nil
}

func fromNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}

	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q", n.String())
	}

	return Float(f), nil
}

func arrayOf[T any](in []T, conv func(T) (Value, error)) (Value, error) {
	arr := make([]Value, len(in))

	for i, x := range in {
		v, err := conv(x)
		if err != nil {
			return Value{}, fmt.Errorf("index %d: %w", i, err)
		}

		arr[i] = v
	}

	return Array(arr), nil
}

// DocumentFromAny converts a map[string]any document to a typed Document.
func DocumentFromAny(m map[string]any) (Document, error) {
	if m == nil {
		return nil, nil
	}

	d := make(Document, len(m))

	for k, v := range m {
		vv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}

		d[k] = vv
	}

	return d, nil
}

// ParseAssignment parses "key=value" as given on a command line. The value
// is decoded as a JSON literal when it is one (numbers, booleans, arrays,
// quoted strings) and taken verbatim as a string otherwise.
func ParseAssignment(s string) (string, Value, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)

	if !ok || key == "" {
		return "", Value{}, fmt.Errorf("invalid metadata assignment %q: want key=value", s)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil || dec.More() {
		return key, String(raw), nil
	}

	v, err := FromAny(decoded)
	if err != nil {
		return "", Value{}, err
	}

	return key, v, nil
}

// ParseAssignments builds a Document from "key=value" pairs. Later pairs
// win over earlier ones with the same key.
func ParseAssignments(pairs []string) (Document, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	d := make(Document, len(pairs))

	for _, p := range pairs {
		k, v, err := ParseAssignment(p)
		if err != nil {
			return nil, err
		}

		d[k] = v
	}

	return d, nil
}
