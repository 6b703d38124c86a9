package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ToAny converts a Value into plain Go values (string, int64, float64, bool,
// map[string]any, []any or nil).
func (v Value) ToAny() any {
	switch v.Kind {
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindString:
		return v.S
	case KindBool:
		return v.B
	case KindMap:
		return v.M.ToAny()
	case KindArray:
		arr := make([]any, len(v.A))
		for i := range v.A {
			arr[i] = v.A[i].ToAny()
		}
		return arr
	default:
		return nil
	}
}

// ToAny converts the document into a map[string]any.
func (d Document) ToAny() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v.ToAny()
	}
	return out
}

// MarshalJSON implements json.Marshaler using the natural JSON shape of the value.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON implements json.Unmarshaler. Whole numbers decode as KindInt.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	out, err := FromAny(raw)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}

	*v = out
	return nil
}
