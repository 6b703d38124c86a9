package metadata

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindMap represents a nested document.
	KindMap
	// KindArray represents a list of values. Only used as a filter operand.
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// Value is a small typed value used for metadata documents and filters.
//
// No reflection and no fmt-based stringification is involved in filtering.
type Value struct {
	Kind Kind
	I64  int64
	F64  float64
	S    string
	B    bool
	M    Document
	A    []Value
}

// Key returns a stable string representation for use in maps.
func (v Value) Key() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return "i:" + strconv.FormatInt(v.I64, 10)
	case KindFloat:
		// Integral floats share the int key so 3 and 3.0 land in one posting list.
		if v.F64 == math.Trunc(v.F64) && math.Abs(v.F64) < 1<<53 {
			return "i:" + strconv.FormatInt(int64(v.F64), 10)
		}
		return "f:" + strconv.FormatUint(math.Float64bits(v.F64), 16)
	case KindString:
		return "s:" + v.S
	case KindBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	case KindMap:
		keys := v.M.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + v.M[k].Key()
		}
		return "m:{" + strings.Join(parts, "\x1f") + "}"
	case KindArray:
		parts := make([]string, len(v.A))
		for i := range v.A {
			parts[i] = v.A[i].Key()
		}
		return "a:[" + strings.Join(parts, "\x1f") + "]"
	default:
		return "invalid"
	}
}

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsFloat64 returns the numeric value if Kind is KindFloat or KindInt.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.F64, true
	case KindInt:
		return float64(v.I64), true
	default:
		return 0, false
	}
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsMap returns the nested document if Kind is KindMap.
func (v Value) AsMap() (Document, bool) {
	if v.Kind != KindMap {
		return nil, false
	}
	return v.M, true
}

// AsArray returns the array value if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.A, true
}

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Int returns an int64 Value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, S: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Map returns a nested document Value.
func Map(v Document) Value { return Value{Kind: KindMap, M: v} }

// Array returns an array Value.
func Array(v []Value) Value { return Value{Kind: KindArray, A: v} }

// Equal reports whether two values are identical in kind and content.
// Unlike filter comparison, Int(1) and Float(1) are not equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}

	switch v.Kind {
	case KindNull:
		return true
	case KindInt:
		return v.I64 == o.I64
	case KindFloat:
		return v.F64 == o.F64 || (math.IsNaN(v.F64) && math.IsNaN(o.F64))
	case KindString:
		return v.S == o.S
	case KindBool:
		return v.B == o.B
	case KindMap:
		return v.M.Equal(o.M)
	case KindArray:
		return slices.EqualFunc(v.A, o.A, Value.Equal)
	default:
		return false
	}
}

func (v Value) clone() Value {
	switch v.Kind {
	case KindMap:
		return Value{Kind: KindMap, M: v.M.Clone()}
	case KindArray:
		arr := make([]Value, len(v.A))
		for i := range v.A {
			arr[i] = v.A[i].clone()
		}
		return Value{Kind: KindArray, A: arr}
	default:
		return v
	}
}

// Document is a typed metadata document.
type Document map[string]Value

// Keys returns the document keys in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone creates a deep copy of the metadata document, so callers cannot
// mutate stored metadata after an insert.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}

	clone := make(Document, len(d))
	for k, v := range d {
		clone[k] = v.clone()
	}
	return clone
}

// Equal reports whether two documents hold the same keys and values.
// A nil document equals an empty one.
func (d Document) Equal(o Document) bool {
	if len(d) != len(o) {
		return false
	}
	for k, v := range d {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Lookup resolves a dotted path ("author.name") through nested maps.
func (d Document) Lookup(path string) (Value, bool) {
	if v, ok := d[path]; ok {
		return v, true
	}

	head, rest, found := strings.Cut(path, ".")
	if !found {
		return Value{}, false
	}

	v, ok := d[head]
	if !ok || v.Kind != KindMap {
		return Value{}, false
	}

	return v.M.Lookup(rest)
}

// Merge returns a copy of d overlaid with the entries of other.
func (d Document) Merge(other Document) Document {
	out := make(Document, len(d)+len(other))
	for k, v := range d {
		out[k] = v.clone()
	}
	for k, v := range other {
		out[k] = v.clone()
	}
	return out
}
