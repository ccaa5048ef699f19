package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// ValueKind tags the variant held by a Value.
type ValueKind string

const (
	KindNull   ValueKind = "null"
	KindBool   ValueKind = "bool"
	KindNumber ValueKind = "number"
	KindString ValueKind = "string"
	KindList   ValueKind = "list"
	KindObject ValueKind = "object"
)

// Value is a sealed interface for the opaque structured data the host attaches to
// node props, state fields and table payloads.
// Only Null, Bool, Number, String, List and Object implement it.
type Value interface {
	Kind() ValueKind
	value()
}

// Null is the JSON null value.
type Null struct{}

func (Null) Kind() ValueKind { return KindNull }
func (Null) value()          {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() ValueKind { return KindBool }
func (Bool) value()          {}

// Number is a numeric value. JSON does not distinguish integers, so neither do we.
type Number float64

func (Number) Kind() ValueKind { return KindNumber }
func (Number) value()          {}

// String is a text value.
type String string

func (String) Kind() ValueKind { return KindString }
func (String) value()          {}

// List is an ordered sequence of values.
type List []Value

func (List) Kind() ValueKind { return KindList }
func (List) value()          {}

// Object maps string keys to values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) Kind() ValueKind { return KindObject }
func (Object) value()          {}

// SortedKeys returns the object keys in lexical order.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromAny converts a decoded JSON/YAML tree (nil, bool, numbers, string, []any,
// map[string]any) into a Value.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return Clone(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(t), nil
	case int:
		return Number(t), nil
	case int32:
		return Number(t), nil
	case int64:
		return Number(t), nil
	case uint:
		return Number(t), nil
	case uint32:
		return Number(t), nil
	case uint64:
		return Number(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case []any:
		out := make(List, len(t))
		for i, item := range t {
			val, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case map[string]any:
		out := make(Object, len(t))
		for k, item := range t {
			val, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			out[k] = val
		}
		return out, nil
	case map[any]any:
		out := make(Object, len(t))
		for k, item := range t {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: non-string key %v", ErrUnsupportedValue, k)
			}
			val, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// ToAny converts a Value back into plain Go values suitable for encoding/json.
func ToAny(v Value) any {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(t)
	case Number:
		return float64(t)
	case String:
		return string(t)
	case List:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToAny(item)
		}
		return out
	case Object:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ToAny(item)
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy of v. Scalars are returned as-is.
func Clone(v Value) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case List:
		out := make(List, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	case Object:
		out := make(Object, len(t))
		for k, item := range t {
			out[k] = Clone(item)
		}
		return out
	default:
		return t
	}
}

// Equal reports whether a and b hold the same variant and contents.
// A nil Value is treated as Null.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Null:
		return true
	case Bool:
		return x == b.(Bool)
	case Number:
		y := b.(Number)
		if math.IsNaN(float64(x)) && math.IsNaN(float64(y)) {
			return true
		}
		return x == y
	case String:
		return x == b.(String)
	case List:
		y := b.(List)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y := b.(Object)
		if len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}

// ParseValue decodes JSON text into a Value.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected trailing data after JSON value")
	}
	return FromAny(raw)
}

// MarshalValue encodes v as JSON text.
func MarshalValue(v Value) ([]byte, error) {
	return json.Marshal(ToAny(v))
}

// MergeObject returns a copy of base with every key of patch written over it.
func MergeObject(base, patch Object) Object {
	out := make(Object, len(base)+len(patch))
	for k, v := range base {
		out[k] = Clone(v)
	}
	for k, v := range patch {
		out[k] = Clone(v)
	}
	return out
}
