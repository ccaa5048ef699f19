package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// HostState is the snapshot of host-controlled parameters delivered with every
// state notification. It is replaced wholesale on each delivery and compared by
// field, never by reference.
type HostState struct {
	// SampleRate is the engine sample rate, the canonical topology field.
	SampleRate float64

	// Fields holds every other key of the payload (parameter values and friends).
	Fields Object
}

// wireState mirrors the JSON object the host sends.
type wireState struct {
	SampleRate float64        `mapstructure:"sampleRate"`
	Rest       map[string]any `mapstructure:",remain"`
}

// NewHostState builds a state from a sample rate and plain field values.
func NewHostState(sampleRate float64, fields map[string]any) (HostState, error) {
	obj := make(Object, len(fields))
	for k, v := range fields {
		val, err := FromAny(v)
		if err != nil {
			return HostState{}, fmt.Errorf("field %q: %w", k, err)
		}
		obj[k] = val
	}
	return HostState{SampleRate: sampleRate, Fields: obj}, nil
}

// DecodeHostState parses the serialized state text sent by the host.
// A payload that is not a JSON object, or whose sampleRate is not numeric, is rejected.
func DecodeHostState(text string) (HostState, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return HostState{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if raw == nil {
		return HostState{}, fmt.Errorf("%w: payload is not an object", ErrInvalidState)
	}

	var ws wireState
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ws,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return HostState{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return HostState{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	fields, err := FromAny(ws.Rest)
	if err != nil {
		return HostState{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	obj, _ := fields.(Object)
	if obj == nil {
		obj = Object{}
	}
	return HostState{SampleRate: ws.SampleRate, Fields: obj}, nil
}

// Field returns the value stored under a wire key, sampleRate included.
func (s HostState) Field(name string) (Value, bool) {
	if name == FieldSampleRate {
		return Number(s.SampleRate), true
	}
	v, ok := s.Fields[name]
	return v, ok
}

// Names returns every wire key present in the state, sorted.
func (s HostState) Names() []string {
	names := append([]string{FieldSampleRate}, s.Fields.SortedKeys()...)
	sort.Strings(names)
	return names
}

// Clone returns a deep copy so callers cannot observe later mutation.
func (s HostState) Clone() HostState {
	out := HostState{SampleRate: s.SampleRate, Fields: make(Object, len(s.Fields))}
	for k, v := range s.Fields {
		out.Fields[k] = Clone(v)
	}
	return out
}

// Equal compares two states field by field.
func (s HostState) Equal(other HostState) bool {
	return s.SampleRate == other.SampleRate && Equal(s.Fields, other.Fields)
}

// MarshalJSON flattens the state back into the host wire shape.
func (s HostState) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Fields)+1)
	for k, v := range s.Fields {
		out[k] = ToAny(v)
	}
	out[FieldSampleRate] = s.SampleRate
	return json.Marshal(out)
}

// UnmarshalJSON accepts the host wire shape.
func (s *HostState) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeHostState(string(data))
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
