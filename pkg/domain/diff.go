package domain

// StateDiff represents the changes between two host states.
// It drives the incremental update path: only fields listed here may be patched.
type StateDiff struct {
	// SampleRate is set when the sample rate changed (or on initial load).
	SampleRate *float64 `json:"sampleRate,omitempty"`

	// Fields contains only changed, added or deleted keys.
	// For deletions, the key is present with a Null value.
	Fields Object `json:"fields,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState *HostState, newState HostState) *StateDiff {
	diff := &StateDiff{}

	if oldState == nil || oldState.SampleRate != newState.SampleRate {
		rate := newState.SampleRate
		diff.SampleRate = &rate
	}

	diff.Fields = diffFields(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFields(old *HostState, new HostState) Object {
	delta := make(Object)

	// If old is nil, everything in new is a delta
	if old == nil {
		for k, v := range new.Fields {
			delta[k] = Clone(v)
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	// Added or modified
	for k, newVal := range new.Fields {
		oldVal, exists := old.Fields[k]
		if !exists || !Equal(oldVal, newVal) {
			delta[k] = Clone(newVal)
		}
	}

	// Deletions
	for k := range old.Fields {
		if _, exists := new.Fields[k]; !exists {
			delta[k] = Null{}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// Changed reports whether the named wire field is part of the diff.
func (d *StateDiff) Changed(name string) bool {
	if d == nil {
		return false
	}
	if name == FieldSampleRate {
		return d.SampleRate != nil
	}
	_, ok := d.Fields[name]
	return ok
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d == nil || (d.SampleRate == nil && len(d.Fields) == 0)
}
