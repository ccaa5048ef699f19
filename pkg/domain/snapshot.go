package domain

import "encoding/json"

// Snapshot is the persisted form of one plugin instance: the host state and the
// node snapshot used to hydrate a fresh headless context.
type Snapshot struct {
	State HostState
	Nodes Object
}

type wireSnapshot struct {
	State json.RawMessage `json:"state"`
	Nodes map[string]any  `json:"nodes"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{State: s.State.Clone()}
	if s.Nodes != nil {
		out.Nodes = Clone(s.Nodes).(Object)
	}
	return out
}

// MarshalJSON encodes the snapshot with plain JSON values.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	state, err := json.Marshal(s.State)
	if err != nil {
		return nil, err
	}
	nodes, _ := ToAny(s.Nodes).(map[string]any)
	return json.Marshal(wireSnapshot{State: state, Nodes: nodes})
}

// UnmarshalJSON decodes the MarshalJSON form.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var out Snapshot
	if len(w.State) > 0 && string(w.State) != "null" {
		if err := json.Unmarshal(w.State, &out.State); err != nil {
			return err
		}
	}
	if w.Nodes != nil {
		nodes, err := FromAny(w.Nodes)
		if err != nil {
			return err
		}
		out.Nodes = nodes.(Object)
	}
	*s = out
	return nil
}
