package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		old      *HostState
		new      HostState
		wantDiff *StateDiff // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: HostState{
				SampleRate: 48000,
				Fields:     Object{"gain": Number(0.5)},
			},
			wantDiff: &StateDiff{
				SampleRate: &[]float64{48000}[0],
				Fields:     Object{"gain": Number(0.5)},
			},
		},
		{
			name: "No Changes",
			old: &HostState{
				SampleRate: 48000,
				Fields:     Object{"gain": Number(0.5)},
			},
			new: HostState{
				SampleRate: 48000,
				Fields:     Object{"gain": Number(0.5)},
			},
			wantDiff: nil,
		},
		{
			name: "Sample Rate Change",
			old:  &HostState{SampleRate: 44100},
			new:  HostState{SampleRate: 48000},
			wantDiff: &StateDiff{
				SampleRate: &[]float64{48000}[0],
			},
		},
		{
			name: "Fields Added & Modified",
			old: &HostState{
				SampleRate: 48000,
				Fields:     Object{"gain": Number(0.5), "mode": String("old")},
			},
			new: HostState{
				SampleRate: 48000,
				Fields:     Object{"gain": Number(0.5), "mode": String("new"), "bypass": Bool(true)},
			},
			wantDiff: &StateDiff{
				Fields: Object{"mode": String("new"), "bypass": Bool(true)},
			},
		},
		{
			name: "Field Deletion",
			old: &HostState{
				Fields: Object{"a": Number(1), "b": Number(2)},
			},
			new: HostState{
				Fields: Object{"a": Number(1)},
			},
			wantDiff: &StateDiff{
				Fields: Object{"b": Null{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("Diff() = nil, want %v", tt.wantDiff)
			}

			if !equalPtr(got.SampleRate, tt.wantDiff.SampleRate) {
				t.Errorf("Diff().SampleRate = %v, want %v", got.SampleRate, tt.wantDiff.SampleRate)
			}
			if !reflect.DeepEqual(got.Fields, tt.wantDiff.Fields) {
				t.Errorf("Diff().Fields = %v, want %v", got.Fields, tt.wantDiff.Fields)
			}
		})
	}
}

func TestDiffChanged(t *testing.T) {
	old := &HostState{SampleRate: 44100, Fields: Object{"gain": Number(0.1)}}
	diff := Diff(old, HostState{SampleRate: 44100, Fields: Object{"gain": Number(0.2)}})

	if diff.Changed(FieldSampleRate) {
		t.Errorf("sampleRate reported as changed")
	}
	if !diff.Changed("gain") {
		t.Errorf("gain not reported as changed")
	}

	var empty *StateDiff
	if empty.Changed("gain") || !empty.IsEmpty() {
		t.Errorf("nil diff must be empty")
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Empty Fields Omitted", func(t *testing.T) {
		s1 := &HostState{SampleRate: 1, Fields: Object{"a": Number(1)}}
		s2 := HostState{SampleRate: 2, Fields: Object{"a": Number(1)}}
		diff := Diff(s1, s2)

		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}
		bytes, _ := json.Marshal(diff)
		if strings.Contains(string(bytes), `"fields"`) {
			t.Errorf("JSON should not contain 'fields' when empty, got: %s", string(bytes))
		}
	})

	t.Run("Deletions as Null", func(t *testing.T) {
		s1 := &HostState{Fields: Object{"a": Number(1), "b": Number(2)}}
		s2 := HostState{Fields: Object{"a": Number(1)}}
		diff := Diff(s1, s2)

		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"b":null`) {
			t.Errorf("JSON should contain 'b':null for deletion, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
