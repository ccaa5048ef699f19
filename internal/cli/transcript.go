package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/tether/pkg/domain"
)

// ErrInvalidTranscript is returned for transcripts that cannot be replayed.
var ErrInvalidTranscript = errors.New("invalid transcript")

// Transcript is a scripted sequence of host events.
//
//	name: note on
//	steps:
//	  - prepare: {sampleRate: 48000, blockSize: 256}
//	  - openUI: true
//	  - param: {id: gain, value: 0.2}
//	  - midiIn: ["90 3C 64"]
//	  - command: {name: sendMIDI, payload: {message: "90 3C 64", index: 0}}
//	  - wait: 50ms
type Transcript struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one host event. Exactly one field must be set.
type Step struct {
	Prepare      *PrepareStep         `yaml:"prepare,omitempty"`
	OpenUI       bool                 `yaml:"openUI,omitempty"`
	CloseUI      bool                 `yaml:"closeUI,omitempty"`
	Param        *ParamStep           `yaml:"param,omitempty"`
	MIDIIn       []string             `yaml:"midiIn,omitempty"`
	Command      *CommandStep         `yaml:"command,omitempty"`
	Table        *domain.TableContent `yaml:"table,omitempty"`
	ResetTable   bool                 `yaml:"resetTable,omitempty"`
	Wait         time.Duration        `yaml:"wait,omitempty"`
	Persist      bool                 `yaml:"persist,omitempty"`
	Resume       bool                 `yaml:"resume,omitempty"`
	SaveState    bool                 `yaml:"saveState,omitempty"`
	RestoreState any                  `yaml:"restoreState,omitempty"`
}

// PrepareStep changes the processing settings.
type PrepareStep struct {
	SampleRate float64 `yaml:"sampleRate"`
	BlockSize  int     `yaml:"blockSize"`
}

// ParamStep is a host-side parameter change.
type ParamStep struct {
	ID    string  `yaml:"id"`
	Value float64 `yaml:"value"`
}

// CommandStep posts a command as if the UI had sent it.
type CommandStep struct {
	Name    string `yaml:"name"`
	Payload any    `yaml:"payload"`
}

// Kind names the event the step carries, or "" when none or several are set.
func (s Step) Kind() string {
	var kinds []string
	add := func(set bool, name string) {
		if set {
			kinds = append(kinds, name)
		}
	}
	add(s.Prepare != nil, "prepare")
	add(s.OpenUI, "openUI")
	add(s.CloseUI, "closeUI")
	add(s.Param != nil, "param")
	add(s.MIDIIn != nil, "midiIn")
	add(s.Command != nil, "command")
	add(s.Table != nil, "table")
	add(s.ResetTable, "resetTable")
	add(s.Wait > 0, "wait")
	add(s.Persist, "persist")
	add(s.Resume, "resume")
	add(s.SaveState, "saveState")
	add(s.RestoreState != nil, "restoreState")
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// ParseTranscript decodes YAML (or JSON) transcript text.
func ParseTranscript(data []byte) (Transcript, error) {
	var t Transcript
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Transcript{}, fmt.Errorf("%w: %v", ErrInvalidTranscript, err)
	}
	if len(t.Steps) == 0 {
		return Transcript{}, fmt.Errorf("%w: no steps", ErrInvalidTranscript)
	}
	for i, s := range t.Steps {
		if s.Kind() == "" {
			return Transcript{}, fmt.Errorf("%w: step %d must set exactly one event", ErrInvalidTranscript, i+1)
		}
		if s.Command != nil && s.Command.Name == "" {
			return Transcript{}, fmt.Errorf("%w: step %d: command without a name", ErrInvalidTranscript, i+1)
		}
	}
	return t, nil
}

// LoadTranscript reads and parses a transcript file.
func LoadTranscript(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to read transcript: %w", err)
	}
	return ParseTranscript(data)
}

// toJSON re-encodes a YAML-decoded tree. yaml.v3 yields map[string]any for
// mappings, which encoding/json accepts as is.
func toJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}
