package tether

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tether/pkg/midi"
)

type midiEntry struct {
	raw   string
	msg   midi.Message
	valid bool
}

// decodeMIDIEntries accepts a JSON array whose entries are hex triplet strings or
// arrays of three byte values. Every entry is returned, valid or not.
func decodeMIDIEntries(payload string) ([]midiEntry, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raws); err != nil {
		return nil, fmt.Errorf("decode MIDI payload: %w", err)
	}

	entries := make([]midiEntry, len(raws))
	for i, raw := range raws {
		entries[i] = decodeMIDIEntry(raw)
	}
	return entries, nil
}

func decodeMIDIEntry(raw json.RawMessage) midiEntry {
	e := midiEntry{raw: string(raw)}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		e.raw = text
		m, err := midi.Parse(text)
		e.msg, e.valid = m, err == nil
		return e
	}

	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return e
	}
	b := make([]byte, 0, len(ints))
	for _, v := range ints {
		if v < 0 || v > 0xff {
			return e
		}
		b = append(b, byte(v))
	}
	m, err := midi.FromBytes(b)
	e.msg, e.valid = m, err == nil
	return e
}
