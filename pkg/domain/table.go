package domain

import (
	"encoding/json"
	"fmt"
)

// ChordNotes is one row of the auxiliary table.
type ChordNotes struct {
	NoteNumbers []int `json:"noteNumbers" yaml:"noteNumbers"`
}

// TableContent is the host-persisted auxiliary data table shown by the UI.
type TableContent struct {
	ChordProgression []ChordNotes `json:"chordProgression" yaml:"chordProgression"`
}

// Clone returns a deep copy.
func (t TableContent) Clone() TableContent {
	out := TableContent{ChordProgression: make([]ChordNotes, len(t.ChordProgression))}
	for i, row := range t.ChordProgression {
		out.ChordProgression[i] = ChordNotes{NoteNumbers: append([]int(nil), row.NoteNumbers...)}
	}
	return out
}

// DecodeTableContent parses a receiveTableContent payload.
func DecodeTableContent(text string) (TableContent, error) {
	var t TableContent
	if err := json.Unmarshal([]byte(text), &t); err != nil {
		return TableContent{}, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return t, nil
}

// DecodeErrorNotice parses a receiveError payload.
func DecodeErrorNotice(text string) (ErrorNotice, error) {
	var e ErrorNotice
	if err := json.Unmarshal([]byte(text), &e); err != nil {
		return ErrorNotice{}, fmt.Errorf("%w: %v", ErrInvalidErrorNotice, err)
	}
	if e.Name == "" {
		e.Name = "Error"
	}
	return e, nil
}
