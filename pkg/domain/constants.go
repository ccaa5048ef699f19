package domain

// Field names used on the wire and in mapstructure tags.
const (
	// FieldSampleRate is the host state key carrying the engine sample rate.
	FieldSampleRate = "sampleRate"

	// FieldChordProgression wraps the auxiliary table when the host relays it.
	FieldChordProgression = "chordProgression"

	// FieldNoteNumbers is the per-row key inside the chord progression table.
	FieldNoteNumbers = "noteNumbers"
)
