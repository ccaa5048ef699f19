package midi

import (
	"errors"
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// ErrInvalidMessage is returned for text that is not three space separated hex bytes.
var ErrInvalidMessage = errors.New("midi: invalid message")

// textLen is the length of "HH HH HH".
const textLen = 8

// Message is a raw three-byte MIDI message.
type Message [3]byte

// Fallback is substituted for invalid inbound entries by display contexts.
var Fallback = Message{0x00, 0x00, 0x00}

// IsValid reports whether text is exactly three two-digit hex groups separated by
// single ASCII spaces.
func IsValid(text string) bool {
	if len(text) != textLen {
		return false
	}
	for i := 0; i < textLen; i++ {
		c := text[i]
		if i == 2 || i == 5 {
			if c != ' ' {
				return false
			}
			continue
		}
		if _, ok := hexNibble(c); !ok {
			return false
		}
	}
	return true
}

// Parse decodes text into a Message.
func Parse(text string) (Message, error) {
	if !IsValid(text) {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidMessage, text)
	}
	var m Message
	for i := range m {
		hi, _ := hexNibble(text[i*3])
		lo, _ := hexNibble(text[i*3+1])
		m[i] = hi<<4 | lo
	}
	return m, nil
}

// Decode returns the byte values of text, left to right.
func Decode(text string) ([]byte, error) {
	m, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return m.Bytes(), nil
}

// FromBytes builds a Message from exactly three bytes.
func FromBytes(b []byte) (Message, error) {
	if len(b) != len(Message{}) {
		return Message{}, fmt.Errorf("%w: want 3 bytes, got %d", ErrInvalidMessage, len(b))
	}
	var m Message
	copy(m[:], b)
	return m, nil
}

// Bytes returns a fresh slice holding the message bytes.
func (m Message) Bytes() []byte {
	return []byte{m[0], m[1], m[2]}
}

// String returns the canonical upper-case text form.
func (m Message) String() string {
	return fmt.Sprintf("%02X %02X %02X", m[0], m[1], m[2])
}

// IsNoteOn reports whether m starts a note (note-on with non-zero velocity).
func (m Message) IsNoteOn() bool {
	var ch, key, vel uint8
	return gomidi.Message(m.Bytes()).GetNoteStart(&ch, &key, &vel)
}

// IsNoteOff reports whether m ends a note (note-off, or note-on with zero velocity).
func (m Message) IsNoteOff() bool {
	var ch, key uint8
	return gomidi.Message(m.Bytes()).GetNoteEnd(&ch, &key)
}

// Describe returns a human readable summary for diagnostics.
func (m Message) Describe() string {
	return gomidi.Message(m.Bytes()).String()
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
