package midi_test

import (
	"testing"

	"github.com/aretw0/tether/pkg/midi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"90 3C 64", true},
		{"90 3c 64", true},
		{"ff FF 0a", true},
		{"00 00 00", true},
		{"90 3C", false},
		{"90 3C 64 00", false},
		{" 90 3C 64", false},
		{"90 3C 64 ", false},
		{"90  3C 64", false},
		{"90-3C-64", false},
		{"9G 3C 64", false},
		{"903C64", false},
		{"", false},
		{"0x90 3C 64", false},
		{"90\t3C 64", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, midi.IsValid(tt.text))
		})
	}
}

func TestDecode(t *testing.T) {
	got, err := midi.Decode("90 3C 64")
	require.NoError(t, err)
	assert.Equal(t, []byte{144, 60, 100}, got)

	got, err = midi.Decode("80 3c 00")
	require.NoError(t, err)
	assert.Equal(t, []byte{128, 60, 0}, got)

	_, err = midi.Decode("nope")
	assert.ErrorIs(t, err, midi.ErrInvalidMessage)
}

func TestMessage_StringRoundTrip(t *testing.T) {
	m, err := midi.Parse("b0 07 7f")
	require.NoError(t, err)
	assert.Equal(t, "B0 07 7F", m.String())

	back, err := midi.Parse(m.String())
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestFromBytes(t *testing.T) {
	m, err := midi.FromBytes([]byte{0x90, 0x40, 0x7f})
	require.NoError(t, err)
	assert.Equal(t, "90 40 7F", m.String())

	_, err = midi.FromBytes([]byte{0x90, 0x40})
	assert.ErrorIs(t, err, midi.ErrInvalidMessage)
}

func TestNoteClassification(t *testing.T) {
	on, _ := midi.Parse("90 3C 64")
	assert.True(t, on.IsNoteOn())
	assert.False(t, on.IsNoteOff())

	zeroVel, _ := midi.Parse("90 3C 00")
	assert.False(t, zeroVel.IsNoteOn())
	assert.True(t, zeroVel.IsNoteOff())

	off, _ := midi.Parse("80 3C 40")
	assert.True(t, off.IsNoteOff())
}

func TestDescribe(t *testing.T) {
	m, _ := midi.Parse("90 3C 64")
	assert.NotEmpty(t, m.Describe())
}

func TestAccepted_PreservesOrder(t *testing.T) {
	accepted, rejected := midi.Accepted([]string{"90 3C 64", "bogus", "80 3C 00"})

	require.Len(t, accepted, 2)
	assert.Equal(t, "90 3C 64", accepted[0].String())
	assert.Equal(t, "80 3C 00", accepted[1].String())
	assert.Equal(t, []string{"bogus"}, rejected)
}

func TestFormatList(t *testing.T) {
	m, _ := midi.Parse("90 3C 00")
	assert.Equal(t, "[ 144,60,0 ]", midi.FormatList(m))
}
