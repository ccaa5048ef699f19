package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHostState(t *testing.T) {
	s, err := domain.DecodeHostState(`{"sampleRate": 48000, "gain": 0.25, "mode": "poly"}`)
	require.NoError(t, err)

	assert.Equal(t, 48000.0, s.SampleRate)
	assert.Equal(t, domain.Number(0.25), s.Fields["gain"])
	assert.Equal(t, domain.String("poly"), s.Fields["mode"])
	_, hasRate := s.Fields[domain.FieldSampleRate]
	assert.False(t, hasRate, "sampleRate must not leak into Fields")

	rate, ok := s.Field(domain.FieldSampleRate)
	require.True(t, ok)
	assert.Equal(t, domain.Number(48000), rate)
}

func TestDecodeHostState_Failures(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"sampleRate":`,
		"not an object":     `[1, 2, 3]`,
		"null":              `null`,
		"string samplerate": `{"sampleRate": "fast"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := domain.DecodeHostState(payload)
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		})
	}
}

func TestHostState_JSONRoundTrip(t *testing.T) {
	s, err := domain.NewHostState(44100, map[string]any{"gain": 0.5})
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sampleRate": 44100, "gain": 0.5}`, string(data))

	var back domain.HostState
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, s.Equal(back))
}

func TestHostState_CloneIsolation(t *testing.T) {
	s, err := domain.NewHostState(44100, map[string]any{"voices": []any{1.0, 2.0}})
	require.NoError(t, err)

	cp := s.Clone()
	cp.Fields["voices"].(domain.List)[0] = domain.Number(7)

	assert.Equal(t, domain.Number(1), s.Fields["voices"].(domain.List)[0])
}

func TestDecodeErrorNotice(t *testing.T) {
	e, err := domain.DecodeErrorNotice(`{"name": "Runtime Error", "message": "bad node"}`)
	require.NoError(t, err)
	assert.Equal(t, "[Error: Runtime Error] bad node", e.String())

	_, err = domain.DecodeErrorNotice(`nope`)
	assert.ErrorIs(t, err, domain.ErrInvalidErrorNotice)
}

func TestDecodeTableContent(t *testing.T) {
	tc, err := domain.DecodeTableContent(`{"chordProgression": [{"noteNumbers": [60, 64, 67]}]}`)
	require.NoError(t, err)
	require.Len(t, tc.ChordProgression, 1)
	assert.Equal(t, []int{60, 64, 67}, tc.ChordProgression[0].NoteNumbers)

	cp := tc.Clone()
	cp.ChordProgression[0].NoteNumbers[0] = 0
	assert.Equal(t, 60, tc.ChordProgression[0].NoteNumbers[0])
}
