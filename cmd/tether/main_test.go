package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tether version 0.1.0")
}

func TestMIDICommand(t *testing.T) {
	out, err := execute(t, "midi", "90 3C 64")
	require.NoError(t, err)
	assert.Contains(t, out, "[ 144,60,100 ]")

	out, err = execute(t, "midi", "90 3C 64", "F0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 invalid message(s)")
	assert.Contains(t, out, "F0")
}

func TestRunCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: smoke
steps:
  - prepare: {sampleRate: 44100, blockSize: 128}
  - param: {id: frequency, value: 880}
`), 0o644))

	out, err := execute(t, "run", "--quiet", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed 2 step(s).")
	assert.Contains(t, out, `"frequency":880`)
}
