package cli_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/tether/internal/cli"
	"github.com/aretw0/tether/internal/config"
	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/internal/presentation/tui"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/host"
	"github.com/aretw0/tether/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newHost(t *testing.T) *host.Host {
	t.Helper()
	h, cleanup, err := cli.NewHost(config.Default(), logging.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return h
}

func TestReplay(t *testing.T) {
	tr, err := cli.ParseTranscript([]byte(noteOn))
	require.NoError(t, err)

	var out syncBuffer
	rec := &syncBuffer{}
	h := newHost(t)
	rep, err := cli.NewReplayer(h,
		cli.WithPrinter(tui.NewPrinter(&out)),
		cli.WithRecorder(transport.NewEncoder(rec)),
	).Run(context.Background(), tr)
	require.NoError(t, err)

	assert.Equal(t, "note on", rep.Name)
	assert.Equal(t, 8, rep.Steps)
	assert.Equal(t, 48000.0, rep.State.SampleRate)
	assert.Equal(t, domain.Number(0.25), rep.State.Fields["gain"])
	assert.GreaterOrEqual(t, rep.Commits, 1)
	assert.Positive(t, rep.Nodes)

	require.Len(t, rep.MIDIOut, 1)
	assert.Equal(t, "90 3C 64", rep.MIDIOut[0].Message.String())

	joined := strings.Join(rep.Console, "\n")
	assert.Contains(t, joined, "MIDI Out > [ 144,60,100 ]")
	assert.Contains(t, string(rep.Saved), `"gain":0.25`)

	printed := out.String()
	assert.Contains(t, printed, "[01] prepare 48000 Hz / 256")
	assert.Contains(t, printed, `dropping invalid MIDI "garbage"`)

	assert.Contains(t, rec.String(), `"kind":"receiveStateChange"`)
	assert.Contains(t, rec.String(), `"kind":"receiveTableContent"`)
}

func TestReplay_StopsAtRejectedStep(t *testing.T) {
	tr, err := cli.ParseTranscript([]byte(`
steps:
  - prepare: {sampleRate: 44100, blockSize: 512}
  - command: {name: explode}
  - param: {id: gain, value: 0.9}
`))
	require.NoError(t, err)

	rep, err := cli.NewReplayer(newHost(t)).Run(context.Background(), tr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2 (command)")
	assert.Equal(t, 1, rep.Steps)
	assert.Equal(t, domain.Number(0.5), rep.State.Fields["gain"])
}

func TestReplay_RestoreState(t *testing.T) {
	tr, err := cli.ParseTranscript([]byte(`
steps:
  - prepare: {sampleRate: 44100, blockSize: 512}
  - restoreState: {gain: 0.75, unknown: 3}
  - param: {id: nope, value: 1}
`))
	require.NoError(t, err)

	var out syncBuffer
	rep, err := cli.NewReplayer(newHost(t), cli.WithPrinter(tui.NewPrinter(&out))).Run(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, domain.Number(0.75), rep.State.Fields["gain"])
	assert.NotContains(t, rep.State.Fields, "unknown")
	assert.Contains(t, out.String(), `unknown parameter "nope" ignored`)
}
