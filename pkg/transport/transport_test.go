package transport_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/pkg/dispatch"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    domain.InboundMessage
		wantErr error
	}{
		{
			name: "string payload",
			line: `{"kind":"receiveStateChange","payload":"{\"sampleRate\":44100}"}`,
			want: domain.InboundMessage{Kind: domain.MsgStateChange, Payload: `{"sampleRate":44100}`},
		},
		{
			name: "object payload is re-encoded",
			line: `{"kind":"receiveMIDI","payload":["90 3C 64"]}`,
			want: domain.InboundMessage{Kind: domain.MsgMIDI, Payload: `["90 3C 64"]`},
		},
		{
			name:    "missing kind",
			line:    `{"payload":"x"}`,
			wantErr: transport.ErrInvalidFrame,
		},
		{
			name:    "not json",
			line:    `hello`,
			wantErr: transport.ErrInvalidFrame,
		},
		{
			name:    "invalid utf8",
			line:    "{\"kind\":\"log\",\"payload\":\"\xff\"}",
			wantErr: transport.ErrInvalidUTF8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transport.ParseLine([]byte(tt.line))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_SizeLimit(t *testing.T) {
	t.Setenv(transport.EnvMaxLineSize, "16")
	_, err := transport.ParseLine([]byte(`{"kind":"log","payload":"a long line"}`))
	assert.ErrorIs(t, err, transport.ErrLineTooLarge)
}

func TestReader_SkipsBlankAndComments(t *testing.T) {
	input := "# transcript\n\n{\"kind\":\"log\",\"payload\":\"one\"}\n   \n{\"kind\":\"log\",\"payload\":\"two\"}\n"
	r := transport.NewReader(strings.NewReader(input))

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", first.Payload)

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "two", second.Payload)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_ReportsLineNumber(t *testing.T) {
	r := transport.NewReader(strings.NewReader("\nnot-json\n"))
	_, err := r.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestEncoder_IsBridge(t *testing.T) {
	var buf bytes.Buffer
	w := transport.NewEncoder(&buf)

	d := dispatch.New(dispatch.WithBridge(w), dispatch.WithDevMode(true))
	require.True(t, d.SetParameterValue("gain", 0.5))
	require.True(t, d.Reload())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"command":"setParameterValue","payload":{"paramId":"gain","value":0.5}}`, lines[0])
	assert.JSONEq(t, `{"command":"reload","payload":null}`, lines[1])
}

type recorder struct {
	mu   sync.Mutex
	msgs []domain.InboundMessage
	fail error
}

func (r *recorder) DeliverWait(ctx context.Context, msg domain.InboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestPump(t *testing.T) {
	input := strings.Join([]string{
		`{"kind":"receiveStateChange","payload":{"sampleRate":48000}}`,
		`garbage`,
		`{"kind":"log","payload":"hi"}`,
	}, "\n")
	rec := &recorder{}

	n, err := transport.Pump(context.Background(), transport.NewReader(strings.NewReader(input)), rec, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, rec.msgs, 2)
	assert.JSONEq(t, `{"sampleRate":48000}`, rec.msgs[0].Payload)
}

func TestPump_StopsOnDeliveryError(t *testing.T) {
	boom := errors.New("closed")
	rec := &recorder{fail: boom}
	_, err := transport.Pump(context.Background(),
		transport.NewReader(strings.NewReader(`{"kind":"log","payload":"x"}`)), rec, logging.NewNop())
	assert.ErrorIs(t, err, boom)
}

func TestPump_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := transport.Pump(ctx, transport.NewReader(strings.NewReader("")), &recorder{}, logging.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}
