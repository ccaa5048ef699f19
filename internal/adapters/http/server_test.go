package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tetherhttp "github.com/aretw0/tether/internal/adapters/http"
	"github.com/aretw0/tether/pkg/adapters/memory"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/host"
	"github.com/aretw0/tether/pkg/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts ...tetherhttp.Option) (*host.Host, *httptest.Server) {
	t.Helper()
	store := memory.NewStore()
	h := host.New(synth.Tone, host.Manifest{Parameters: []host.Parameter{
		{ParamID: "gain", Name: "Gain", Min: 0, Max: 1, DefaultValue: 0.5},
	}}, host.WithInstanceID("test"), host.WithTableStore(store), host.WithSnapshotStore(store))
	t.Cleanup(h.Close)
	require.NoError(t, h.Prepare(context.Background(), 44100, 512))

	srv := httptest.NewServer(tetherhttp.NewHandler(h, opts...))
	t.Cleanup(srv.Close)
	return h, srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestGetHealth(t *testing.T) {
	_, srv := newServer(t)
	resp := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestGetInfo(t *testing.T) {
	_, srv := newServer(t)
	var body map[string]string
	decode(t, do(t, srv, http.MethodGet, "/info", ""), &body)

	assert.Equal(t, "tether-http", body["app"])
	assert.NotEmpty(t, body["version"])
	assert.Equal(t, "test", body["instance"])
}

func TestSetParameter(t *testing.T) {
	h, srv := newServer(t)

	resp := do(t, srv, http.MethodPut, "/params/gain", `{"value": 3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state map[string]any
	decode(t, resp, &state)
	assert.Equal(t, 1.0, state["gain"])
	assert.Equal(t, 44100.0, state["sampleRate"])
	assert.Equal(t, domain.Number(1), h.State().Fields["gain"])
}

func TestSetParameter_Unknown(t *testing.T) {
	_, srv := newServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPut, "/params/nope", `{"value": 1}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPut, "/params/gain", `{`).StatusCode)
}

func TestReceiveMIDI(t *testing.T) {
	_, srv := newServer(t)
	resp := do(t, srv, http.MethodPost, "/midi", `["90 3C 64", "nope"]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Accepted []string `json:"accepted"`
		Rejected []string `json:"rejected"`
	}
	decode(t, resp, &body)
	assert.Equal(t, []string{"90 3C 64"}, body.Accepted)
	assert.Equal(t, []string{"nope"}, body.Rejected)
}

func TestCommandsAndMIDIOut(t *testing.T) {
	_, srv := newServer(t)

	resp := do(t, srv, http.MethodPost, "/commands/sendMIDI", `{"message": "90 3C 64", "index": 0}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out []struct {
		Message string `json:"message"`
		Index   int    `json:"index"`
	}
	decode(t, do(t, srv, http.MethodGet, "/midi/out", ""), &out)
	require.Len(t, out, 1)
	assert.Equal(t, "90 3C 64", out[0].Message)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/commands/explode", "").StatusCode)
}

func TestPrepareAndNodes(t *testing.T) {
	h, srv := newServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/prepare", `{"sampleRate": 0, "blockSize": 0}`).StatusCode)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/prepare", `{"sampleRate": 48000, "blockSize": 256}`).StatusCode)
	assert.Equal(t, 48000.0, h.State().SampleRate)

	require.Eventually(t, func() bool { return h.Runtime().Commits() > 0 }, 2*time.Second, 5*time.Millisecond)
	var nodes []host.NodeInfo
	decode(t, do(t, srv, http.MethodGet, "/nodes", ""), &nodes)
	assert.NotEmpty(t, nodes)
}

func TestNodeGraph(t *testing.T) {
	h, srv := newServer(t)
	require.Eventually(t, func() bool { return h.Runtime().Commits() > 0 }, 2*time.Second, 5*time.Millisecond)

	resp := do(t, srv, http.MethodGet, "/nodes/graph", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "graph BT\n"))
	assert.Contains(t, string(body), "class ")
	assert.Contains(t, string(body), "cycle <br/>")
}

func TestTable(t *testing.T) {
	h, srv := newServer(t)

	resp := do(t, srv, http.MethodPut, "/table", `{"chordProgression": [{"noteNumbers": [60, 64, 67]}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, h.Table().ChordProgression, 1)

	var table struct {
		ChordProgression []struct {
			NoteNumbers []int `json:"noteNumbers"`
		} `json:"chordProgression"`
	}
	decode(t, do(t, srv, http.MethodGet, "/table", ""), &table)
	assert.Equal(t, []int{60, 64, 67}, table.ChordProgression[0].NoteNumbers)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/table", "").StatusCode)
	assert.Empty(t, h.Table().ChordProgression)
}

func TestPersist(t *testing.T) {
	_, srv := newServer(t)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodPost, "/persist", "").StatusCode)
}

func TestMetricsMounted(t *testing.T) {
	_, srv := newServer(t, tetherhttp.WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tether_up 1\n"))
	})))
	resp := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubscribeEvents(t *testing.T) {
	streams := tetherhttp.NewStreamManager()
	_, srv := newServer(t, tetherhttp.WithStreams(streams))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?topic=console", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)
	_, _ = reader.ReadString('\n')
	_, _ = reader.ReadString('\n')

	streams.Broadcast("console", "hello")
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: console\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: hello\n", line)
}

func TestStreamManager_UnsubscribeIsIdempotent(t *testing.T) {
	sm := tetherhttp.NewStreamManager()
	ch, cancel := sm.Subscribe("state")
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	sm.Broadcast("state", "dropped")
}
