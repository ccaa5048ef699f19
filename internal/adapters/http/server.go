// Package http exposes a reference host over HTTP.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/internal/presentation/graph"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/host"
	"github.com/aretw0/tether/pkg/midi"
	"github.com/go-chi/chi/v5"
)

// Host is the part of the reference host the server drives.
type Host interface {
	ID() string
	State() domain.HostState
	Prepare(ctx context.Context, sampleRate float64, blockSize int) error
	SetParameter(ctx context.Context, paramID string, value float64) bool
	ReceiveMIDI(ctx context.Context, msgs []midi.Message)
	DrainMIDIOut() []host.OutgoingMIDI
	HandleCommand(ctx context.Context, role tether.Role, name string, payload []byte) error
	Table() domain.TableContent
	SetTableContent(ctx context.Context, table domain.TableContent) error
	ResetTableContent(ctx context.Context) error
	Runtime() *host.Runtime
	Persist(ctx context.Context) error
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStreams sets the event fan-out used by /events.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// Server holds the handlers.
type Server struct {
	Host    Host
	Streams *StreamManager

	logger  *slog.Logger
	metrics http.Handler
}

// NewHandler creates the HTTP handler for h.
func NewHandler(h Host, opts ...Option) http.Handler {
	s := &Server{
		Host:    h,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/state", s.GetState)
	r.Post("/prepare", s.Prepare)
	r.Put("/params/{paramId}", s.SetParameter)
	r.Post("/midi", s.ReceiveMIDI)
	r.Get("/midi/out", s.DrainMIDIOut)
	r.Post("/commands/{name}", s.Command)
	r.Get("/nodes", s.GetNodes)
	r.Get("/nodes/graph", s.GetNodeGraph)
	r.Get("/table", s.GetTable)
	r.Put("/table", s.PutTable)
	r.Delete("/table", s.DeleteTable)
	r.Post("/persist", s.Persist)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "error", err)
	} else {
		s.logger.Warn(msg, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s: %v", msg, err)})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":      "tether-http",
		"version":  strings.TrimSpace(tether.Version),
		"instance": s.Host.ID(),
	})
}

// GetState handles GET /state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Host.State())
}

type prepareRequest struct {
	SampleRate float64 `json:"sampleRate"`
	BlockSize  int     `json:"blockSize"`
}

// Prepare handles POST /prepare.
func (s *Server) Prepare(w http.ResponseWriter, r *http.Request) {
	var body prepareRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if body.SampleRate <= 0 || body.BlockSize <= 0 {
		s.fail(w, http.StatusBadRequest, "invalid audio settings", fmt.Errorf("sampleRate=%v blockSize=%d", body.SampleRate, body.BlockSize))
		return
	}
	if err := s.Host.Prepare(r.Context(), body.SampleRate, body.BlockSize); err != nil {
		s.fail(w, http.StatusInternalServerError, "prepare failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Host.State())
}

type parameterRequest struct {
	Value float64 `json:"value"`
}

// SetParameter handles PUT /params/{paramId}.
func (s *Server) SetParameter(w http.ResponseWriter, r *http.Request) {
	paramID := chi.URLParam(r, "paramId")
	var body parameterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if !s.Host.SetParameter(r.Context(), paramID, body.Value) {
		s.fail(w, http.StatusNotFound, "unknown parameter", fmt.Errorf("%q", paramID))
		return
	}
	s.writeJSON(w, http.StatusOK, s.Host.State())
}

type midiResponse struct {
	Accepted []string `json:"accepted"`
	Rejected []string `json:"rejected"`
}

// ReceiveMIDI handles POST /midi with a JSON array of hex messages. Invalid
// entries are reported and dropped; the rest reach both contexts.
func (s *Server) ReceiveMIDI(w http.ResponseWriter, r *http.Request) {
	var texts []string
	if err := json.NewDecoder(r.Body).Decode(&texts); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	accepted, rejected := midi.Accepted(texts)
	if len(accepted) > 0 {
		s.Host.ReceiveMIDI(r.Context(), accepted)
	}

	resp := midiResponse{Accepted: make([]string, len(accepted)), Rejected: rejected}
	for i, m := range accepted {
		resp.Accepted[i] = m.String()
	}
	if resp.Rejected == nil {
		resp.Rejected = []string{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type outgoingMIDI struct {
	Message string `json:"message"`
	Index   int    `json:"index"`
	Event   string `json:"event"`
}

// DrainMIDIOut handles GET /midi/out, emptying the queue.
func (s *Server) DrainMIDIOut(w http.ResponseWriter, r *http.Request) {
	queued := s.Host.DrainMIDIOut()
	out := make([]outgoingMIDI, len(queued))
	for i, q := range queued {
		out[i] = outgoingMIDI{Message: q.Message.String(), Index: q.Index, Event: q.Message.Describe()}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// Command handles POST /commands/{name}, acting as the UI bridge.
func (s *Server) Command(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "failed to read body", err)
		return
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if err := s.Host.HandleCommand(r.Context(), tether.RoleUI, name, payload); err != nil {
		s.fail(w, http.StatusBadRequest, "command rejected", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetNodes handles GET /nodes.
func (s *Server) GetNodes(w http.ResponseWriter, r *http.Request) {
	rt := s.Host.Runtime()
	if rt == nil {
		s.writeJSON(w, http.StatusOK, []host.NodeInfo{})
		return
	}
	s.writeJSON(w, http.StatusOK, rt.Nodes())
}

// GetNodeGraph handles GET /nodes/graph, rendering the runtime as Mermaid text.
func (s *Server) GetNodeGraph(w http.ResponseWriter, r *http.Request) {
	var nodes []host.NodeInfo
	overlay := &graph.Overlay{}
	if rt := s.Host.Runtime(); rt != nil {
		nodes = rt.Nodes()
		overlay.Roots = rt.Roots()
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(nodes, overlay)))
}

// GetTable handles GET /table.
func (s *Server) GetTable(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Host.Table())
}

// PutTable handles PUT /table.
func (s *Server) PutTable(w http.ResponseWriter, r *http.Request) {
	var table domain.TableContent
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid table", err)
		return
	}
	if err := s.Host.SetTableContent(r.Context(), table); err != nil {
		s.fail(w, http.StatusInternalServerError, "failed to store table", err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Host.Table())
}

// DeleteTable handles DELETE /table.
func (s *Server) DeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := s.Host.ResetTableContent(r.Context()); err != nil {
		s.fail(w, http.StatusInternalServerError, "failed to reset table", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Persist handles POST /persist.
func (s *Server) Persist(w http.ResponseWriter, r *http.Request) {
	if err := s.Host.Persist(r.Context()); err != nil {
		s.fail(w, http.StatusInternalServerError, "persist failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StreamManager fans events out to SSE subscribers by topic.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{}
}

// NewStreamManager creates an empty fan-out.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
	}
}

// Subscribe registers a buffered channel for topic. The returned func unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(topic string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[topic]; !ok {
		sm.subscribers[topic] = make(map[chan string]struct{})
	}
	sm.subscribers[topic][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[topic]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, topic)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of topic. Slow subscribers miss messages.
func (sm *StreamManager) Broadcast(topic string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// SubscribeEvents handles GET /events?topic=state (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, http.StatusInternalServerError, "streaming not supported", fmt.Errorf("%T", w))
		return
	}
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = "state"
	}

	ch, cancel := s.Streams.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", topic, msg)
			flusher.Flush()
		}
	}
}
