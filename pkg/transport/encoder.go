package transport

import (
	"encoding/json"
	"io"
	"os"
	"sync"
)

type outboundFrame struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload"`
}

// Encoder encodes outbound commands, one per line. It is safe for concurrent use.
type Encoder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewEncoder creates an encoder over w, or os.Stdout if w is nil.
func NewEncoder(w io.Writer) *Encoder {
	if w == nil {
		w = os.Stdout
	}
	return &Encoder{enc: json.NewEncoder(w)}
}

// PostNativeMessage implements dispatch.Bridge.
func (e *Encoder) PostNativeMessage(name string, payload []byte) error {
	if len(payload) == 0 {
		payload = []byte("null")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(outboundFrame{Command: name, Payload: payload})
}

// WriteNotification encodes an inbound-style frame, used when recording transcripts.
func (e *Encoder) WriteNotification(kind string, payload string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(struct {
		Kind    string `json:"kind"`
		Payload string `json:"payload"`
	}{kind, payload})
}
