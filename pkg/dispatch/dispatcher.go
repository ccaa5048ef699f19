package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/midi"
)

// Hooks observe dispatcher activity. Any field may be nil.
type Hooks struct {
	// OnPost is called once per command with whether it reached the bridge.
	OnPost func(name string, dispatched bool)

	// OnMIDI is called once per SendMIDI with the accepted and rejected counts.
	OnMIDI func(accepted, rejected int)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithDevMode enables development-only commands such as reload.
func WithDevMode(enabled bool) Option {
	return func(d *Dispatcher) {
		d.devMode = enabled
	}
}

// WithHooks registers observation callbacks.
func WithHooks(h Hooks) Option {
	return func(d *Dispatcher) {
		d.hooks = h
	}
}

// WithBridge attaches a bridge at construction.
func WithBridge(b Bridge) Option {
	return func(d *Dispatcher) {
		d.bridge = b
	}
}

// Dispatcher serializes outbound commands and posts them through the bridge.
type Dispatcher struct {
	mu      sync.RWMutex
	bridge  Bridge
	devMode bool
	logger  *slog.Logger
	hooks   Hooks
}

// New creates a dispatcher with no bridge attached.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attach installs the host bridge, replacing any previous one.
func (d *Dispatcher) Attach(b Bridge) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bridge = b
}

// Detach removes the bridge. Later commands become no-ops.
func (d *Dispatcher) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bridge = nil
}

// Available reports whether a bridge is attached.
func (d *Dispatcher) Available() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bridge != nil
}

// Post serializes payload and sends it under name. It reports whether the command
// was handed to the bridge; it never panics and never returns an error.
func (d *Dispatcher) Post(name string, payload any) (dispatched bool) {
	defer func() {
		if d.hooks.OnPost != nil {
			d.hooks.OnPost(name, dispatched)
		}
	}()

	d.mu.RLock()
	bridge := d.bridge
	d.mu.RUnlock()
	if bridge == nil {
		d.logger.Debug("bridge unavailable, command dropped", "command", name)
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		d.logger.Warn("failed to encode command payload", "command", name, "error", err)
		return false
	}

	if err := safePost(bridge, name, data); err != nil {
		d.logger.Warn("bridge rejected command", "command", name, "error", err)
		return false
	}
	return true
}

func safePost(b Bridge, name string, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bridge panic: %v", r)
		}
	}()
	return b.PostNativeMessage(name, data)
}

// Ready announces that the context is initialized and may receive state.
func (d *Dispatcher) Ready() bool {
	return d.Post(domain.CmdReady, struct{}{})
}

// SetParameterValue asks the host to change a parameter.
func (d *Dispatcher) SetParameterValue(paramID string, value float64) bool {
	return d.Post(domain.CmdSetParameterValue, domain.SetParameterPayload{ParamID: paramID, Value: value})
}

// SendMIDI posts one sendMIDI command per valid message, in input order.
// Only messages that reached the host consume an index, so indices run 0..n-1
// over the dispatched commands. It returns the number of commands dispatched.
func (d *Dispatcher) SendMIDI(messages []string) int {
	if !d.Available() {
		return 0
	}

	accepted, rejected := 0, 0
	sent := 0
	for _, text := range messages {
		if !midi.IsValid(text) {
			rejected++
			continue
		}
		accepted++
		if d.Post(domain.CmdSendMIDI, domain.SendMIDIPayload{Message: text, Index: sent}) {
			sent++
		}
	}
	if rejected > 0 {
		d.logger.Debug("invalid MIDI messages skipped", "rejected", rejected)
	}
	if d.hooks.OnMIDI != nil {
		d.hooks.OnMIDI(accepted, rejected)
	}
	return sent
}

// Reload asks the host to restart the script contexts. Development mode only.
func (d *Dispatcher) Reload() bool {
	if !d.devMode {
		d.logger.Debug("reload ignored outside dev mode")
		return false
	}
	return d.Post(domain.CmdReload, nil)
}

// ResetTableContent asks the host to clear the persisted table. clearLocal, if
// not nil, runs only when the command was dispatched, so the local buffer and the
// host table are cleared together or not at all.
func (d *Dispatcher) ResetTableContent(clearLocal func()) bool {
	if !d.Post(domain.CmdResetTableContent, struct{}{}) {
		return false
	}
	if clearLocal != nil {
		clearLocal()
	}
	return true
}
