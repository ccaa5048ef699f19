package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/internal/presentation/tui"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/host"
	"github.com/aretw0/tether/pkg/midi"
	"github.com/aretw0/tether/pkg/transport"
)

// Report summarizes a replayed transcript.
type Report struct {
	Name    string
	Steps   int
	State   domain.HostState
	Commits int
	Nodes   int
	Created int
	MIDIOut []host.OutgoingMIDI

	// Console lists every non-empty UI console text in the order it appeared.
	Console []string

	// Saved is the output of the last saveState step.
	Saved []byte
}

// Replayer drives a host through a transcript.
type Replayer struct {
	host    *host.Host
	printer *tui.Printer
	record  *transport.Encoder

	mu      sync.Mutex
	console []string
	saved   []byte
	unsub   []func()
}

// ReplayOption configures a Replayer.
type ReplayOption func(*Replayer)

// WithPrinter reports progress to p.
func WithPrinter(p *tui.Printer) ReplayOption {
	return func(r *Replayer) {
		r.printer = p
	}
}

// WithRecorder writes every notification the UI receives to enc, as JSON lines
// that `tether attach --role ui` can read back.
func WithRecorder(enc *transport.Encoder) ReplayOption {
	return func(r *Replayer) {
		r.record = enc
	}
}

// NewReplayer creates a replayer for h.
func NewReplayer(h *host.Host, opts ...ReplayOption) *Replayer {
	r := &Replayer{host: h}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run applies every step in order. It stops at the first step the host rejects.
func (r *Replayer) Run(ctx context.Context, t Transcript) (Report, error) {
	defer r.detach()
	if r.printer != nil && t.Name != "" {
		r.printer.Info("Replaying '%s' on instance %s", t.Name, r.host.ID())
	}

	for i, s := range t.Steps {
		kind := s.Kind()
		if r.printer != nil {
			r.printer.Step(i+1, kind, describe(s))
		}
		if err := r.apply(ctx, s); err != nil {
			return r.report(t, i), fmt.Errorf("step %d (%s): %w", i+1, kind, err)
		}
		if err := r.settle(ctx); err != nil {
			return r.report(t, i), err
		}
	}
	return r.report(t, len(t.Steps)), nil
}

func (r *Replayer) apply(ctx context.Context, s Step) error {
	h := r.host
	switch s.Kind() {
	case "prepare":
		return h.Prepare(ctx, s.Prepare.SampleRate, s.Prepare.BlockSize)
	case "openUI":
		return r.openUI()
	case "closeUI":
		r.detach()
		h.CloseUI()
	case "param":
		if !h.SetParameter(ctx, s.Param.ID, s.Param.Value) {
			r.info("unknown parameter %q ignored", s.Param.ID)
		}
	case "midiIn":
		accepted, rejected := midi.Accepted(s.MIDIIn)
		for _, text := range rejected {
			r.info("dropping invalid MIDI %q", text)
		}
		h.ReceiveMIDI(ctx, accepted)
	case "command":
		payload, err := toJSON(s.Command.Payload)
		if err != nil {
			return err
		}
		return h.HandleCommand(ctx, tether.RoleUI, s.Command.Name, payload)
	case "table":
		return h.SetTableContent(ctx, *s.Table)
	case "resetTable":
		return h.ResetTableContent(ctx)
	case "wait":
		select {
		case <-time.After(s.Wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	case "persist":
		return h.Persist(ctx)
	case "resume":
		ok, err := h.Resume(ctx)
		if err != nil {
			return err
		}
		if !ok {
			r.info("no snapshot for instance %s", h.ID())
		}
	case "saveState":
		data, err := h.SaveState()
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.saved = data
		r.mu.Unlock()
		r.info("state %s", data)
	case "restoreState":
		data, err := toJSON(s.RestoreState)
		if err != nil {
			return err
		}
		return h.RestoreState(data)
	}
	return nil
}

func (r *Replayer) openUI() error {
	r.detach()
	ui, err := r.host.OpenUI(tether.WithConsoleListener(r.onConsole))
	if err != nil {
		return err
	}
	if r.record == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsub = append(r.unsub,
		ui.HostState.Subscribe(func(s domain.HostState) {
			r.write(domain.MsgStateChange, s)
		}),
		ui.IncomingMIDI.Subscribe(func(msgs []midi.Message) {
			hex := make([]string, len(msgs))
			for i, m := range msgs {
				hex[i] = m.String()
			}
			r.write(domain.MsgMIDI, hex)
		}),
		ui.TableContent.Subscribe(func(t domain.TableContent) {
			r.write(domain.MsgTableContent, t)
		}),
	)
	return nil
}

func (r *Replayer) write(kind domain.MessageKind, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = r.record.WriteNotification(string(kind), string(data))
	}
	if err != nil {
		r.info("recording failed: %v", err)
	}
}

func (r *Replayer) detach() {
	r.mu.Lock()
	unsub := r.unsub
	r.unsub = nil
	r.mu.Unlock()
	for _, fn := range unsub {
		fn()
	}
}

func (r *Replayer) onConsole(text string) {
	if text != "" {
		r.mu.Lock()
		r.console = append(r.console, text)
		r.mu.Unlock()
	}
	if r.printer != nil {
		r.printer.Console(text)
	}
}

// settle lets one command round trip complete: host to context, context back to
// host, host to context again.
func (r *Replayer) settle(ctx context.Context) error {
	for i := 0; i < 3; i++ {
		if err := r.host.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Replayer) info(format string, args ...any) {
	if r.printer != nil {
		r.printer.Info(format, args...)
	}
}

func (r *Replayer) report(t Transcript, steps int) Report {
	rep := Report{
		Name:    t.Name,
		Steps:   steps,
		State:   r.host.State(),
		MIDIOut: r.host.DrainMIDIOut(),
	}
	if rt := r.host.Runtime(); rt != nil {
		rep.Commits = rt.Commits()
		rep.Nodes = rt.NodeCount()
		rep.Created = rt.Created()
	}
	r.mu.Lock()
	rep.Console = append([]string(nil), r.console...)
	rep.Saved = r.saved
	r.mu.Unlock()
	return rep
}

// PrintReport writes the summary of rep.
func PrintReport(p *tui.Printer, rep Report) {
	p.Info("Replayed %d step(s).", rep.Steps)
	p.Field("commits", rep.Commits)
	p.Field("nodes", rep.Nodes)
	p.Field("created", rep.Created)
	state, _ := json.Marshal(rep.State)
	p.Field("state", string(state))
	for _, m := range rep.MIDIOut {
		p.Field(fmt.Sprintf("midi[%d]", m.Index), m.Message.String())
	}
}

func describe(s Step) string {
	switch s.Kind() {
	case "prepare":
		return fmt.Sprintf("%g Hz / %d", s.Prepare.SampleRate, s.Prepare.BlockSize)
	case "param":
		return fmt.Sprintf("%s=%g", s.Param.ID, s.Param.Value)
	case "midiIn":
		return strings.Join(s.MIDIIn, ", ")
	case "command":
		return s.Command.Name
	case "wait":
		return s.Wait.String()
	}
	return ""
}
