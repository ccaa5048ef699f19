package tether

import (
	"context"
	"time"

	"github.com/aretw0/tether/pkg/console"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/midi"
	"github.com/aretw0/tether/pkg/observable"
)

// UI is the display context. It mirrors host notifications into observable cells
// and a diagnostic console, and posts user actions back to the host.
type UI struct {
	*Context

	// HostState holds the last decoded host state.
	HostState *observable.Cell[domain.HostState]

	// IncomingMIDI holds the last inbound batch; invalid entries are replaced by midi.Fallback.
	IncomingMIDI *observable.Cell[[]midi.Message]

	// IncomingRawMIDI holds the bytes of the last valid inbound message.
	IncomingRawMIDI *observable.Cell[[]byte]

	// TableContent holds the auxiliary table last sent by the host.
	TableContent *observable.Cell[domain.TableContent]

	// Console accumulates host log text and clears itself after a quiet period.
	Console *console.Buffer
}

// NewUI creates a UI context.
func NewUI(opts ...Option) *UI {
	cfg := newConfig(opts)
	c := newContext(RoleUI, cfg)

	sched := cfg.scheduler
	if sched == nil {
		sched = console.SchedulerFunc(func(d time.Duration, fn func()) console.Timer {
			return c.loop.AfterFunc(d, fn)
		})
	}

	u := &UI{
		Context:         c,
		HostState:       observable.NewCell(domain.HostState{Fields: domain.Object{}}, domain.HostState.Clone),
		IncomingMIDI:    observable.NewCell([]midi.Message{}, cloneMessages),
		IncomingRawMIDI: observable.NewCell(midi.Fallback.Bytes(), cloneBytes),
		TableContent:    observable.NewCell(domain.TableContent{}, domain.TableContent.Clone),
		Console: console.New(
			console.WithDelay(cfg.consoleDelay),
			console.WithScheduler(sched),
			console.WithOnChange(cfg.onConsole),
		),
	}
	c.onClose = append(c.onClose, u.Console.Close)

	c.router.Register(domain.MsgStateChange, u.handleState)
	c.router.Register(domain.MsgMIDI, u.handleMIDI)
	c.router.Register(domain.MsgTableContent, u.handleTableContent)
	c.router.Register(domain.MsgError, u.handleError)
	c.router.Register(domain.MsgLog, u.handleLog)
	c.router.Register(domain.MsgConsole, u.handleLog)
	return u
}

// ResetTableContent asks the host to clear the persisted table. The console and
// the local table cell are cleared only if the command reached the host.
func (u *UI) ResetTableContent() bool {
	return u.dispatcher.ResetTableContent(func() {
		u.Console.Clear()
		u.TableContent.Set(domain.TableContent{})
	})
}

func (u *UI) handleState(ctx context.Context, payload string) error {
	state, err := domain.DecodeHostState(payload)
	if err != nil {
		return err
	}
	u.HostState.Set(state)
	return nil
}

func (u *UI) handleMIDI(ctx context.Context, payload string) error {
	entries, err := decodeMIDIEntries(payload)
	if err != nil {
		return err
	}

	msgs := make([]midi.Message, len(entries))
	accepted, rejected := 0, 0
	var last []byte
	for i, e := range entries {
		if !e.valid {
			rejected++
			u.logger.Warn("invalid MIDI entry replaced", "entry", e.raw, "fallback", midi.Fallback.String())
			msgs[i] = midi.Fallback
			continue
		}
		accepted++
		msgs[i] = e.msg
		last = e.msg.Bytes()
	}

	u.IncomingMIDI.Set(msgs)
	if last != nil {
		u.IncomingRawMIDI.Set(last)
	}
	if u.hooks.OnMIDI != nil {
		u.hooks.OnMIDI(ctx, &domain.MIDIEvent{ContextID: u.id, Accepted: accepted, Rejected: rejected})
	}
	return nil
}

func (u *UI) handleTableContent(ctx context.Context, payload string) error {
	table, err := domain.DecodeTableContent(payload)
	if err != nil {
		return err
	}
	u.TableContent.Set(table)
	return nil
}

func (u *UI) handleError(ctx context.Context, payload string) error {
	notice, err := domain.DecodeErrorNotice(payload)
	if err != nil {
		return err
	}
	u.logger.Warn("host error", "name", notice.Name, "message", notice.Message)
	u.Console.Extend(notice.String() + "\n")
	return nil
}

func (u *UI) handleLog(ctx context.Context, payload string) error {
	u.Console.Extend(payload)
	return nil
}

func cloneMessages(in []midi.Message) []midi.Message {
	return append([]midi.Message(nil), in...)
}

func cloneBytes(in []byte) []byte {
	return append([]byte(nil), in...)
}
