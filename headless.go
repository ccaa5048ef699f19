package tether

import (
	"context"
	"fmt"

	"github.com/aretw0/tether/pkg/delegate"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/render"
)

// Headless is the always-running context that owns the render engine and the
// render delegate.
type Headless struct {
	*Context
	engine   *render.Engine
	delegate *delegate.Delegate
}

// NewHeadless creates a headless context rendering graphs built by factory.
func NewHeadless(factory render.GraphFactory, opts ...Option) *Headless {
	cfg := newConfig(opts)
	c := newContext(RoleHeadless, cfg)

	del := cfg.delegate
	if del == nil {
		delOpts := []delegate.Option{delegate.WithLogger(c.logger)}
		if cfg.sink != nil {
			delOpts = append(delOpts, delegate.WithSink(cfg.sink))
		}
		del = delegate.New(delOpts...)
	}

	h := &Headless{
		Context:  c,
		delegate: del,
		engine: render.New(factory, del,
			render.WithTopology(cfg.topology...),
			render.WithLogger(c.logger),
		),
	}

	c.router.Register(domain.MsgStateChange, h.handleState)
	c.router.Register(domain.MsgMIDI, h.handleMIDI)
	c.router.Register(domain.MsgHydrationData, h.handleHydration)
	c.router.Register(domain.MsgTableContent, h.handleTableContent)
	c.router.Register(domain.MsgError, h.handleError)
	c.router.Register(domain.MsgLog, h.handleLog)
	c.router.Register(domain.MsgConsole, h.handleLog)
	return h
}

// Engine returns the render-decision engine.
func (h *Headless) Engine() *render.Engine {
	return h.engine
}

// Delegate returns the render delegate owning the node-identity map.
func (h *Headless) Delegate() *delegate.Delegate {
	return h.delegate
}

func (h *Headless) handleState(ctx context.Context, payload string) error {
	state, err := domain.DecodeHostState(payload)
	if err != nil {
		return err
	}

	outcome, err := h.engine.Apply(ctx, state)
	event := &domain.RenderEvent{
		ContextID: h.id,
		Decision:  outcome.Decision,
		State:     state,
		Patched:   outcome.Patched,
		Err:       err,
	}
	if h.hooks.OnRender != nil {
		h.hooks.OnRender(ctx, event)
	}
	if err != nil {
		h.logger.Error("state change not applied", "decision", outcome.Decision, "error", err)
		return nil
	}

	h.logger.Info("state applied",
		"decision", outcome.Decision,
		"sample_rate", state.SampleRate,
		"created", outcome.Stats.Created,
		"patched", outcome.Patched,
	)
	return nil
}

func (h *Headless) handleMIDI(ctx context.Context, payload string) error {
	entries, err := decodeMIDIEntries(payload)
	if err != nil {
		return err
	}
	accepted, rejected := 0, 0
	for _, e := range entries {
		if !e.valid {
			rejected++
			h.logger.Warn("invalid MIDI entry dropped", "entry", e.raw)
			continue
		}
		accepted++
		h.logger.Debug("midi in", "message", e.msg.String(), "event", e.msg.Describe())
	}
	if h.hooks.OnMIDI != nil {
		h.hooks.OnMIDI(ctx, &domain.MIDIEvent{ContextID: h.id, Accepted: accepted, Rejected: rejected})
	}
	return nil
}

func (h *Headless) handleHydration(ctx context.Context, payload string) error {
	n, err := h.delegate.HydrateJSON(payload)
	if h.hooks.OnHydrate != nil {
		h.hooks.OnHydrate(ctx, &domain.HydrationEvent{ContextID: h.id, Applied: n, Err: err})
	}
	if err != nil {
		return fmt.Errorf("hydration rejected: %w", err)
	}
	h.logger.Info("hydrated", "nodes", n)
	return nil
}

func (h *Headless) handleTableContent(ctx context.Context, payload string) error {
	table, err := domain.DecodeTableContent(payload)
	if err != nil {
		return err
	}
	h.logger.Debug("table content", "rows", len(table.ChordProgression))
	return nil
}

func (h *Headless) handleError(ctx context.Context, payload string) error {
	notice, err := domain.DecodeErrorNotice(payload)
	if err != nil {
		return err
	}
	h.logger.Error(notice.String())
	return nil
}

func (h *Headless) handleLog(ctx context.Context, payload string) error {
	h.logger.Info("host log", "text", payload)
	return nil
}

