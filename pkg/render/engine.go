package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/pkg/domain"
)

// ErrNoFactory is returned by Apply when a full render is needed but no factory is set.
var ErrNoFactory = errors.New("render: no graph factory")

// Outcome reports what Apply did.
type Outcome struct {
	Decision domain.Decision
	Stats    domain.RenderStats
	Patched  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopology replaces the list of fields whose change forces a full render.
func WithTopology(fields ...string) Option {
	return func(e *Engine) {
		e.topology = append([]string(nil), fields...)
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDecisionHook registers a callback invoked after every successful Apply.
func WithDecisionHook(fn func(context.Context, Outcome)) Option {
	return func(e *Engine) {
		e.onDecision = fn
	}
}

type binding struct {
	name  string
	hash  uint64
	field string
	prop  string
}

// Engine retains the last applied state and turns every new state into either a
// full render or a set of property patches.
type Engine struct {
	factory    GraphFactory
	delegate   Delegate
	topology   []string
	logger     *slog.Logger
	onDecision func(context.Context, Outcome)

	mu       sync.Mutex
	previous *domain.HostState
	bindings []binding
}

// New creates an engine rendering graphs built by factory through delegate.
func New(factory GraphFactory, delegate Delegate, opts ...Option) *Engine {
	e := &Engine{
		factory:  factory,
		delegate: delegate,
		topology: append([]string(nil), DefaultTopology...),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Previous returns a copy of the retained state, if any.
func (e *Engine) Previous() (domain.HostState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.previous == nil {
		return domain.HostState{}, false
	}
	return e.previous.Clone(), true
}

// Topology returns the configured topology fields.
func (e *Engine) Topology() []string {
	return append([]string(nil), e.topology...)
}

// Apply processes one state change.
// If the factory or delegate fails the retained state is left as it was, so the
// next delivery retries from the same baseline.
func (e *Engine) Apply(ctx context.Context, next domain.HostState) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	outcome := Outcome{Decision: Decide(e.previous, next, e.topology)}

	var err error
	switch outcome.Decision {
	case domain.DecisionFullRender:
		outcome.Stats, err = e.fullRender(ctx, next)
	default:
		outcome.Patched, err = e.patch(ctx, next)
	}
	if err != nil {
		return outcome, err
	}

	retained := next.Clone()
	e.previous = &retained

	e.logger.Debug("state applied",
		"decision", outcome.Decision,
		"sample_rate", next.SampleRate,
		"nodes", outcome.Stats.Nodes,
		"patched", outcome.Patched,
	)
	if e.onDecision != nil {
		e.onDecision(ctx, outcome)
	}
	return outcome, nil
}

func (e *Engine) fullRender(ctx context.Context, next domain.HostState) (domain.RenderStats, error) {
	if e.factory == nil {
		return domain.RenderStats{}, ErrNoFactory
	}

	graph, err := e.factory(ctx, FactoryProps{
		Key:        GraphKey,
		SampleRate: next.SampleRate,
		State:      next.Clone(),
	}, Input{Channel: 0}, Input{Channel: 1})
	if err != nil {
		return domain.RenderStats{}, fmt.Errorf("graph factory: %w", err)
	}

	stats, err := e.delegate.Render(ctx, graph.Roots...)
	if err != nil {
		return domain.RenderStats{}, fmt.Errorf("render: %w", err)
	}

	names := make([]string, 0, len(graph.Refs))
	for name := range graph.Refs {
		names = append(names, name)
	}
	sort.Strings(names)

	bindings := make([]binding, 0, len(names))
	for _, name := range names {
		ref := graph.Refs[name]
		hash, ok := stats.Keys[ref.NodeKey]
		if !ok {
			e.logger.Warn("ref points at unknown node key", "ref", name, "node_key", ref.NodeKey)
			continue
		}
		bindings = append(bindings, binding{name: name, hash: hash, field: ref.Field, prop: ref.Prop})
	}
	e.bindings = bindings

	return stats, nil
}

func (e *Engine) patch(ctx context.Context, next domain.HostState) (int, error) {
	diff := domain.Diff(e.previous, next)
	if diff.IsEmpty() {
		return 0, nil
	}

	patched := 0
	for _, b := range e.bindings {
		if !diff.Changed(b.field) {
			continue
		}
		val, ok := next.Field(b.field)
		if !ok {
			val = domain.Null{}
		}
		if err := e.delegate.Patch(ctx, b.hash, domain.Object{b.prop: val}); err != nil {
			return patched, fmt.Errorf("patch %s: %w", b.name, err)
		}
		patched++
	}
	return patched, nil
}
