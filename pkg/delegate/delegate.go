package delegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/nodemap"
)

// ErrNodeNotFound is returned by Patch for a hash absent from the identity map.
var ErrNodeNotFound = errors.New("delegate: node not found")

// Option configures a Delegate.
type Option func(*Delegate)

// WithSink sets where instruction batches are sent.
func WithSink(sink BatchSink) Option {
	return func(d *Delegate) {
		d.sink = sink
	}
}

// WithLogger sets the delegate logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Delegate) {
		d.logger = logger
	}
}

// WithMap makes the delegate own an existing identity map.
func WithMap(m *nodemap.Map) Option {
	return func(d *Delegate) {
		d.nodes = m
	}
}

// Delegate reconciles graph descriptions against its identity map.
// Render and Patch are serialized; the map is only written after the sink has
// accepted the batch, so a failed batch leaves the map as it was.
type Delegate struct {
	mu     sync.Mutex
	nodes  *nodemap.Map
	sink   BatchSink
	logger *slog.Logger
}

// New creates a delegate with an empty identity map.
func New(opts ...Option) *Delegate {
	d := &Delegate{
		nodes:  nodemap.New(),
		sink:   nopSink{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Nodes returns the identity map. Callers should treat it as read-only.
func (d *Delegate) Nodes() *nodemap.Map {
	return d.nodes
}

// Hydrate merges a host snapshot into the identity map.
func (d *Delegate) Hydrate(payload map[string]domain.Value) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nodes.Hydrate(payload)
}

// HydrateJSON merges a serialized host snapshot into the identity map.
func (d *Delegate) HydrateJSON(text string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nodes.HydrateJSON(text)
}

// reconciler carries the state of one render pass.
type reconciler struct {
	nodes   *nodemap.Map
	staged  map[uint64]domain.NodeRef
	batch   []domain.Instruction
	stats   domain.RenderStats
	visited map[uint64]bool
}

func (r *reconciler) lookup(hash uint64) (domain.NodeRef, bool) {
	if ref, ok := r.staged[hash]; ok {
		return ref, true
	}
	return r.nodes.Get(hash)
}

func (r *reconciler) visit(n domain.GraphNode) uint64 {
	children := make([]uint64, len(n.Children))
	for i, c := range n.Children {
		children[i] = r.visit(c)
	}

	hash := HashNode(n, children)
	if n.Key != "" {
		r.stats.Keys[n.Key] = hash
	}
	if r.visited[hash] {
		return hash
	}
	r.visited[hash] = true
	r.stats.Nodes++

	props := domain.Object{}
	if n.Props != nil {
		props = domain.Clone(n.Props).(domain.Object)
	}

	existing, ok := r.lookup(hash)
	if !ok {
		r.stats.Created++
		r.batch = append(r.batch, domain.Instruction{Op: domain.OpCreateNode, Hash: hash, Kind: n.Kind})
		for _, k := range props.SortedKeys() {
			r.batch = append(r.batch, setProperty(hash, k, props[k]))
		}
		for _, c := range children {
			r.batch = append(r.batch, domain.Instruction{Op: domain.OpAppendChild, Hash: hash, Child: c})
		}
		r.staged[hash] = domain.NodeRef{
			Symbol: domain.NodeSymbol,
			Kind:   n.Kind,
			Hash:   hash,
			Props:  props,
		}
		return hash
	}

	r.stats.Reused++
	old, _ := existing.Props.(domain.Object)
	for _, k := range props.SortedKeys() {
		if ov, found := old[k]; !found || !domain.Equal(ov, props[k]) {
			r.batch = append(r.batch, setProperty(hash, k, props[k]))
		}
	}
	existing.Kind = n.Kind
	existing.Props = props
	existing.Generation++
	r.staged[hash] = existing
	return hash
}

// Render reconciles roots against the identity map and emits one batch ending in
// activateRoots and commitUpdates.
func (d *Delegate) Render(ctx context.Context, roots ...domain.GraphNode) (domain.RenderStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := &reconciler{
		nodes:   d.nodes,
		staged:  make(map[uint64]domain.NodeRef),
		visited: make(map[uint64]bool),
		stats:   domain.RenderStats{Keys: make(map[string]uint64)},
	}
	for _, root := range roots {
		r.stats.Roots = append(r.stats.Roots, r.visit(root))
	}
	r.batch = append(r.batch,
		domain.Instruction{Op: domain.OpActivateRoots, Roots: r.stats.Roots},
		domain.Instruction{Op: domain.OpCommitUpdates},
	)

	if err := d.sink.ApplyInstructions(ctx, r.batch); err != nil {
		return domain.RenderStats{}, fmt.Errorf("apply batch: %w", err)
	}
	for _, ref := range r.staged {
		d.nodes.Put(ref)
	}

	d.logger.Debug("graph rendered",
		"nodes", r.stats.Nodes,
		"created", r.stats.Created,
		"reused", r.stats.Reused,
		"instructions", len(r.batch),
	)
	return r.stats, nil
}

// Patch merges props into the node stored under hash and emits the matching
// setProperty instructions.
func (d *Delegate) Patch(ctx context.Context, hash uint64, props domain.Object) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ref, ok := d.nodes.Get(hash)
	if !ok {
		return fmt.Errorf("%w: %x", ErrNodeNotFound, hash)
	}

	base, _ := ref.Props.(domain.Object)
	merged := domain.MergeObject(base, props)

	batch := make([]domain.Instruction, 0, len(props)+1)
	for _, k := range props.SortedKeys() {
		batch = append(batch, setProperty(hash, k, props[k]))
	}
	batch = append(batch, domain.Instruction{Op: domain.OpCommitUpdates})

	if err := d.sink.ApplyInstructions(ctx, batch); err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}

	ref.Props = merged
	d.nodes.Put(ref)
	return nil
}

func setProperty(hash uint64, prop string, v domain.Value) domain.Instruction {
	return domain.Instruction{Op: domain.OpSetProperty, Hash: hash, Prop: prop, Value: domain.ToAny(v)}
}
