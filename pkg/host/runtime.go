package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/nodemap"
)

// ErrRuntime wraps every instruction the runtime refuses.
var ErrRuntime = errors.New("runtime error")

type runtimeNode struct {
	kind     string
	props    domain.Object
	children []uint64
}

// Runtime stands in for the native audio graph. It applies instruction batches
// atomically and keeps the authoritative node snapshot a restarted headless context
// is hydrated from.
type Runtime struct {
	mu         sync.RWMutex
	sampleRate float64
	blockSize  int
	nodes      map[uint64]*runtimeNode
	roots      []uint64
	commits    int
	created    int
}

// NewRuntime creates an empty runtime for the given audio settings.
func NewRuntime(sampleRate float64, blockSize int) *Runtime {
	return &Runtime{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		nodes:      make(map[uint64]*runtimeNode),
	}
}

// ApplyInstructions validates the whole batch against the current graph and then
// applies it. A rejected batch changes nothing.
func (r *Runtime) ApplyInstructions(ctx context.Context, batch []domain.Instruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[uint64]bool)
	exists := func(h uint64) bool {
		_, ok := r.nodes[h]
		return ok || staged[h]
	}

	for i, ins := range batch {
		switch ins.Op {
		case domain.OpCreateNode:
			if ins.Kind == "" {
				return fmt.Errorf("%w: instruction %d: createNode without kind", ErrRuntime, i)
			}
			staged[ins.Hash] = true
		case domain.OpSetProperty:
			if !exists(ins.Hash) {
				return fmt.Errorf("%w: instruction %d: setProperty on unknown node %x", ErrRuntime, i, ins.Hash)
			}
			if _, err := domain.FromAny(ins.Value); err != nil {
				return fmt.Errorf("%w: instruction %d: %v", ErrRuntime, i, err)
			}
		case domain.OpAppendChild:
			if !exists(ins.Hash) || !exists(ins.Child) {
				return fmt.Errorf("%w: instruction %d: appendChild %x -> %x references unknown node", ErrRuntime, i, ins.Hash, ins.Child)
			}
		case domain.OpActivateRoots:
			for _, root := range ins.Roots {
				if !exists(root) {
					return fmt.Errorf("%w: instruction %d: unknown root %x", ErrRuntime, i, root)
				}
			}
		case domain.OpCommitUpdates:
		default:
			return fmt.Errorf("%w: instruction %d: unknown op %q", ErrRuntime, i, ins.Op)
		}
	}

	for _, ins := range batch {
		switch ins.Op {
		case domain.OpCreateNode:
			if n, ok := r.nodes[ins.Hash]; ok {
				n.kind = ins.Kind
				continue
			}
			r.nodes[ins.Hash] = &runtimeNode{kind: ins.Kind, props: domain.Object{}}
			r.created++
		case domain.OpSetProperty:
			v, _ := domain.FromAny(ins.Value)
			r.nodes[ins.Hash].props[ins.Prop] = v
		case domain.OpAppendChild:
			n := r.nodes[ins.Hash]
			n.children = append(n.children, ins.Child)
		case domain.OpActivateRoots:
			r.roots = append([]uint64(nil), ins.Roots...)
		case domain.OpCommitUpdates:
			r.commits++
		}
	}
	return nil
}

// Snapshot returns the node props keyed by hex hash: the hydration payload.
func (r *Runtime) Snapshot() domain.Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(domain.Object, len(r.nodes))
	for hash, n := range r.nodes {
		out[nodemap.FormatKey(hash)] = domain.Clone(n.props)
	}
	return out
}

// Load seeds the runtime from a persisted snapshot, merging over existing nodes.
func (r *Runtime) Load(snapshot domain.Object) error {
	parsed := make(map[uint64]domain.Object, len(snapshot))
	for key, v := range snapshot {
		hash, err := nodemap.ParseKey(key)
		if err != nil {
			return err
		}
		props, _ := domain.Clone(v).(domain.Object)
		if props == nil {
			props = domain.Object{}
		}
		parsed[hash] = props
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, props := range parsed {
		if n, ok := r.nodes[hash]; ok {
			n.props = props
			continue
		}
		r.nodes[hash] = &runtimeNode{kind: domain.KindHydrated, props: props}
	}
	return nil
}

// NodeCount returns the number of nodes in the graph.
func (r *Runtime) NodeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Roots returns the active roots.
func (r *Runtime) Roots() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]uint64(nil), r.roots...)
}

// Commits returns how many commitUpdates were applied.
func (r *Runtime) Commits() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commits
}

// Created returns how many distinct nodes createNode has added.
func (r *Runtime) Created() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.created
}

// Nodes lists the graph nodes sorted by hash.
func (r *Runtime) Nodes() []NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NodeInfo, 0, len(r.nodes))
	for hash, n := range r.nodes {
		info := NodeInfo{Hash: nodemap.FormatKey(hash), Kind: n.kind}
		for _, c := range n.children {
			info.Children = append(info.Children, nodemap.FormatKey(c))
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// NodeInfo is a read-only view of one runtime node.
type NodeInfo struct {
	Hash     string   `json:"hash"`
	Kind     string   `json:"kind"`
	Children []string `json:"children,omitempty"`
}

// SampleRate returns the rate the runtime was created for.
func (r *Runtime) SampleRate() float64 {
	return r.sampleRate
}

// BlockSize returns the block size the runtime was created for.
func (r *Runtime) BlockSize() int {
	return r.blockSize
}
