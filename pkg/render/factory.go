package render

import (
	"context"

	"github.com/aretw0/tether/pkg/domain"
)

// GraphKey is the key handed to the graph factory for the top-level graph.
const GraphKey = "synth"

// Input is a handle to one host audio input channel.
type Input struct {
	Channel int
}

// Node returns the graph node reading this input.
func (in Input) Node() domain.GraphNode {
	return domain.GraphNode{
		Kind:  "in",
		Props: domain.Object{"channel": domain.Number(in.Channel)},
	}
}

// FactoryProps is the argument bundle passed to a GraphFactory.
type FactoryProps struct {
	Key        string
	SampleRate float64
	State      domain.HostState
}

// Ref binds a state field to a property of a keyed node.
// When Field changes in an incremental update, Prop of the node keyed NodeKey is
// patched with the new value.
type Ref struct {
	NodeKey string
	Field   string
	Prop    string
}

// RefMap collects the named refs a factory exposes.
type RefMap map[string]Ref

// Graph is what a factory produces: the roots to render (typically the left and
// right channel) and the refs usable for incremental updates.
type Graph struct {
	Roots []domain.GraphNode
	Refs  RefMap
}

// GraphFactory builds the signal graph for a state. It is supplied by the plugin
// author and stays opaque to this package.
type GraphFactory func(ctx context.Context, props FactoryProps, inputs ...Input) (Graph, error)

// Delegate applies renders and property patches to the native graph. It is the
// sole owner of the node-identity map.
type Delegate interface {
	Render(ctx context.Context, roots ...domain.GraphNode) (domain.RenderStats, error)
	Patch(ctx context.Context, hash uint64, props domain.Object) error
}
