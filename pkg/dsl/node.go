package dsl

import (
	"fmt"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/render"
)

// NodeBuilder configures one graph node.
type NodeBuilder struct {
	node     domain.GraphNode
	children []*NodeBuilder
	errs     []error
}

// Node starts a node of the given kind.
func Node(kind string) *NodeBuilder {
	return &NodeBuilder{node: domain.GraphNode{Kind: kind}}
}

// Input returns a node reading one host input channel.
func Input(in render.Input) *NodeBuilder {
	return &NodeBuilder{node: in.Node()}
}

// Key gives the node a stable identity across prop changes.
func (n *NodeBuilder) Key(key string) *NodeBuilder {
	n.node.Key = key
	return n
}

// Prop sets a property. Values are converted with domain.FromAny; a value that
// cannot be converted is reported by Build.
func (n *NodeBuilder) Prop(name string, value any) *NodeBuilder {
	v, err := domain.FromAny(value)
	if err != nil {
		n.errs = append(n.errs, fmt.Errorf("%s.%s: %w", n.node.Kind, name, err))
		return n
	}
	if n.node.Props == nil {
		n.node.Props = domain.Object{}
	}
	n.node.Props[name] = v
	return n
}

// Child appends children in order.
func (n *NodeBuilder) Child(children ...*NodeBuilder) *NodeBuilder {
	n.children = append(n.children, children...)
	return n
}

// Build returns the node tree rooted here.
func (n *NodeBuilder) Build() domain.GraphNode {
	out := n.node
	out.Props = nil
	if len(n.node.Props) > 0 {
		out.Props = domain.Clone(n.node.Props).(domain.Object)
	}
	out.Children = nil
	for _, c := range n.children {
		out.Children = append(out.Children, c.Build())
	}
	return out
}

func (n *NodeBuilder) walk(fn func(*NodeBuilder)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}
