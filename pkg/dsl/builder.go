package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/tether/pkg/render"
)

// ErrInvalidGraph is returned by Build for graphs the render engine could not use.
var ErrInvalidGraph = errors.New("invalid graph")

type binding struct {
	field string
	node  *NodeBuilder
	prop  string
}

// Builder assembles the roots and refs of a render.Graph.
type Builder struct {
	roots    []*NodeBuilder
	bindings []binding
}

// New creates an empty graph builder.
func New() *Builder {
	return &Builder{}
}

// Root appends output roots, typically one per channel.
func (b *Builder) Root(nodes ...*NodeBuilder) *Builder {
	b.roots = append(b.roots, nodes...)
	return b
}

// Bind patches prop of node whenever the state field changes.
func (b *Builder) Bind(field string, node *NodeBuilder, prop string) *Builder {
	b.bindings = append(b.bindings, binding{field: field, node: node, prop: prop})
	return b
}

// Build validates and returns the graph.
func (b *Builder) Build() (render.Graph, error) {
	var errs []error
	kinds := map[string]string{}
	reachable := map[*NodeBuilder]bool{}
	for _, r := range b.roots {
		r.walk(func(n *NodeBuilder) {
			reachable[n] = true
			errs = append(errs, n.errs...)
			if n.node.Key == "" {
				return
			}
			if kind, ok := kinds[n.node.Key]; ok && kind != n.node.Kind {
				errs = append(errs, fmt.Errorf("key %q used for %s and %s", n.node.Key, kind, n.node.Kind))
			}
			kinds[n.node.Key] = n.node.Kind
		})
	}

	refs := render.RefMap{}
	for _, bind := range b.bindings {
		switch {
		case bind.node.node.Key == "":
			errs = append(errs, fmt.Errorf("field %q bound to an unkeyed %s node", bind.field, bind.node.node.Kind))
		case !reachable[bind.node]:
			errs = append(errs, fmt.Errorf("field %q bound to %q, which no root reaches", bind.field, bind.node.node.Key))
		default:
			refs[bind.field] = render.Ref{NodeKey: bind.node.node.Key, Field: bind.field, Prop: bind.prop}
		}
	}
	if len(errs) > 0 {
		return render.Graph{}, fmt.Errorf("%w: %w", ErrInvalidGraph, errors.Join(errs...))
	}

	g := render.Graph{Refs: refs}
	for _, r := range b.roots {
		g.Roots = append(g.Roots, r.Build())
	}
	return g, nil
}
