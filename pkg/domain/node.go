package domain

import "encoding/json"

const (
	// NodeSymbol tags every identity record owned by the render delegate.
	NodeSymbol = "__ELEM_NODE__"

	// KindHydrated marks nodes injected by the hydration protocol rather than
	// created by a render.
	KindHydrated = "__HYDRATED__"
)

// NodeRef is the identity record for one node in the signal graph.
// It is keyed by Hash inside the render delegate's identity map.
type NodeRef struct {
	Symbol     string `json:"symbol"`
	Kind       string `json:"kind"`
	Hash       uint64 `json:"hash"`
	Props      Value  `json:"-"`
	Generation uint64 `json:"generation"`
}

// Clone returns a deep copy of the record.
func (n NodeRef) Clone() NodeRef {
	n.Props = Clone(n.Props)
	return n
}

// Equal compares two records field by field, props included.
func (n NodeRef) Equal(other NodeRef) bool {
	return n.Symbol == other.Symbol &&
		n.Kind == other.Kind &&
		n.Hash == other.Hash &&
		n.Generation == other.Generation &&
		Equal(n.Props, other.Props)
}

// MarshalJSON renders Props as plain JSON next to the identity fields.
func (n NodeRef) MarshalJSON() ([]byte, error) {
	type alias NodeRef
	return json.Marshal(struct {
		alias
		Props any `json:"props"`
	}{alias(n), ToAny(n.Props)})
}

// GraphNode is the description of one node as produced by the graph factory.
// Key gives the node a stable identity across prop changes; without it the node is
// identified by its kind, props and children.
type GraphNode struct {
	Kind     string      `json:"kind"`
	Key      string      `json:"key,omitempty"`
	Props    Object      `json:"-"`
	Children []GraphNode `json:"children,omitempty"`
}

// MarshalJSON renders Props as plain JSON.
func (g GraphNode) MarshalJSON() ([]byte, error) {
	type alias GraphNode
	return json.Marshal(struct {
		alias
		Props any `json:"props,omitempty"`
	}{alias(g), ToAny(g.Props)})
}

// InstructionOp names one operation of a render batch.
type InstructionOp string

const (
	OpCreateNode    InstructionOp = "createNode"
	OpAppendChild   InstructionOp = "appendChild"
	OpSetProperty   InstructionOp = "setProperty"
	OpActivateRoots InstructionOp = "activateRoots"
	OpCommitUpdates InstructionOp = "commitUpdates"
)

// Instruction is a single step the host runtime applies to the native graph.
type Instruction struct {
	Op    InstructionOp `json:"op"`
	Hash  uint64        `json:"hash,omitempty"`
	Kind  string        `json:"kind,omitempty"`
	Child uint64        `json:"child,omitempty"`
	Prop  string        `json:"prop,omitempty"`
	Value any           `json:"value,omitempty"`
	Roots []uint64      `json:"roots,omitempty"`
}

// RenderStats summarizes one render pass of a delegate.
type RenderStats struct {
	// Nodes is the number of distinct nodes reached from the roots.
	Nodes int `json:"nodes"`

	// Created counts nodes that were not in the identity map before the pass.
	Created int `json:"created"`

	// Reused counts nodes whose identity survived from an earlier pass or hydration.
	Reused int `json:"reused"`

	// Keys maps each keyed node to the hash the delegate assigned it.
	Keys map[string]uint64 `json:"keys,omitempty"`

	// Roots lists the root hashes in the order they were submitted.
	Roots []uint64 `json:"roots"`
}
