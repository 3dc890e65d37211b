// Package graph models the audio processing graph: ordinary nodes joined
// by explicit edges, composite "meta" nodes with child input and output
// nodes, reachability queries over both, and a builder that enforces the
// edge policies a valid mixing topology needs.
package graph

import "sync/atomic"

// NodeID is a process-unique node identity.
type NodeID uint64

// NodeType classifies a node's position in the topology.
type NodeType int

const (
	// TypeProducer originates frames; it has no inputs.
	TypeProducer NodeType = iota

	// TypeConsumer terminates a path; it has no outputs.
	TypeConsumer

	// TypeMixer combines any number of inputs into one output.
	TypeMixer

	// TypeMeta is a composite node. It owns child input and child output
	// nodes; external edges attach to the children, never to the meta
	// node itself.
	TypeMeta

	// TypeChildInput is an ordinary node owned by a meta node on its
	// input side. It accepts one external in-edge and feeds the meta
	// node implicitly.
	TypeChildInput

	// TypeChildOutput is an ordinary node owned by a meta node on its
	// output side. It is fed implicitly by the meta node and carries
	// external out-edges.
	TypeChildOutput
)

func (t NodeType) String() string {
	switch t {
	case TypeProducer:
		return "producer"
	case TypeConsumer:
		return "consumer"
	case TypeMixer:
		return "mixer"
	case TypeMeta:
		return "meta"
	case TypeChildInput:
		return "child-input"
	case TypeChildOutput:
		return "child-output"
	default:
		return "unknown"
	}
}

// Node is one vertex of the processing graph.
//
// Ordinary nodes report explicit edges through Inputs and Outputs and
// return nil children. Meta nodes report their children and have no
// explicit edges of their own. Child nodes additionally report their
// owning meta node through Parent.
type Node interface {
	ID() NodeID
	Name() string
	Type() NodeType

	// IsMeta reports whether the node is a composite node.
	IsMeta() bool

	// Inputs returns the explicit in-edges. The slice is owned by the
	// node; callers must not modify it.
	Inputs() []Node

	// Outputs returns the explicit out-edges. The slice is owned by the
	// node; callers must not modify it.
	Outputs() []Node

	// Parent returns the owning meta node, or nil.
	Parent() Node

	// ChildInputs returns a meta node's input-side children.
	ChildInputs() []Node

	// ChildOutputs returns a meta node's output-side children.
	ChildOutputs() []Node

	// FormatKey describes the node's stream format for edge
	// compatibility checks. Empty means unconstrained.
	FormatKey() string
}

var lastNodeID atomic.Uint64

func allocateNodeID() NodeID {
	return NodeID(lastNodeID.Add(1))
}

type ordinaryNode struct {
	id        NodeID
	name      string
	typ       NodeType
	formatKey string
	parent    Node

	inputs  []Node
	outputs []Node
}

func newOrdinaryNode(name string, typ NodeType, formatKey string) *ordinaryNode {
	return &ordinaryNode{
		id:        allocateNodeID(),
		name:      name,
		typ:       typ,
		formatKey: formatKey,
	}
}

func (n *ordinaryNode) ID() NodeID           { return n.id }
func (n *ordinaryNode) Name() string         { return n.name }
func (n *ordinaryNode) Type() NodeType       { return n.typ }
func (n *ordinaryNode) IsMeta() bool         { return false }
func (n *ordinaryNode) Inputs() []Node       { return n.inputs }
func (n *ordinaryNode) Outputs() []Node      { return n.outputs }
func (n *ordinaryNode) Parent() Node         { return n.parent }
func (n *ordinaryNode) ChildInputs() []Node  { return nil }
func (n *ordinaryNode) ChildOutputs() []Node { return nil }
func (n *ordinaryNode) FormatKey() string    { return n.formatKey }

type metaNode struct {
	id        NodeID
	name      string
	formatKey string

	childInputs  []Node
	childOutputs []Node
}

// newMetaNode creates a meta node along with its children. Child nodes
// inherit the meta node's format key.
func newMetaNode(name string, inputNames, outputNames []string, formatKey string) *metaNode {
	m := &metaNode{
		id:        allocateNodeID(),
		name:      name,
		formatKey: formatKey,
	}
	for _, childName := range inputNames {
		child := newOrdinaryNode(childName, TypeChildInput, formatKey)
		child.parent = m
		m.childInputs = append(m.childInputs, child)
	}
	for _, childName := range outputNames {
		child := newOrdinaryNode(childName, TypeChildOutput, formatKey)
		child.parent = m
		m.childOutputs = append(m.childOutputs, child)
	}
	return m
}

func (m *metaNode) ID() NodeID           { return m.id }
func (m *metaNode) Name() string         { return m.name }
func (m *metaNode) Type() NodeType       { return TypeMeta }
func (m *metaNode) IsMeta() bool         { return true }
func (m *metaNode) Inputs() []Node       { return nil }
func (m *metaNode) Outputs() []Node      { return nil }
func (m *metaNode) Parent() Node         { return nil }
func (m *metaNode) ChildInputs() []Node  { return m.childInputs }
func (m *metaNode) ChildOutputs() []Node { return m.childOutputs }
func (m *metaNode) FormatKey() string    { return m.formatKey }

// addEdge records the explicit edge src -> dest on both endpoints. Policy
// checks belong to the Builder; this only mutates the adjacency lists.
func addEdge(src, dest *ordinaryNode) {
	src.outputs = append(src.outputs, dest)
	dest.inputs = append(dest.inputs, src)
}
