package ir

import (
	"fmt"
	"maps"
	"slices"
)

// Node is an operator instance.
//
// Outputs are created together with the node and owned by it. Inputs are
// shared references; a nil input means the optional slot is left empty.
type Node struct {
	Domain     string
	OpType     string
	Overload   string
	Version    int64 // explicit opset version; 0 means inherited from the graph
	DocString  string
	Metadata   map[string]string
	Attributes *Attributes

	name    string
	inputs  []*Value
	outputs []*Value
	graph   *Graph
}

type nodeConfig struct {
	name       string
	overload   string
	version    int64
	numOutputs int
	docString  string
	metadata   map[string]string
}

// NodeOption configures NewNode.
type NodeOption func(*nodeConfig)

// WithNodeName sets the node name.
func WithNodeName(name string) NodeOption {
	return func(c *nodeConfig) { c.name = name }
}

// WithOverload sets the operator overload.
func WithOverload(overload string) NodeOption {
	return func(c *nodeConfig) { c.overload = overload }
}

// WithVersion pins the opset version of the operator.
func WithVersion(version int64) NodeOption {
	return func(c *nodeConfig) { c.version = version }
}

// WithNumOutputs sets how many output values are created (default 1).
func WithNumOutputs(n int) NodeOption {
	return func(c *nodeConfig) { c.numOutputs = n }
}

// WithNodeDoc sets the documentation string.
func WithNodeDoc(doc string) NodeOption {
	return func(c *nodeConfig) { c.docString = doc }
}

// WithNodeMetadata sets the metadata bag; the map is copied.
func WithNodeMetadata(md map[string]string) NodeOption {
	return func(c *nodeConfig) { c.metadata = maps.Clone(md) }
}

// NewNode creates a detached node and registers it as a consumer of its inputs.
func NewNode(domain, opType string, inputs []*Value, attrs []*Attr, opts ...NodeOption) *Node {
	cfg := nodeConfig{numOutputs: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	n := &Node{
		Domain:     domain,
		OpType:     opType,
		Overload:   cfg.overload,
		Version:    cfg.version,
		DocString:  cfg.docString,
		Metadata:   cfg.metadata,
		Attributes: NewAttributes(attrs...),
		name:       cfg.name,
		inputs:     slices.Clone(inputs),
		outputs:    make([]*Value, cfg.numOutputs),
	}
	if n.Metadata == nil {
		n.Metadata = make(map[string]string)
	}
	for i, in := range n.inputs {
		if in != nil {
			in.addUse(n, i)
		}
	}
	for i := range n.outputs {
		n.outputs[i] = &Value{producer: n, index: i}
	}
	return n
}

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// SetName renames the node.
func (n *Node) SetName(name string) { n.name = name }

// OpIdentifier returns (domain, op type, overload).
func (n *Node) OpIdentifier() OperatorIdentifier {
	return OperatorIdentifier{Domain: n.Domain, Name: n.OpType, Overload: n.Overload}
}

// Graph returns the graph holding the node, or nil when detached.
func (n *Node) Graph() *Graph { return n.graph }

// Inputs returns a copy of the input slots.
func (n *Node) Inputs() []*Value { return slices.Clone(n.inputs) }

// Input returns input slot i.
func (n *Node) Input(i int) *Value { return n.inputs[i] }

// NumInputs returns the number of input slots.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Outputs returns a copy of the output values.
func (n *Node) Outputs() []*Value { return slices.Clone(n.outputs) }

// Output returns output i.
func (n *Node) Output(i int) *Value { return n.outputs[i] }

// NumOutputs returns the number of outputs.
func (n *Node) NumOutputs() int { return len(n.outputs) }

// ReplaceInput rewires input slot i to v, keeping use lists consistent.
func (n *Node) ReplaceInput(i int, v *Value) {
	if old := n.inputs[i]; old != nil {
		old.removeUse(n, i)
	}
	n.inputs[i] = v
	if v != nil {
		v.addUse(n, i)
	}
}

// Subgraphs returns every graph carried by the node's concrete attributes.
func (n *Node) Subgraphs() []*Graph {
	var out []*Graph
	for _, attr := range n.Attributes.All() {
		if attr.IsRef() {
			continue
		}
		switch attr.Type() {
		case AttrGraph:
			if g := attr.AsGraph(); g != nil {
				out = append(out, g)
			}
		case AttrGraphs:
			out = append(out, attr.AsGraphs()...)
		}
	}
	return out
}

func (n *Node) String() string {
	name := n.name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("%s(%s)", name, n.OpIdentifier())
}

// detachInputs drops n from the use lists of its inputs.
func (n *Node) detachInputs() {
	for i, in := range n.inputs {
		if in != nil {
			in.removeUse(n, i)
		}
	}
}
