package ir

import (
	"fmt"
	"slices"
)

// Usage is one consumer slot of a Value: input Index of Node.
type Usage struct {
	Node  *Node
	Index int
}

// Value is a data edge between nodes.
//
// A Value is produced by at most one node. Graph inputs, initializers and
// function inputs have no producer. Consumers are tracked as Usages; they are
// back-references and never keep nodes alive on their own.
type Value struct {
	name       string
	Type       *TensorType
	Shape      *Shape
	ConstValue *Tensor
	DocString  string
	Metadata   map[string]string

	producer *Node
	index    int
	uses     []Usage
	graph    *Graph // owner for graph inputs and initializers
}

// NewValue creates a detached value. Use "" for an anonymous value.
func NewValue(name string) *Value {
	return &Value{name: name}
}

// Name returns the value name.
func (v *Value) Name() string { return v.name }

// SetName renames the value, keeping the owning graph's initializer index in sync.
func (v *Value) SetName(name string) {
	if v.name == name {
		return
	}
	if v.graph != nil && v.producer == nil {
		v.graph.renameInitializer(v, v.name, name)
	}
	v.name = name
}

// Producer returns the node that produces v, or nil.
func (v *Value) Producer() *Node { return v.producer }

// Index returns the output position of v on its producer.
func (v *Value) Index() int { return v.index }

// Uses returns the consumer slots of v in the order they were added.
func (v *Value) Uses() []Usage {
	return slices.Clone(v.uses)
}

// NumUses returns the number of consumer slots.
func (v *Value) NumUses() int { return len(v.uses) }

// Consumers returns the distinct consuming nodes in first-use order.
func (v *Value) Consumers() []*Node {
	var out []*Node
	for _, u := range v.uses {
		if !slices.Contains(out, u.Node) {
			out = append(out, u.Node)
		}
	}
	return out
}

// Graph returns the graph that owns v: the producer's graph for node outputs,
// otherwise the graph that declared it as input or initializer.
func (v *Value) Graph() *Graph {
	if v.producer != nil {
		return v.producer.graph
	}
	return v.graph
}

// IsGraphInput reports whether v is a declared input of its owning graph.
func (v *Value) IsGraphInput() bool {
	g := v.Graph()
	return g != nil && slices.Contains(g.inputs, v)
}

// IsGraphOutput reports whether v is a declared output of its owning graph.
func (v *Value) IsGraphOutput() bool {
	g := v.Graph()
	return g != nil && slices.Contains(g.outputs, v)
}

// IsInitializer reports whether v is a named initializer of its owning graph.
func (v *Value) IsInitializer() bool {
	g := v.Graph()
	if g == nil || v.name == "" {
		return false
	}
	init, ok := g.initIndex[v.name]
	return ok && init == v
}

func (v *Value) String() string {
	if v == nil {
		return "<none>"
	}
	name := v.name
	if name == "" {
		name = "<anonymous>"
	}
	if v.Type == nil && v.Shape == nil {
		return fmt.Sprintf("%%%s", name)
	}
	return fmt.Sprintf("%%%s<%s,%s>", name, v.Type, v.Shape)
}

func (v *Value) addUse(n *Node, index int) {
	v.uses = append(v.uses, Usage{Node: n, Index: index})
}

func (v *Value) removeUse(n *Node, index int) {
	for i, u := range v.uses {
		if u.Node == n && u.Index == index {
			v.uses = slices.Delete(v.uses, i, i+1)
			return
		}
	}
}
