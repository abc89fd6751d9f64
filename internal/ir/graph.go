package ir

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Structural errors reported by Graph mutations.
var (
	ErrNodeOwned       = errors.New("node already belongs to a graph")
	ErrNodeNotInGraph  = errors.New("node does not belong to this graph")
	ErrValueOwned      = errors.New("value already belongs to another graph")
	ErrValueStillUsed  = errors.New("value is still used")
	ErrInitializerName = errors.New("invalid initializer")
)

// Graph is an ordered sequence of nodes with declared inputs, outputs and initializers.
//
// Node order is the stored topological order: a node's inputs are produced by
// earlier nodes, are graph inputs or initializers, or are captured from an
// enclosing graph.
type Graph struct {
	Name         string
	DocString    string
	OpsetImports map[string]int64
	Metadata     map[string]string

	inputs       []*Value
	outputs      []*Value
	initializers []*Value
	initIndex    map[string]*Value
	nodes        []*Node
}

// GraphOption configures NewGraph.
type GraphOption func(*graphConfig)

type graphConfig struct {
	name         string
	docString    string
	initializers []*Value
	opsetImports map[string]int64
	metadata     map[string]string
}

// WithGraphName sets the graph name.
func WithGraphName(name string) GraphOption {
	return func(c *graphConfig) { c.name = name }
}

// WithGraphDoc sets the documentation string.
func WithGraphDoc(doc string) GraphOption {
	return func(c *graphConfig) { c.docString = doc }
}

// WithInitializers registers named constant values.
func WithInitializers(values ...*Value) GraphOption {
	return func(c *graphConfig) { c.initializers = append(c.initializers, values...) }
}

// WithOpsetImports sets the domain to version table; the map is copied.
func WithOpsetImports(opsets map[string]int64) GraphOption {
	return func(c *graphConfig) { c.opsetImports = maps.Clone(opsets) }
}

// WithGraphMetadata sets the metadata bag; the map is copied.
func WithGraphMetadata(md map[string]string) GraphOption {
	return func(c *graphConfig) { c.metadata = maps.Clone(md) }
}

// NewGraph assembles a graph. Nodes must be detached and listed in topological order.
func NewGraph(inputs, outputs []*Value, nodes []*Node, opts ...GraphOption) (*Graph, error) {
	var cfg graphConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	g := &Graph{
		Name:         cfg.name,
		DocString:    cfg.docString,
		OpsetImports: cfg.opsetImports,
		Metadata:     cfg.metadata,
		initIndex:    make(map[string]*Value),
	}
	if g.OpsetImports == nil {
		g.OpsetImports = make(map[string]int64)
	}
	if g.Metadata == nil {
		g.Metadata = make(map[string]string)
	}
	for _, in := range inputs {
		if err := g.AppendInput(in); err != nil {
			return nil, err
		}
	}
	for _, init := range cfg.initializers {
		if err := g.RegisterInitializer(init); err != nil {
			return nil, err
		}
	}
	if err := g.Append(nodes...); err != nil {
		return nil, err
	}
	g.outputs = slices.Clone(outputs)
	return g, nil
}

// Inputs returns a copy of the declared inputs.
func (g *Graph) Inputs() []*Value { return slices.Clone(g.inputs) }

// AppendInput declares v as a graph input.
func (g *Graph) AppendInput(v *Value) error {
	if err := g.adopt(v); err != nil {
		return err
	}
	g.inputs = append(g.inputs, v)
	return nil
}

// Outputs returns a copy of the declared outputs.
func (g *Graph) Outputs() []*Value { return slices.Clone(g.outputs) }

// SetOutput replaces output slot i.
func (g *Graph) SetOutput(i int, v *Value) { g.outputs[i] = v }

// AppendOutput declares v as a graph output.
func (g *Graph) AppendOutput(v *Value) { g.outputs = append(g.outputs, v) }

// Initializers returns the initializers in registration order.
func (g *Graph) Initializers() []*Value { return slices.Clone(g.initializers) }

// Initializer looks up an initializer by name.
func (g *Graph) Initializer(name string) (*Value, bool) {
	v, ok := g.initIndex[name]
	return v, ok
}

// RegisterInitializer adds a named constant value to the graph.
func (g *Graph) RegisterInitializer(v *Value) error {
	if v.name == "" {
		return fmt.Errorf("%w: initializer in graph %q has no name", ErrInitializerName, g.Name)
	}
	if v.producer != nil {
		return fmt.Errorf("%w: %s is produced by node %s", ErrInitializerName, v, v.producer)
	}
	if existing, ok := g.initIndex[v.name]; ok && existing != v {
		return fmt.Errorf("%w: duplicate initializer %q in graph %q", ErrInitializerName, v.name, g.Name)
	}
	if err := g.adopt(v); err != nil {
		return err
	}
	if _, ok := g.initIndex[v.name]; !ok {
		g.initializers = append(g.initializers, v)
	}
	g.initIndex[v.name] = v
	return nil
}

// Nodes returns a copy of the node sequence.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node at position i.
func (g *Graph) Node(i int) *Node { return g.nodes[i] }

// IndexOf returns the position of n, or -1.
func (g *Graph) IndexOf(n *Node) int {
	if n.graph != g {
		return -1
	}
	return slices.Index(g.nodes, n)
}

// Append adds detached nodes at the end.
func (g *Graph) Append(nodes ...*Node) error {
	return g.InsertAt(len(g.nodes), nodes...)
}

// InsertAt inserts detached nodes before position i.
func (g *Graph) InsertAt(i int, nodes ...*Node) error {
	for _, n := range nodes {
		if n.graph != nil {
			return fmt.Errorf("%w: %s is in graph %q", ErrNodeOwned, n, n.graph.Name)
		}
	}
	for _, n := range nodes {
		n.graph = g
	}
	g.nodes = slices.Insert(g.nodes, i, nodes...)
	return nil
}

// InsertAfter inserts detached nodes right after anchor.
func (g *Graph) InsertAfter(anchor *Node, nodes ...*Node) error {
	i := g.IndexOf(anchor)
	if i < 0 {
		return fmt.Errorf("%w: anchor %s", ErrNodeNotInGraph, anchor)
	}
	return g.InsertAt(i+1, nodes...)
}

// InsertBefore inserts detached nodes right before anchor.
func (g *Graph) InsertBefore(anchor *Node, nodes ...*Node) error {
	i := g.IndexOf(anchor)
	if i < 0 {
		return fmt.Errorf("%w: anchor %s", ErrNodeNotInGraph, anchor)
	}
	return g.InsertAt(i, nodes...)
}

// Remove takes nodes out of the graph and detaches them from their inputs.
//
// With safe set, removal fails without mutating anything if an output of a
// removed node is still consumed by a node outside the removed set or is a
// graph output.
func (g *Graph) Remove(nodes []*Node, safe bool) error {
	removing := make(map[*Node]bool, len(nodes))
	for _, n := range nodes {
		if n.graph != g {
			return fmt.Errorf("%w: %s", ErrNodeNotInGraph, n)
		}
		removing[n] = true
	}
	if safe {
		for _, n := range nodes {
			for _, out := range n.outputs {
				if slices.Contains(g.outputs, out) {
					return fmt.Errorf("%w: %s of %s is an output of graph %q", ErrValueStillUsed, out, n, g.Name)
				}
				for _, u := range out.uses {
					if !removing[u.Node] {
						return fmt.Errorf("%w: %s of %s is consumed by %s", ErrValueStillUsed, out, n, u.Node)
					}
				}
			}
		}
	}
	for _, n := range nodes {
		n.detachInputs()
		n.graph = nil
	}
	g.nodes = slices.DeleteFunc(g.nodes, func(n *Node) bool { return removing[n] })
	return nil
}

func (g *Graph) String() string {
	name := g.Name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("Graph(%s, inputs=%d, outputs=%d, nodes=%d)", name, len(g.inputs), len(g.outputs), len(g.nodes))
}

func (g *Graph) adopt(v *Value) error {
	if v.producer != nil {
		return fmt.Errorf("%w: %s is produced by node %s", ErrValueOwned, v, v.producer)
	}
	if v.graph != nil && v.graph != g {
		return fmt.Errorf("%w: %s belongs to graph %q", ErrValueOwned, v, v.graph.Name)
	}
	v.graph = g
	return nil
}

func (g *Graph) renameInitializer(v *Value, oldName, newName string) {
	if cur, ok := g.initIndex[oldName]; ok && cur == v {
		delete(g.initIndex, oldName)
		if newName != "" {
			g.initIndex[newName] = v
		}
	}
}
