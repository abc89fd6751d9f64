package inliner

import (
	"fmt"

	"github.com/hashicorp/go-set/v3"

	"github.com/born-ml/graphir/internal/ir"
)

// Namer hands out node and value names that do not collide with any name
// seen so far in the pass. Node and value names live in separate spaces.
type Namer struct {
	nodes  *set.Set[string]
	values *set.Set[string]
}

// NewNamer creates an empty Namer.
func NewNamer() *Namer {
	return &Namer{
		nodes:  set.New[string](0),
		values: set.New[string](0),
	}
}

// Seed marks every name already present in g as used: inputs, initializers,
// node names and node output names. Subgraphs are seeded when they are visited.
func (n *Namer) Seed(g *ir.Graph) {
	for _, in := range g.Inputs() {
		n.reserve(n.values, in.Name())
	}
	for _, init := range g.Initializers() {
		n.reserve(n.values, init.Name())
	}
	for _, node := range g.Nodes() {
		n.reserve(n.nodes, node.Name())
		for _, out := range node.Outputs() {
			n.reserve(n.values, out.Name())
		}
	}
}

// NodeName returns the first unused name among base, base_2, base_3, ... and marks it used.
func (n *Namer) NodeName(base string) string {
	return unique(base, n.nodes)
}

// ValueName is NodeName for value names.
func (n *Namer) ValueName(base string) string {
	return unique(base, n.values)
}

// NodeNameUsed reports whether name is taken in the node space.
func (n *Namer) NodeNameUsed(name string) bool {
	return n.nodes.Contains(name)
}

// ValueNameUsed reports whether name is taken in the value space.
func (n *Namer) ValueNameUsed(name string) bool {
	return n.values.Contains(name)
}

func (n *Namer) reserve(used *set.Set[string], name string) {
	if name != "" {
		used.Insert(name)
	}
}

func unique(base string, used *set.Set[string]) string {
	candidate := base
	for i := 2; used.Contains(candidate); i++ {
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	used.Insert(candidate)
	return candidate
}
