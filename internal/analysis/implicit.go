// Package analysis holds read-only analyses over IR graphs.
package analysis

import (
	"slices"

	"github.com/hashicorp/go-set/v3"

	"github.com/born-ml/graphir/internal/ir"
)

// ImplicitUsage maps every subgraph nested in g to the values it captures
// from enclosing scopes.
//
// A capture is recorded on each graph between the consuming subgraph and the
// graph that owns the value, so an If branch inside a Loop body that reads a
// main-graph input reports it for both the branch and the body. Subgraphs
// without captures map to an empty set. g itself is not a key.
func ImplicitUsage(g *ir.Graph) map[*ir.Graph]*set.Set[*ir.Value] {
	usages := make(map[*ir.Graph]*set.Set[*ir.Value])
	stack := []*ir.Graph{g}
	for _, n := range g.Nodes() {
		visitSubgraphs(n, stack, usages)
	}
	return usages
}

func visitSubgraphs(n *ir.Node, stack []*ir.Graph, usages map[*ir.Graph]*set.Set[*ir.Value]) {
	for _, sub := range n.Subgraphs() {
		inner := append(slices.Clip(stack), sub)
		if _, ok := usages[sub]; !ok {
			usages[sub] = set.New[*ir.Value](0)
		}
		for _, node := range sub.Nodes() {
			collectCaptures(node, sub, inner, usages)
			visitSubgraphs(node, inner, usages)
		}
	}
}

func collectCaptures(n *ir.Node, sub *ir.Graph, stack []*ir.Graph, usages map[*ir.Graph]*set.Set[*ir.Value]) {
	for _, in := range n.Inputs() {
		if in == nil || in.Graph() == sub {
			continue
		}
		owner := in.Graph()
		for i := len(stack) - 1; i > 0; i-- {
			if stack[i] == owner {
				break
			}
			usages[stack[i]].Insert(in)
		}
	}
}

// Captures is ImplicitUsage flattened to a single subgraph; it returns the
// captured values in first-use order.
func Captures(g *ir.Graph, sub *ir.Graph) []*ir.Value {
	captured, ok := ImplicitUsage(g)[sub]
	if !ok {
		return nil
	}
	var out []*ir.Value
	seen := make(map[*ir.Value]bool)
	for n := range sub.AllNodes() {
		for _, in := range n.Inputs() {
			if in != nil && !seen[in] && captured.Contains(in) {
				seen[in] = true
				out = append(out, in)
			}
		}
	}
	return out
}
