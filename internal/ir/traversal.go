package ir

import "iter"

// AllNodes iterates over the nodes of g in stored order, descending into
// subgraph attributes depth-first right after the node that carries them.
func (g *Graph) AllNodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		walkNodes(g, yield)
	}
}

// AllNodes iterates over the body of f including nested subgraphs.
func (f *Function) AllNodes() iter.Seq[*Node] {
	return f.graph.AllNodes()
}

func walkNodes(g *Graph, yield func(*Node) bool) bool {
	for _, n := range g.nodes {
		if !yield(n) {
			return false
		}
		for _, sub := range n.Subgraphs() {
			if !walkNodes(sub, yield) {
				return false
			}
		}
	}
	return true
}
