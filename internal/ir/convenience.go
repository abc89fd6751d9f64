package ir

import (
	"fmt"
	"slices"
)

// ReplaceAllUsesWith points every consumer slot of old at replacement.
// A nil replacement severs the edges, leaving the slots empty.
func ReplaceAllUsesWith(old, replacement *Value) {
	for _, u := range old.Uses() {
		u.Node.ReplaceInput(u.Index, replacement)
	}
}

// ReplaceNodesAndValues splices newNodes into g in place of oldNodes.
//
// The new nodes are inserted right after insertionPoint. Consumers of
// oldValues[i] are redirected to newValues[i]; a missing or nil replacement
// severs them. A replacement produced by one of the new nodes inherits the
// old value's name and fills in type and shape it lacks, so graph-visible
// names stay stable. Graph outputs are redirected as well; severing a graph
// output is an error and is detected before anything is mutated.
func ReplaceNodesAndValues(g *Graph, insertionPoint *Node, oldNodes, newNodes []*Node, oldValues, newValues []*Value, obs Observer) error {
	if g.IndexOf(insertionPoint) < 0 {
		return fmt.Errorf("%w: insertion point %s", ErrNodeNotInGraph, insertionPoint)
	}
	replacement := func(i int) *Value {
		if i < len(newValues) {
			return newValues[i]
		}
		return nil
	}
	for i, old := range oldValues {
		if replacement(i) == nil && slices.Contains(g.outputs, old) {
			return fmt.Errorf("%w: graph output %s of graph %q has no replacement", ErrValueStillUsed, old, g.Name)
		}
	}

	for i, old := range oldValues {
		nv := replacement(i)
		if nv != nil && nv.producer != nil && slices.Contains(newNodes, nv.producer) {
			if nv.Type == nil {
				nv.Type = old.Type
			}
			if nv.Shape == nil {
				nv.Shape = old.Shape.Copy()
			}
			if old.name != "" {
				nv.SetName(old.name)
			}
		}
		ReplaceAllUsesWith(old, nv)
		for j, out := range g.outputs {
			if out == old {
				g.outputs[j] = nv
			}
		}
	}
	if err := g.InsertAfter(insertionPoint, newNodes...); err != nil {
		return err
	}
	if err := g.Remove(oldNodes, true); err != nil {
		return err
	}
	for _, n := range oldNodes {
		Record(obs, n, "replace_node", fmt.Sprintf("replaced by %d nodes in graph %q", len(newNodes), g.Name))
	}
	return nil
}
