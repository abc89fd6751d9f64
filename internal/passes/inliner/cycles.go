package inliner

import (
	"errors"
	"strings"

	"github.com/born-ml/graphir/internal/ir"
)

// ErrCyclicFunctions is matched by every *CycleError.
var ErrCyclicFunctions = errors.New("cyclic dependency between functions")

// CycleError reports a call cycle as the ordered chain of function identifiers;
// the first identifier is repeated at the end.
type CycleError struct {
	Cycle []ir.OperatorIdentifier
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = id.String()
	}
	return "cyclic dependency detected between functions: " + strings.Join(parts, " -> ")
}

// Is makes errors.Is(err, ErrCyclicFunctions) hold.
func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicFunctions
}

// callGraph returns, per function, the functions its body calls, in first-call order.
func callGraph(m *ir.Model) map[ir.OperatorIdentifier][]ir.OperatorIdentifier {
	deps := make(map[ir.OperatorIdentifier][]ir.OperatorIdentifier)
	for _, f := range m.Functions() {
		caller := f.Identifier()
		seen := make(map[ir.OperatorIdentifier]bool)
		for n := range f.AllNodes() {
			callee := n.OpIdentifier()
			if _, ok := m.Function(callee); ok && !seen[callee] {
				seen[callee] = true
				deps[caller] = append(deps[caller], callee)
			}
		}
	}
	return deps
}

// DetectFunctionCycles returns a call cycle among the model's functions, or nil.
//
// The search is a depth-first walk with temporary and permanent marks, in
// function table order, so the reported cycle is deterministic.
func DetectFunctionCycles(m *ir.Model) []ir.OperatorIdentifier {
	deps := callGraph(m)
	permanent := make(map[ir.OperatorIdentifier]bool)
	onStack := make(map[ir.OperatorIdentifier]int)
	var stack []ir.OperatorIdentifier

	var visit func(id ir.OperatorIdentifier) []ir.OperatorIdentifier
	visit = func(id ir.OperatorIdentifier) []ir.OperatorIdentifier {
		if permanent[id] {
			return nil
		}
		if pos, ok := onStack[id]; ok {
			cycle := append([]ir.OperatorIdentifier(nil), stack[pos:]...)
			return append(cycle, id)
		}
		onStack[id] = len(stack)
		stack = append(stack, id)
		for _, callee := range deps[id] {
			if cycle := visit(callee); cycle != nil {
				return cycle
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, id)
		permanent[id] = true
		return nil
	}

	for _, f := range m.Functions() {
		if cycle := visit(f.Identifier()); cycle != nil {
			return cycle
		}
	}
	return nil
}
