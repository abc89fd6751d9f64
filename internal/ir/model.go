package ir

import (
	"fmt"
	"slices"
)

// Model is the root container: the main graph plus the function table.
type Model struct {
	Graph           *Graph
	IRVersion       int64
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	DocString       string
	Metadata        map[string]string

	functions []*Function
	funcIndex map[OperatorIdentifier]*Function
}

// NewModel creates a model. Function identifiers must be unique.
func NewModel(graph *Graph, irVersion int64, functions ...*Function) (*Model, error) {
	m := &Model{
		Graph:     graph,
		IRVersion: irVersion,
		Metadata:  make(map[string]string),
		funcIndex: make(map[OperatorIdentifier]*Function),
	}
	for _, f := range functions {
		if err := m.AddFunction(f); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OpsetImports returns the model-wide domain to version table (the main graph's).
func (m *Model) OpsetImports() map[string]int64 {
	if m.Graph.OpsetImports == nil {
		m.Graph.OpsetImports = make(map[string]int64)
	}
	return m.Graph.OpsetImports
}

// Functions returns the function table in insertion order.
func (m *Model) Functions() []*Function { return slices.Clone(m.functions) }

// NumFunctions returns the size of the function table.
func (m *Model) NumFunctions() int { return len(m.functions) }

// Function looks up a function by identifier.
func (m *Model) Function(id OperatorIdentifier) (*Function, bool) {
	f, ok := m.funcIndex[id]
	return f, ok
}

// AddFunction registers f.
func (m *Model) AddFunction(f *Function) error {
	id := f.Identifier()
	if _, ok := m.funcIndex[id]; ok {
		return fmt.Errorf("duplicate function %s", id)
	}
	m.functions = append(m.functions, f)
	m.funcIndex[id] = f
	return nil
}

// RemoveFunction deletes the function with the given identifier and reports whether it existed.
func (m *Model) RemoveFunction(id OperatorIdentifier) bool {
	f, ok := m.funcIndex[id]
	if !ok {
		return false
	}
	delete(m.funcIndex, id)
	m.functions = slices.DeleteFunc(m.functions, func(x *Function) bool { return x == f })
	return true
}
