package ir

import "fmt"

// AttrParam declares an attribute parameter of a Function.
type AttrParam struct {
	Name     string
	Type     AttrType
	Required bool
	Default  *Attr // nil when the parameter has no default
}

// Function is a named, reusable graph that call nodes refer to by identifier.
//
// Its body may contain reference attributes bound to its AttrParams.
type Function struct {
	Domain   string
	Name     string
	Overload string
	Metadata map[string]string

	graph  *Graph
	params []*AttrParam
}

// NewFunction wraps graph as the body of a function.
func NewFunction(domain, name, overload string, graph *Graph, params []*AttrParam) *Function {
	return &Function{
		Domain:   domain,
		Name:     name,
		Overload: overload,
		Metadata: make(map[string]string),
		graph:    graph,
		params:   params,
	}
}

// Identifier returns the key under which call nodes refer to f.
func (f *Function) Identifier() OperatorIdentifier {
	return OperatorIdentifier{Domain: f.Domain, Name: f.Name, Overload: f.Overload}
}

// Graph returns the function body.
func (f *Function) Graph() *Graph { return f.graph }

// Inputs returns the formal inputs.
func (f *Function) Inputs() []*Value { return f.graph.Inputs() }

// Outputs returns the formal outputs.
func (f *Function) Outputs() []*Value { return f.graph.Outputs() }

// Nodes returns the body nodes in stored order.
func (f *Function) Nodes() []*Node { return f.graph.Nodes() }

// OpsetImports returns the function's domain to version table.
func (f *Function) OpsetImports() map[string]int64 { return f.graph.OpsetImports }

// Attributes returns the declared attribute parameters.
func (f *Function) Attributes() []*AttrParam { return f.params }

// Attribute looks up a declared attribute parameter.
func (f *Function) Attribute(name string) (*AttrParam, bool) {
	for _, p := range f.params {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

func (f *Function) String() string {
	return fmt.Sprintf("Function(%s, inputs=%d, outputs=%d, nodes=%d)",
		f.Identifier(), len(f.graph.inputs), len(f.graph.outputs), len(f.graph.nodes))
}
