// Package cloner deep-copies IR nodes and graphs while substituting values and attributes.
//
// A Cloner is built for one cloning operation. Its ValueMap records, for
// every original value, the value that replaces it in the copy; an entry
// mapped to nil marks a severed edge (for example an optional function input
// the caller did not supply). Constant payloads are shared, never copied.
//
// Function inlining uses a Cloner with ResolveRefAttrs set so that reference
// attributes in the body are bound to the attributes of the call site.
package cloner

import (
	"maps"

	"github.com/pkg/errors"

	"github.com/born-ml/graphir/internal/ir"
)

// ErrUnresolvedReference reports a node input or output that cannot be resolved
// during cloning: a disallowed outer-scope capture, or a severed value that is
// dereferenced.
var ErrUnresolvedReference = errors.New("unresolved reference")

// ValueMap maps original values to their clones. A present nil entry is a severed edge.
type ValueMap map[*ir.Value]*ir.Value

// Options configures a Cloner.
type Options struct {
	// AttrMap binds function attribute parameters to call-site attributes.
	AttrMap map[string]*ir.Attr

	// ValueMap is shared with the caller and extended as values are cloned.
	// A nil map is replaced by an empty one.
	ValueMap ValueMap

	// Metadata is merged onto every cloned node; the node's own entries win on conflict.
	Metadata map[string]string

	// PostProcess is invoked on each newly built node, nested subgraph nodes included.
	PostProcess func(*ir.Node)

	// ResolveRefAttrs binds reference attributes through AttrMap.
	ResolveRefAttrs bool

	// AllowOuterScopeValues passes inputs that are neither mapped nor cloned
	// through unchanged instead of failing.
	AllowOuterScopeValues bool

	// Observer, when set, receives a record for every cloned node and graph.
	Observer ir.Observer
}

// Cloner copies IR objects according to its Options.
type Cloner struct {
	opts Options
}

// New creates a Cloner.
func New(opts Options) *Cloner {
	if opts.ValueMap == nil {
		opts.ValueMap = make(ValueMap)
	}
	if opts.AttrMap == nil {
		opts.AttrMap = map[string]*ir.Attr{}
	}
	return &Cloner{opts: opts}
}

// ValueMap returns the live value substitution map.
func (c *Cloner) ValueMap() ValueMap {
	return c.opts.ValueMap
}

// lookup returns the mapped clone of v, failing if v is unmapped or severed.
func (c *Cloner) lookup(v *ir.Value) (*ir.Value, error) {
	mapped, ok := c.opts.ValueMap[v]
	if !ok {
		return nil, errors.Wrapf(ErrUnresolvedReference, "value %s was never cloned", v)
	}
	if mapped == nil {
		return nil, errors.Wrapf(ErrUnresolvedReference, "value %s is severed", v)
	}
	return mapped, nil
}

// ResolveValue returns the clone of v, creating it when v is not yet mapped.
//
// Unmapped values are scope-level inputs (graph inputs, initializers): the
// copy takes over name, type, shape, documentation, constant payload and
// metadata. Dereferencing a severed value is a contract violation.
func (c *Cloner) ResolveValue(v *ir.Value) (*ir.Value, error) {
	if mapped, ok := c.opts.ValueMap[v]; ok {
		if mapped == nil {
			return nil, errors.WithMessagef(
				errors.Wrapf(ErrUnresolvedReference, "value %s is mapped to a severed edge", v),
				"in ResolveValue(%s)", v)
		}
		return mapped, nil
	}
	nv := ir.NewValue(v.Name())
	copyValueFields(nv, v)
	c.opts.ValueMap[v] = nv
	return nv, nil
}

// CloneAttr clones one attribute under key. It returns nil without error when
// a reference attribute resolves to nothing and must be dropped.
func (c *Cloner) CloneAttr(key string, attr *ir.Attr) (*ir.Attr, error) {
	out, err := c.cloneAttr(key, attr)
	if err != nil {
		return nil, errors.WithMessagef(err, "in CloneAttr(%s)", attr)
	}
	return out, nil
}

func (c *Cloner) cloneAttr(key string, attr *ir.Attr) (*ir.Attr, error) {
	if !attr.IsRef() {
		switch attr.Type() {
		case ir.AttrGraph:
			g, err := c.CloneGraph(attr.AsGraph())
			if err != nil {
				return nil, err
			}
			out := ir.AttrGraphValue(key, g)
			out.DocString = attr.DocString
			return out, nil
		case ir.AttrGraphs:
			graphs := make([]*ir.Graph, 0, len(attr.AsGraphs()))
			for _, sub := range attr.AsGraphs() {
				g, err := c.CloneGraph(sub)
				if err != nil {
					return nil, err
				}
				graphs = append(graphs, g)
			}
			out := ir.AttrGraphValues(key, graphs)
			out.DocString = attr.DocString
			return out, nil
		default:
			return attr, nil
		}
	}

	if !c.opts.ResolveRefAttrs {
		return attr, nil
	}
	target, ok := c.opts.AttrMap[attr.RefName()]
	if !ok {
		// The parameter was left unset at the call site: every reference to it disappears.
		return nil, nil
	}
	if !target.IsRef() {
		return target.Renamed(key), nil
	}
	// Calls made from inside another function bind to that function's own parameter.
	out := ir.RefAttr(key, target.RefName(), target.Type())
	out.DocString = target.DocString
	return out, nil
}

// CloneNode clones n, registering its outputs in the value map.
func (c *Cloner) CloneNode(n *ir.Node) (*ir.Node, error) {
	out, err := c.cloneNode(n)
	if err != nil {
		return nil, errors.WithMessagef(err, "in CloneNode(%s)", n)
	}
	return out, nil
}

func (c *Cloner) cloneNode(n *ir.Node) (*ir.Node, error) {
	inputs := make([]*ir.Value, n.NumInputs())
	for i, in := range n.Inputs() {
		if in == nil {
			continue
		}
		mapped, ok := c.opts.ValueMap[in]
		if !ok {
			if !c.opts.AllowOuterScopeValues {
				graphName := "<unknown>"
				if g := in.Graph(); g != nil {
					graphName = g.Name
					if graphName == "" {
						graphName = "<anonymous>"
					}
				}
				return nil, errors.Wrapf(ErrUnresolvedReference,
					"value %s used by node %s is an outer-scope value (from graph %q) and outer-scope values are not allowed",
					in, n, graphName)
			}
			inputs[i] = in
			continue
		}
		inputs[i] = mapped
	}

	var attrs []*ir.Attr
	for key, attr := range n.Attributes.All() {
		cloned, err := c.CloneAttr(key, attr)
		if err != nil {
			return nil, err
		}
		if cloned != nil {
			attrs = append(attrs, cloned)
		}
	}

	metadata := maps.Clone(c.opts.Metadata)
	if metadata == nil {
		metadata = make(map[string]string, len(n.Metadata))
	}
	maps.Copy(metadata, n.Metadata)

	clone := ir.NewNode(n.Domain, n.OpType, inputs, attrs,
		ir.WithOverload(n.Overload),
		ir.WithVersion(n.Version),
		ir.WithNumOutputs(n.NumOutputs()),
		ir.WithNodeName(n.Name()),
		ir.WithNodeDoc(n.DocString),
		ir.WithNodeMetadata(metadata),
	)
	for i, out := range n.Outputs() {
		nv := clone.Output(i)
		nv.SetName(out.Name())
		copyValueFields(nv, out)
		c.opts.ValueMap[out] = nv
	}
	ir.Record(c.opts.Observer, clone, "clone_node", n.String())
	if c.opts.PostProcess != nil {
		c.opts.PostProcess(clone)
	}
	return clone, nil
}

// CloneGraph clones g in stored order. Producers are registered before their
// consumers are cloned, which is what makes a single pass sufficient.
func (c *Cloner) CloneGraph(g *ir.Graph) (*ir.Graph, error) {
	out, err := c.cloneGraph(g)
	if err != nil {
		return nil, errors.WithMessagef(err, "in CloneGraph(%s)", g)
	}
	return out, nil
}

func (c *Cloner) cloneGraph(g *ir.Graph) (*ir.Graph, error) {
	inputs := make([]*ir.Value, 0, len(g.Inputs()))
	for _, in := range g.Inputs() {
		nv, err := c.ResolveValue(in)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, nv)
	}

	var initializers []*ir.Value
	for _, init := range g.Initializers() {
		nv, err := c.ResolveValue(init)
		if err != nil {
			return nil, err
		}
		initializers = append(initializers, nv)
	}

	nodes := make([]*ir.Node, 0, g.Len())
	for _, n := range g.Nodes() {
		clone, err := c.CloneNode(n)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, clone)
	}

	outputs := make([]*ir.Value, 0, len(g.Outputs()))
	for _, out := range g.Outputs() {
		nv, err := c.lookup(out)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, nv)
	}

	clone, err := ir.NewGraph(inputs, outputs, nodes,
		ir.WithGraphName(g.Name),
		ir.WithGraphDoc(g.DocString),
		ir.WithInitializers(initializers...),
		ir.WithOpsetImports(g.OpsetImports),
		ir.WithGraphMetadata(g.Metadata),
	)
	if err != nil {
		return nil, err
	}
	ir.Record(c.opts.Observer, clone, "clone_graph", g.String())
	return clone, nil
}

func copyValueFields(dst, src *ir.Value) {
	dst.Type = src.Type
	dst.Shape = src.Shape.Copy()
	dst.DocString = src.DocString
	dst.ConstValue = src.ConstValue
	if len(src.Metadata) > 0 {
		if dst.Metadata == nil {
			dst.Metadata = make(map[string]string, len(src.Metadata))
		}
		maps.Copy(dst.Metadata, src.Metadata)
	}
}
