package inliner

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"

	"github.com/born-ml/graphir/internal/cloner"
	"github.com/born-ml/graphir/internal/ir"
	"github.com/born-ml/graphir/internal/passes"
)

// Errors raised while instantiating a call site. They abort the pass.
var (
	ErrOpsetConflict             = errors.New("opset version conflict")
	ErrUnsupportedGraphAttribute = errors.New("graph-valued function attribute is not supported")
	ErrInputArity                = errors.New("call site has more inputs than the function declares")
)

// Result extends passes.Result with per-function call-site counts.
type Result struct {
	passes.Result

	// CallCounts maps each function identifier to the number of call nodes
	// that targeted it, over the main graph, the retained function bodies and
	// their nested subgraphs.
	CallCounts map[ir.OperatorIdentifier]int

	// Inlined is the number of call sites that were replaced.
	Inlined int

	// Removed lists the functions dropped from the model, in table order.
	Removed []ir.OperatorIdentifier
}

// Option configures a Pass.
type Option func(*Pass)

// WithCriteria restricts inlining to functions for which keep returns true.
// Calls to other functions are left in place and the functions are retained.
func WithCriteria(keep func(*ir.Function) bool) Option {
	return func(p *Pass) { p.criteria = keep }
}

// WithLogger sets the logger used for progress reporting.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pass) { p.logger = l }
}

// WithObserver sets the observer notified of every cloned and replaced node.
func WithObserver(o ir.Observer) Option {
	return func(p *Pass) { p.observer = o }
}

// Pass inlines calls to model-local functions.
//
// A Pass holds per-run state and must not be used on two models at once.
type Pass struct {
	passes.Base

	criteria func(*ir.Function) bool
	logger   *slog.Logger
	observer ir.Observer

	model         *ir.Model
	abbreviations map[ir.OperatorIdentifier]string
	opsetImports  map[string]int64
	namer         *Namer
	nodeContext   map[*ir.Node][]string
	inlined       *set.Set[ir.OperatorIdentifier]
}

// New creates an inlining pass.
func New(opts ...Option) *Pass {
	p := &Pass{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements passes.Pass.
func (p *Pass) Name() string { return "InlinePass" }

// Requires rejects models whose functions call each other cyclically.
func (p *Pass) Requires(m *ir.Model) error {
	if err := checkCycles(m); err != nil {
		return &passes.PreconditionError{Pass: p.Name(), Err: err}
	}
	return nil
}

// Call implements passes.Pass.
func (p *Pass) Call(m *ir.Model) (*passes.Result, error) {
	res, err := p.Inline(m)
	if err != nil {
		return nil, err
	}
	return &res.Result, nil
}

// Inline runs the pass on m and returns the detailed result.
//
// The cycle check runs again here so that Inline is safe to call without
// going through passes.Run. The first failing call site aborts the pass.
func (p *Pass) Inline(m *ir.Model) (*Result, error) {
	if err := checkCycles(m); err != nil {
		return nil, &passes.PreconditionError{Pass: p.Name(), Err: err}
	}
	p.reset(m)

	res := &Result{
		Result:     passes.Result{Model: m},
		CallCounts: make(map[ir.OperatorIdentifier]int),
	}
	counts, n, err := p.inlineCallsIn(m.Graph)
	if err != nil {
		return nil, err
	}
	addCounts(res.CallCounts, counts)
	res.Inlined += n

	for _, f := range m.Functions() {
		if p.inlined.Contains(f.Identifier()) {
			continue
		}
		counts, n, err := p.inlineCallsIn(f.Graph())
		if err != nil {
			return nil, errors.WithMessagef(err, "in body of function %s", f.Identifier())
		}
		addCounts(res.CallCounts, counts)
		res.Inlined += n
	}

	for _, f := range m.Functions() {
		id := f.Identifier()
		if p.inlined.Contains(id) && m.RemoveFunction(id) {
			res.Removed = append(res.Removed, id)
		}
	}
	res.Modified = res.Inlined > 0

	p.logger.Info("Inlined function calls.",
		"call_sites", res.Inlined,
		"functions_removed", len(res.Removed),
		"functions_left", m.NumFunctions())
	return res, nil
}

func checkCycles(m *ir.Model) error {
	if cycle := DetectFunctionCycles(m); cycle != nil {
		return &CycleError{Cycle: cycle}
	}
	return nil
}

func (p *Pass) reset(m *ir.Model) {
	ids := make([]ir.OperatorIdentifier, 0, m.NumFunctions())
	for _, f := range m.Functions() {
		ids = append(ids, f.Identifier())
	}
	p.model = m
	p.abbreviations = Abbreviate(ids)
	p.opsetImports = m.OpsetImports()
	p.namer = NewNamer()
	p.nodeContext = make(map[*ir.Node][]string)
	p.inlined = set.New[ir.OperatorIdentifier](len(ids))
}

// inlineCallsIn replaces the eligible call nodes of g, recursing into the
// subgraphs of other nodes. It returns the call-site counts and the number of
// call sites inlined, both including nested subgraphs.
func (p *Pass) inlineCallsIn(g *ir.Graph) (map[ir.OperatorIdentifier]int, int, error) {
	p.namer.Seed(g)

	// Counted before any rewrite: the suffix decision only concerns the
	// call sites originally present in this scope.
	local := make(map[ir.OperatorIdentifier]int)
	for _, node := range g.Nodes() {
		if _, ok := p.model.Function(node.OpIdentifier()); ok {
			local[node.OpIdentifier()]++
		}
	}
	counts := maps.Clone(local)

	nextID := make(map[ir.OperatorIdentifier]int)
	inlined := 0
	for i := 0; i < g.Len(); {
		node := g.Node(i)
		id := node.OpIdentifier()
		f, isCall := p.model.Function(id)
		if !isCall {
			for _, sub := range node.Subgraphs() {
				subCounts, n, err := p.inlineCallsIn(sub)
				if err != nil {
					return nil, 0, err
				}
				addCounts(counts, subCounts)
				inlined += n
			}
			i++
			continue
		}
		if p.criteria != nil && !p.criteria(f) {
			i++
			continue
		}

		p.inlined.Insert(id)
		suffix := ""
		if local[id] > 1 {
			suffix = fmt.Sprintf("_%d", nextID[id])
			nextID[id]++
		}
		callSite := node.Name()
		if callSite == "" {
			callSite = p.abbreviations[id] + suffix
		}

		nodes, outputs, err := p.instantiateCall(node, f, callSite, suffix)
		if err != nil {
			return nil, 0, errors.WithMessagef(err, "inlining %s at call site %s in graph %q", id, node, g.Name)
		}
		ir.Record(p.observer, node, "inline_call", fmt.Sprintf("function %s expanded to %d nodes", id, len(nodes)))
		if err := ir.ReplaceNodesAndValues(g, node, []*ir.Node{node}, nodes, node.Outputs(), outputs, p.observer); err != nil {
			return nil, 0, errors.WithMessagef(err, "splicing %s into graph %q", id, g.Name)
		}
		inlined++
		// Index i now holds the first spliced node, so calls inside the
		// inlined body are visited in this same sweep.
	}
	return counts, inlined, nil
}

// instantiateCall clones the body of f for the given call node and returns
// the new nodes and the values replacing the call's outputs.
func (p *Pass) instantiateCall(call *ir.Node, f *ir.Function, callSite, suffix string) ([]*ir.Node, []*ir.Value, error) {
	id := f.Identifier()
	if err := p.mergeOpsets(f); err != nil {
		return nil, nil, err
	}

	attrs, err := callAttributes(call, f)
	if err != nil {
		return nil, nil, err
	}

	formals := f.Inputs()
	if call.NumInputs() > len(formals) {
		return nil, nil, errors.Wrapf(ErrInputArity, "function %s: call site has %d inputs, function declares %d",
			id, call.NumInputs(), len(formals))
	}
	values := make(cloner.ValueMap, len(formals))
	for i, formal := range formals {
		if i < call.NumInputs() {
			values[formal] = call.Input(i)
		} else {
			values[formal] = nil
		}
	}

	stack := append(slices.Clone(p.nodeContext[call]), callSite)
	rename := func(n *ir.Node) {
		base := n.Name()
		if base == "" {
			base = "node"
		}
		n.SetName(p.namer.NodeName(base + suffix))
		for _, out := range n.Outputs() {
			base := out.Name()
			if base == "" {
				base = "val"
			}
			out.SetName(p.namer.ValueName(base + suffix))
		}
		p.nodeContext[n] = stack
	}

	c := cloner.New(cloner.Options{
		AttrMap:         attrs,
		ValueMap:        values,
		Metadata:        call.Metadata,
		PostProcess:     rename,
		ResolveRefAttrs: true,
		Observer:        p.observer,
	})
	body := f.Nodes()
	nodes := make([]*ir.Node, 0, len(body))
	for _, n := range body {
		cloned, err := c.CloneNode(n)
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, cloned)
	}

	outputs := make([]*ir.Value, len(f.Outputs()))
	for i, out := range f.Outputs() {
		outputs[i] = values[out]
	}

	p.logger.Debug("Instantiated call site.",
		"function", id.String(),
		"call_stack", strings.Join(stack, "/"),
		"nodes", len(nodes))
	return nodes, outputs, nil
}

// mergeOpsets adds the function's opset imports to the model table. All
// entries are checked before any is added.
func (p *Pass) mergeOpsets(f *ir.Function) error {
	imports := f.OpsetImports()
	domains := slices.Sorted(maps.Keys(imports))
	for _, domain := range domains {
		if have, ok := p.opsetImports[domain]; ok && have != imports[domain] {
			return errors.Wrapf(ErrOpsetConflict, "function %s: domain %q has version %d in the model but %d in the function",
				f.Identifier(), domain, have, imports[domain])
		}
	}
	for _, domain := range domains {
		if _, ok := p.opsetImports[domain]; !ok {
			p.opsetImports[domain] = imports[domain]
		}
	}
	return nil
}

// callAttributes merges the call-site attributes with the function defaults.
// Call-site values win.
func callAttributes(call *ir.Node, f *ir.Function) (map[string]*ir.Attr, error) {
	attrs := make(map[string]*ir.Attr, call.Attributes.Len())
	var order []string
	for name, a := range call.Attributes.All() {
		attrs[name] = a
		order = append(order, name)
	}
	for _, param := range f.Attributes() {
		if _, ok := attrs[param.Name]; ok || param.Default == nil {
			continue
		}
		attrs[param.Name] = param.Default
		order = append(order, param.Name)
	}
	for _, name := range order {
		if attrs[name].Type().IsGraph() {
			return nil, errors.Wrapf(ErrUnsupportedGraphAttribute, "function %s: attribute %q has type %s",
				f.Identifier(), name, attrs[name].Type())
		}
	}
	return attrs, nil
}

// Abbreviate returns a short label for each function identifier. The domain
// is dropped unless another function shares the name and overload.
func Abbreviate(ids []ir.OperatorIdentifier) map[ir.OperatorIdentifier]string {
	out := make(map[ir.OperatorIdentifier]string, len(ids))
	for _, id := range ids {
		prefix := ""
		for _, other := range ids {
			if other.Domain != id.Domain && other.Name == id.Name && other.Overload == id.Overload {
				prefix = id.Domain + "_"
				break
			}
		}
		label := prefix + id.Name
		if id.Overload != "" {
			label += "_" + id.Overload
		}
		out[id] = label
	}
	return out
}

func addCounts(dst, src map[ir.OperatorIdentifier]int) {
	for id, n := range src {
		dst[id] += n
	}
}
