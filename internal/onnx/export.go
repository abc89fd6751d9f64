package onnx

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/born-ml/graphir/internal/ir"
)

// ExportOptions configures IR to proto conversion.
type ExportOptions struct {
	// ValueInfo emits type information for intermediate values that have it.
	ValueInfo bool
}

// DefaultExportOptions returns the default export options.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{ValueInfo: true}
}

// exporter assigns wire names to values. Unnamed values get generated names
// that do not collide with any name already present in the model.
type exporter struct {
	opt   ExportOptions
	names map[*ir.Value]string
	used  map[string]bool
	next  int
}

// Export converts m into its proto form.
func Export(m *ir.Model, opts ...ExportOptions) (*ModelProto, error) {
	opt := DefaultExportOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	e := &exporter{opt: opt, names: make(map[*ir.Value]string), used: make(map[string]bool)}
	e.reserve(m.Graph)
	for _, f := range m.Functions() {
		e.reserve(f.Graph())
	}

	g, err := e.graph(m.Graph)
	if err != nil {
		return nil, fmt.Errorf("graph %q: %w", m.Graph.Name, err)
	}
	mp := &ModelProto{
		IRVersion:       m.IRVersion,
		ProducerName:    m.ProducerName,
		ProducerVersion: m.ProducerVersion,
		Domain:          m.Domain,
		ModelVersion:    m.ModelVersion,
		DocString:       m.DocString,
		Graph:           g,
		OpsetImport:     opsetList(m.OpsetImports()),
		MetadataProps:   metadataList(m.Metadata),
	}
	for _, f := range m.Functions() {
		fp, err := e.function(f)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", f.Identifier(), err)
		}
		mp.Functions = append(mp.Functions, *fp)
	}
	return mp, nil
}

func (e *exporter) reserve(g *ir.Graph) {
	for _, v := range g.Inputs() {
		e.used[v.Name()] = true
	}
	for _, v := range g.Initializers() {
		e.used[v.Name()] = true
	}
	for n := range g.AllNodes() {
		for _, out := range n.Outputs() {
			e.used[out.Name()] = true
		}
	}
}

func (e *exporter) name(v *ir.Value) string {
	if v == nil {
		return ""
	}
	if v.Name() != "" {
		return v.Name()
	}
	if name, ok := e.names[v]; ok {
		return name
	}
	for {
		name := "_v" + strconv.Itoa(e.next)
		e.next++
		if !e.used[name] {
			e.used[name] = true
			e.names[v] = name
			return name
		}
	}
}

func (e *exporter) graph(g *ir.Graph) (*GraphProto, error) {
	gp := &GraphProto{
		Name:          g.Name,
		DocString:     g.DocString,
		MetadataProps: metadataList(g.Metadata),
	}
	for _, v := range g.Inputs() {
		gp.Inputs = append(gp.Inputs, e.valueInfo(v))
	}
	for _, v := range g.Initializers() {
		if v.ConstValue == nil {
			return nil, fmt.Errorf("initializer %q has no constant value", v.Name())
		}
		tp := exportTensor(v.ConstValue)
		tp.Name = e.name(v)
		gp.Initializers = append(gp.Initializers, *tp)
	}
	nodes, err := e.nodes(g.Nodes())
	if err != nil {
		return nil, err
	}
	gp.Nodes = nodes
	outputs := make(map[*ir.Value]bool)
	for i, v := range g.Outputs() {
		if v == nil {
			return nil, fmt.Errorf("graph output %d is empty", i)
		}
		outputs[v] = true
		gp.Outputs = append(gp.Outputs, e.valueInfo(v))
	}
	if e.opt.ValueInfo {
		gp.ValueInfo = e.intermediateInfo(g.Nodes(), outputs)
	}
	return gp, nil
}

func (e *exporter) intermediateInfo(nodes []*ir.Node, skip map[*ir.Value]bool) []ValueInfoProto {
	var infos []ValueInfoProto
	for _, n := range nodes {
		for _, out := range n.Outputs() {
			if out.Type != nil && !skip[out] {
				infos = append(infos, e.valueInfo(out))
			}
		}
	}
	return infos
}

func (e *exporter) nodes(nodes []*ir.Node) ([]NodeProto, error) {
	out := make([]NodeProto, 0, len(nodes))
	for _, n := range nodes {
		np := NodeProto{
			Name:          n.Name(),
			OpType:        n.OpType,
			Domain:        n.Domain,
			Overload:      n.Overload,
			DocString:     n.DocString,
			MetadataProps: metadataList(n.Metadata),
		}
		for _, in := range n.Inputs() {
			np.Inputs = append(np.Inputs, e.name(in))
		}
		for _, v := range n.Outputs() {
			np.Outputs = append(np.Outputs, e.name(v))
		}
		for _, a := range n.Attributes.List() {
			ap, err := e.attr(a)
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", n, err)
			}
			np.Attributes = append(np.Attributes, *ap)
		}
		out = append(out, np)
	}
	return out, nil
}

func (e *exporter) function(f *ir.Function) (*FunctionProto, error) {
	g := f.Graph()
	fp := &FunctionProto{
		Name:          f.Name,
		Domain:        f.Domain,
		Overload:      f.Overload,
		DocString:     g.DocString,
		OpsetImport:   opsetList(f.OpsetImports()),
		MetadataProps: metadataList(f.Metadata),
	}
	for _, v := range f.Inputs() {
		fp.Inputs = append(fp.Inputs, e.name(v))
	}
	nodes, err := e.nodes(f.Nodes())
	if err != nil {
		return nil, err
	}
	fp.Nodes = nodes
	for i, v := range f.Outputs() {
		if v == nil {
			return nil, fmt.Errorf("function output %d is empty", i)
		}
		fp.Outputs = append(fp.Outputs, e.name(v))
	}
	for _, param := range f.Attributes() {
		if param.Default == nil {
			fp.Attribute = append(fp.Attribute, param.Name)
			continue
		}
		ap, err := e.attr(param.Default.Renamed(param.Name))
		if err != nil {
			return nil, err
		}
		fp.AttributeProto = append(fp.AttributeProto, *ap)
	}
	if e.opt.ValueInfo {
		for _, v := range f.Inputs() {
			if v.Type != nil {
				fp.ValueInfo = append(fp.ValueInfo, e.valueInfo(v))
			}
		}
		fp.ValueInfo = append(fp.ValueInfo, e.intermediateInfo(f.Nodes(), nil)...)
	}
	return fp, nil
}

func (e *exporter) attr(a *ir.Attr) (*AttributeProto, error) {
	ap := &AttributeProto{Name: a.Name(), Type: int32(a.Type()), DocString: a.DocString}
	if a.IsRef() {
		ap.RefAttrName = a.RefName()
		return ap, nil
	}
	switch a.Type() {
	case ir.AttrFloat:
		ap.F = a.AsFloat()
	case ir.AttrInt:
		ap.I = a.AsInt()
	case ir.AttrString:
		ap.S = []byte(a.AsString())
	case ir.AttrTensor:
		ap.T = exportTensor(a.AsTensor())
	case ir.AttrGraph:
		g, err := e.graph(a.AsGraph())
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", a.Name(), err)
		}
		ap.G = g
	case ir.AttrFloats:
		ap.Floats = a.AsFloats()
	case ir.AttrInts:
		ap.Ints = a.AsInts()
	case ir.AttrStrings:
		for _, s := range a.AsStrings() {
			ap.Strings = append(ap.Strings, []byte(s))
		}
	case ir.AttrTensors:
		for _, t := range a.AsTensors() {
			ap.Tensors = append(ap.Tensors, *exportTensor(t))
		}
	case ir.AttrGraphs:
		for _, sub := range a.AsGraphs() {
			g, err := e.graph(sub)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", a.Name(), err)
			}
			ap.Graphs = append(ap.Graphs, *g)
		}
	default:
		return nil, fmt.Errorf("%w: %q has unsupported type %s", ErrBadAttribute, a.Name(), a.Type())
	}
	return ap, nil
}

func (e *exporter) valueInfo(v *ir.Value) ValueInfoProto {
	vi := ValueInfoProto{
		Name:          e.name(v),
		DocString:     v.DocString,
		MetadataProps: metadataList(v.Metadata),
	}
	if v.Type == nil {
		return vi
	}
	tt := &TensorTypeProto{ElemType: int32(v.Type.Elem)}
	if v.Shape != nil {
		tt.Shape = &TensorShapeProto{Dims: make([]DimensionProto, len(v.Shape.Dims))}
		for i, d := range v.Shape.Dims {
			tt.Shape.Dims[i] = DimensionProto{DimValue: d.Value, DimParam: d.Param}
		}
	}
	vi.Type = &TypeProto{TensorType: tt}
	return vi
}

func exportTensor(t *ir.Tensor) *TensorProto {
	tp := &TensorProto{
		Name:      t.Name,
		DataType:  int32(t.DType),
		Dims:      t.Dims,
		DocString: t.DocString,
	}
	if t.DType == ir.String {
		for _, s := range t.Strings {
			tp.StringData = append(tp.StringData, []byte(s))
		}
		return tp
	}
	tp.RawData = t.Raw
	if tp.RawData == nil {
		tp.RawData = []byte{}
	}
	return tp
}

func opsetList(m map[string]int64) []OperatorSetID {
	ids := make([]OperatorSetID, 0, len(m))
	for _, domain := range slices.Sorted(maps.Keys(m)) {
		ids = append(ids, OperatorSetID{Domain: domain, Version: m[domain]})
	}
	return ids
}

func metadataList(m map[string]string) []StringStringEntry {
	entries := make([]StringStringEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, StringStringEntry{Key: k, Value: v})
	}
	slices.SortFunc(entries, func(a, b StringStringEntry) int { return cmp.Compare(a.Key, b.Key) })
	return entries
}
