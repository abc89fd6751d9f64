package onnx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/born-ml/graphir/internal/ir"
)

// Conversion errors.
var (
	ErrNoGraph        = errors.New("model has no graph")
	ErrUndefinedValue = errors.New("undefined value")
	ErrDuplicateValue = errors.New("value defined twice")
	ErrBadAttribute   = errors.New("malformed attribute")
)

// scope resolves value names. Subgraph scopes see the values of every
// enclosing scope defined before the subgraph's owning node.
type scope struct {
	parent *scope
	values map[string]*ir.Value
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, values: make(map[string]*ir.Value)}
}

func (s *scope) lookup(name string) (*ir.Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.values[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Import converts a decoded model into the IR.
func Import(mp *ModelProto) (*ir.Model, error) {
	if mp.Graph == nil {
		return nil, ErrNoGraph
	}
	g, err := importGraph(mp.Graph, nil)
	if err != nil {
		return nil, fmt.Errorf("graph %q: %w", mp.Graph.Name, err)
	}
	g.OpsetImports = opsetMap(mp.OpsetImport)

	fns := make([]*ir.Function, 0, len(mp.Functions))
	for i := range mp.Functions {
		f, err := importFunction(&mp.Functions[i])
		if err != nil {
			return nil, fmt.Errorf("function %s::%s: %w", mp.Functions[i].Domain, mp.Functions[i].Name, err)
		}
		fns = append(fns, f)
	}

	m, err := ir.NewModel(g, mp.IRVersion, fns...)
	if err != nil {
		return nil, err
	}
	m.ProducerName = mp.ProducerName
	m.ProducerVersion = mp.ProducerVersion
	m.Domain = mp.Domain
	m.ModelVersion = mp.ModelVersion
	m.DocString = mp.DocString
	maps.Copy(m.Metadata, metadataMap(mp.MetadataProps))
	return m, nil
}

func importGraph(gp *GraphProto, parent *scope) (*ir.Graph, error) {
	s := newScope(parent)
	infos := valueInfoIndex(gp.ValueInfo)

	inputs := make([]*ir.Value, 0, len(gp.Inputs))
	for i := range gp.Inputs {
		v := ir.NewValue(gp.Inputs[i].Name)
		applyValueInfo(v, &gp.Inputs[i])
		inputs = append(inputs, v)
		s.values[v.Name()] = v
	}

	inits := make([]*ir.Value, 0, len(gp.Initializers))
	for i := range gp.Initializers {
		tp := &gp.Initializers[i]
		t, err := importTensor(tp)
		if err != nil {
			return nil, fmt.Errorf("initializer %q: %w", tp.Name, err)
		}
		// An initializer may also be declared as an input, giving it a default.
		v, ok := s.values[tp.Name]
		if !ok {
			v = ir.NewValue(tp.Name)
			v.Type = &ir.TensorType{Elem: t.DType}
			v.Shape = ir.NewShape(t.Dims...)
			s.values[tp.Name] = v
		}
		v.ConstValue = t
		inits = append(inits, v)
	}

	nodes, err := importNodes(gp.Nodes, s, infos)
	if err != nil {
		return nil, err
	}
	outputs, err := resolveOutputs(gp.Outputs, s)
	if err != nil {
		return nil, err
	}

	return ir.NewGraph(inputs, outputs, nodes,
		ir.WithGraphName(gp.Name),
		ir.WithGraphDoc(gp.DocString),
		ir.WithInitializers(inits...),
		ir.WithGraphMetadata(metadataMap(gp.MetadataProps)))
}

func importFunction(fp *FunctionProto) (*ir.Function, error) {
	s := newScope(nil)
	infos := valueInfoIndex(fp.ValueInfo)

	inputs := make([]*ir.Value, 0, len(fp.Inputs))
	for _, name := range fp.Inputs {
		v := ir.NewValue(name)
		if vi, ok := infos[name]; ok {
			applyValueInfo(v, vi)
		}
		inputs = append(inputs, v)
		s.values[name] = v
	}
	nodes, err := importNodes(fp.Nodes, s, infos)
	if err != nil {
		return nil, err
	}
	outputs := make([]*ir.Value, 0, len(fp.Outputs))
	for _, name := range fp.Outputs {
		v, ok := s.lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: function output %q", ErrUndefinedValue, name)
		}
		outputs = append(outputs, v)
	}

	g, err := ir.NewGraph(inputs, outputs, nodes,
		ir.WithGraphName(fp.Name),
		ir.WithGraphDoc(fp.DocString),
		ir.WithOpsetImports(opsetMap(fp.OpsetImport)))
	if err != nil {
		return nil, err
	}

	params := make([]*ir.AttrParam, 0, len(fp.Attribute)+len(fp.AttributeProto))
	for _, name := range fp.Attribute {
		params = append(params, &ir.AttrParam{Name: name})
	}
	for i := range fp.AttributeProto {
		def, err := importAttr(&fp.AttributeProto[i], nil)
		if err != nil {
			return nil, err
		}
		params = append(params, &ir.AttrParam{Name: def.Name(), Type: def.Type(), Default: def})
	}

	f := ir.NewFunction(fp.Domain, fp.Name, fp.Overload, g, params)
	maps.Copy(f.Metadata, metadataMap(fp.MetadataProps))
	return f, nil
}

func importNodes(nps []NodeProto, s *scope, infos map[string]*ValueInfoProto) ([]*ir.Node, error) {
	nodes := make([]*ir.Node, 0, len(nps))
	for i := range nps {
		np := &nps[i]
		inputs := make([]*ir.Value, len(np.Inputs))
		for j, name := range np.Inputs {
			if name == "" {
				continue
			}
			v, ok := s.lookup(name)
			if !ok {
				return nil, fmt.Errorf("node %q (%s): %w %q", np.Name, np.OpType, ErrUndefinedValue, name)
			}
			inputs[j] = v
		}

		attrs := make([]*ir.Attr, 0, len(np.Attributes))
		for j := range np.Attributes {
			a, err := importAttr(&np.Attributes[j], s)
			if err != nil {
				return nil, fmt.Errorf("node %q (%s): %w", np.Name, np.OpType, err)
			}
			attrs = append(attrs, a)
		}

		n := ir.NewNode(np.Domain, np.OpType, inputs, attrs,
			ir.WithNodeName(np.Name),
			ir.WithOverload(np.Overload),
			ir.WithNumOutputs(len(np.Outputs)),
			ir.WithNodeDoc(np.DocString),
			ir.WithNodeMetadata(metadataMap(np.MetadataProps)))
		for j, name := range np.Outputs {
			out := n.Output(j)
			out.SetName(name)
			if name == "" {
				continue
			}
			if _, dup := s.values[name]; dup {
				return nil, fmt.Errorf("node %q (%s): %w: %q", np.Name, np.OpType, ErrDuplicateValue, name)
			}
			if vi, ok := infos[name]; ok {
				applyValueInfo(out, vi)
			}
			s.values[name] = out
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func resolveOutputs(vis []ValueInfoProto, s *scope) ([]*ir.Value, error) {
	outputs := make([]*ir.Value, 0, len(vis))
	for i := range vis {
		v, ok := s.lookup(vis[i].Name)
		if !ok {
			return nil, fmt.Errorf("%w: graph output %q", ErrUndefinedValue, vis[i].Name)
		}
		if v.Type == nil {
			applyValueInfo(v, &vis[i])
		}
		outputs = append(outputs, v)
	}
	return outputs, nil
}

func importAttr(ap *AttributeProto, s *scope) (*ir.Attr, error) {
	typ := ir.AttrType(ap.Type)
	if typ == ir.AttrUndefined && ap.RefAttrName == "" {
		typ = inferAttrType(ap)
	}
	if ap.RefAttrName != "" {
		a := ir.RefAttr(ap.Name, ap.RefAttrName, typ)
		a.DocString = ap.DocString
		return a, nil
	}

	var a *ir.Attr
	switch typ {
	case ir.AttrFloat:
		a = ir.AttrFloat32(ap.Name, ap.F)
	case ir.AttrInt:
		a = ir.AttrInt64(ap.Name, ap.I)
	case ir.AttrString:
		a = ir.AttrStr(ap.Name, string(ap.S))
	case ir.AttrTensor:
		if ap.T == nil {
			return nil, fmt.Errorf("%w: %q has no tensor", ErrBadAttribute, ap.Name)
		}
		t, err := importTensor(ap.T)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", ap.Name, err)
		}
		a = ir.AttrTensorValue(ap.Name, t)
	case ir.AttrGraph:
		if ap.G == nil {
			return nil, fmt.Errorf("%w: %q has no graph", ErrBadAttribute, ap.Name)
		}
		g, err := importGraph(ap.G, s)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", ap.Name, err)
		}
		a = ir.AttrGraphValue(ap.Name, g)
	case ir.AttrFloats:
		a = ir.AttrFloat32s(ap.Name, slices.Clone(ap.Floats))
	case ir.AttrInts:
		a = ir.AttrInt64s(ap.Name, slices.Clone(ap.Ints))
	case ir.AttrStrings:
		strs := make([]string, len(ap.Strings))
		for i, b := range ap.Strings {
			strs[i] = string(b)
		}
		a = ir.AttrStrs(ap.Name, strs)
	case ir.AttrTensors:
		ts := make([]*ir.Tensor, len(ap.Tensors))
		for i := range ap.Tensors {
			t, err := importTensor(&ap.Tensors[i])
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", ap.Name, err)
			}
			ts[i] = t
		}
		a = ir.AttrTensorValues(ap.Name, ts)
	case ir.AttrGraphs:
		gs := make([]*ir.Graph, len(ap.Graphs))
		for i := range ap.Graphs {
			g, err := importGraph(&ap.Graphs[i], s)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", ap.Name, err)
			}
			gs[i] = g
		}
		a = ir.AttrGraphValues(ap.Name, gs)
	default:
		return nil, fmt.Errorf("%w: %q has unsupported type %d", ErrBadAttribute, ap.Name, ap.Type)
	}
	a.DocString = ap.DocString
	return a, nil
}

// inferAttrType guesses the type of attributes written before the type field existed.
func inferAttrType(ap *AttributeProto) ir.AttrType {
	switch {
	case ap.G != nil:
		return ir.AttrGraph
	case ap.T != nil:
		return ir.AttrTensor
	case len(ap.Graphs) > 0:
		return ir.AttrGraphs
	case len(ap.Tensors) > 0:
		return ir.AttrTensors
	case len(ap.Floats) > 0:
		return ir.AttrFloats
	case len(ap.Ints) > 0:
		return ir.AttrInts
	case len(ap.Strings) > 0:
		return ir.AttrStrings
	case len(ap.S) > 0:
		return ir.AttrString
	case ap.F != 0:
		return ir.AttrFloat
	default:
		return ir.AttrInt
	}
}

func importTensor(tp *TensorProto) (*ir.Tensor, error) {
	dt := ir.DataType(tp.DataType)
	t := &ir.Tensor{
		Name:      tp.Name,
		DType:     dt,
		Dims:      slices.Clone(tp.Dims),
		DocString: tp.DocString,
	}
	switch {
	case dt == ir.String:
		t.Strings = make([]string, len(tp.StringData))
		for i, b := range tp.StringData {
			t.Strings[i] = string(b)
		}
	case tp.RawData != nil:
		t.Raw = bytes.Clone(tp.RawData)
	default:
		raw, err := typedToRaw(tp, dt)
		if err != nil {
			return nil, err
		}
		t.Raw = raw
	}
	return t, nil
}

// typedToRaw packs the typed repeated fields of tp into little-endian bytes.
func typedToRaw(tp *TensorProto, dt ir.DataType) ([]byte, error) {
	size := dt.Size()
	var raw []byte
	switch dt {
	case ir.Float32, ir.Complex64:
		for _, v := range tp.FloatData {
			raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
		}
	case ir.Int8, ir.Uint8, ir.Bool, ir.Int16, ir.Uint16, ir.Float16, ir.BFloat16, ir.Int32:
		for _, v := range tp.Int32Data {
			raw = appendSized(raw, uint64(uint32(v)), size) //nolint:gosec // G115: truncation to element width.
		}
	case ir.Int64:
		for _, v := range tp.Int64Data {
			raw = binary.LittleEndian.AppendUint64(raw, uint64(v)) //nolint:gosec // G115: bit reinterpretation.
		}
	case ir.Float64, ir.Complex128:
		for _, v := range tp.DoubleData {
			raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(v))
		}
	case ir.Uint32, ir.Uint64:
		for _, v := range tp.Uint64Data {
			raw = appendSized(raw, v, size)
		}
	case ir.Undefined:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported tensor data type %d", tp.DataType)
	}
	return raw, nil
}

func appendSized(b []byte, v uint64, size int) []byte {
	switch size {
	case 1:
		return append(b, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(b, uint16(v)) //nolint:gosec // G115: truncation to element width.
	case 4:
		return binary.LittleEndian.AppendUint32(b, uint32(v)) //nolint:gosec // G115: truncation to element width.
	default:
		return binary.LittleEndian.AppendUint64(b, v)
	}
}

func applyValueInfo(v *ir.Value, vi *ValueInfoProto) {
	if vi.DocString != "" {
		v.DocString = vi.DocString
	}
	if len(vi.MetadataProps) > 0 {
		if v.Metadata == nil {
			v.Metadata = make(map[string]string, len(vi.MetadataProps))
		}
		maps.Copy(v.Metadata, metadataMap(vi.MetadataProps))
	}
	if vi.Type == nil || vi.Type.TensorType == nil {
		return
	}
	tt := vi.Type.TensorType
	v.Type = &ir.TensorType{Elem: ir.DataType(tt.ElemType)}
	if tt.Shape != nil {
		shape := &ir.Shape{Dims: make([]ir.Dim, len(tt.Shape.Dims))}
		for i, d := range tt.Shape.Dims {
			shape.Dims[i] = ir.Dim{Value: d.DimValue, Param: d.DimParam}
		}
		v.Shape = shape
	}
}

func valueInfoIndex(vis []ValueInfoProto) map[string]*ValueInfoProto {
	idx := make(map[string]*ValueInfoProto, len(vis))
	for i := range vis {
		idx[vis[i].Name] = &vis[i]
	}
	return idx
}

func opsetMap(ids []OperatorSetID) map[string]int64 {
	m := make(map[string]int64, len(ids))
	for _, id := range ids {
		m[id.Domain] = id.Version
	}
	return m
}

func metadataMap(props []StringStringEntry) map[string]string {
	m := make(map[string]string, len(props))
	for _, kv := range props {
		m[kv.Key] = kv.Value
	}
	return m
}
