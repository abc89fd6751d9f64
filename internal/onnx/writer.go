package onnx

import (
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal encodes m in the protobuf wire format.
func Marshal(m *ModelProto) []byte {
	var e encoder
	e.writeModelProto(m)
	return e.buf
}

// WriteFile encodes m and writes it to path.
func WriteFile(path string, m *ModelProto) error {
	if err := os.WriteFile(path, Marshal(m), 0o644); err != nil { //nolint:gosec // G306: model files are not secret.
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// encoder appends protobuf fields to buf. Scalar helpers omit zero values;
// the *Always variants are for fields whose presence carries meaning.
type encoder struct {
	buf []byte
}

func (e *encoder) varint(num protowire.Number, v int64) {
	if v != 0 {
		e.varintAlways(num, v)
	}
}

func (e *encoder) varintAlways(num protowire.Number, v int64) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, uint64(v)) //nolint:gosec // G115: two's complement on the wire.
}

func (e *encoder) str(num protowire.Number, s string) {
	if s != "" {
		e.strAlways(num, s)
	}
}

func (e *encoder) strAlways(num protowire.Number, s string) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendString(e.buf, s)
}

func (e *encoder) strs(num protowire.Number, ss []string) {
	for _, s := range ss {
		e.strAlways(num, s)
	}
}

func (e *encoder) bytes(num protowire.Number, b []byte) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, b)
}

func (e *encoder) float32Always(num protowire.Number, f float32) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.Fixed32Type)
	e.buf = protowire.AppendFixed32(e.buf, math.Float32bits(f))
}

// message writes a length-delimited sub-message built by fill.
func (e *encoder) message(num protowire.Number, fill func(*encoder)) {
	var sub encoder
	fill(&sub)
	e.bytes(num, sub.buf)
}

func (e *encoder) packedVarints(num protowire.Number, n int, at func(i int) uint64) {
	if n == 0 {
		return
	}
	var packed []byte
	for i := range n {
		packed = protowire.AppendVarint(packed, at(i))
	}
	e.bytes(num, packed)
}

func (e *encoder) packedInt64s(num protowire.Number, vs []int64) {
	e.packedVarints(num, len(vs), func(i int) uint64 { return uint64(vs[i]) }) //nolint:gosec // G115: two's complement.
}

func (e *encoder) packedFloat32s(num protowire.Number, vs []float32) {
	if len(vs) == 0 {
		return
	}
	packed := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed32(packed, math.Float32bits(v))
	}
	e.bytes(num, packed)
}

func (e *encoder) packedFloat64s(num protowire.Number, vs []float64) {
	if len(vs) == 0 {
		return
	}
	packed := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	e.bytes(num, packed)
}

func (e *encoder) metadata(num protowire.Number, props []StringStringEntry) {
	for _, kv := range props {
		e.message(num, func(s *encoder) {
			s.str(1, kv.Key)
			s.str(2, kv.Value)
		})
	}
}

func (e *encoder) opsets(num protowire.Number, ids []OperatorSetID) {
	for _, id := range ids {
		e.message(num, func(s *encoder) {
			s.str(1, id.Domain)
			s.varintAlways(2, id.Version)
		})
	}
}

func (e *encoder) writeModelProto(m *ModelProto) {
	e.varint(1, m.IRVersion)
	e.str(2, m.ProducerName)
	e.str(3, m.ProducerVersion)
	e.str(4, m.Domain)
	e.varint(5, m.ModelVersion)
	e.str(6, m.DocString)
	if m.Graph != nil {
		e.message(7, func(s *encoder) { s.writeGraphProto(m.Graph) })
	}
	e.opsets(8, m.OpsetImport)
	e.metadata(14, m.MetadataProps)
	for i := range m.Functions {
		e.message(25, func(s *encoder) { s.writeFunctionProto(&m.Functions[i]) })
	}
}

func (e *encoder) writeGraphProto(g *GraphProto) {
	for i := range g.Nodes {
		e.message(1, func(s *encoder) { s.writeNodeProto(&g.Nodes[i]) })
	}
	e.str(2, g.Name)
	for i := range g.Initializers {
		e.message(5, func(s *encoder) { s.writeTensorProto(&g.Initializers[i]) })
	}
	e.str(10, g.DocString)
	e.valueInfos(11, g.Inputs)
	e.valueInfos(12, g.Outputs)
	e.valueInfos(13, g.ValueInfo)
	e.metadata(16, g.MetadataProps)
}

func (e *encoder) writeNodeProto(n *NodeProto) {
	e.strs(1, n.Inputs)
	e.strs(2, n.Outputs)
	e.str(3, n.Name)
	e.str(4, n.OpType)
	for i := range n.Attributes {
		e.message(5, func(s *encoder) { s.writeAttributeProto(&n.Attributes[i]) })
	}
	e.str(6, n.DocString)
	e.str(7, n.Domain)
	e.str(8, n.Overload)
	e.metadata(9, n.MetadataProps)
}

func (e *encoder) writeFunctionProto(f *FunctionProto) {
	e.str(1, f.Name)
	e.strs(4, f.Inputs)
	e.strs(5, f.Outputs)
	e.strs(6, f.Attribute)
	for i := range f.Nodes {
		e.message(7, func(s *encoder) { s.writeNodeProto(&f.Nodes[i]) })
	}
	e.str(8, f.DocString)
	e.opsets(9, f.OpsetImport)
	e.str(10, f.Domain)
	for i := range f.AttributeProto {
		e.message(11, func(s *encoder) { s.writeAttributeProto(&f.AttributeProto[i]) })
	}
	e.valueInfos(12, f.ValueInfo)
	e.str(13, f.Overload)
	e.metadata(14, f.MetadataProps)
}

func (e *encoder) writeTensorProto(t *TensorProto) {
	e.packedInt64s(1, t.Dims)
	e.varintAlways(2, int64(t.DataType))
	e.packedFloat32s(4, t.FloatData)
	e.packedVarints(5, len(t.Int32Data), func(i int) uint64 { return uint64(int64(t.Int32Data[i])) }) //nolint:gosec // G115: sign extension.
	for _, s := range t.StringData {
		e.bytes(6, s)
	}
	e.packedInt64s(7, t.Int64Data)
	e.str(8, t.Name)
	if t.RawData != nil {
		e.bytes(9, t.RawData)
	}
	e.packedFloat64s(10, t.DoubleData)
	e.packedVarints(11, len(t.Uint64Data), func(i int) uint64 { return t.Uint64Data[i] })
	e.str(12, t.DocString)
}

func (e *encoder) valueInfos(num protowire.Number, vis []ValueInfoProto) {
	for i := range vis {
		vi := &vis[i]
		e.message(num, func(s *encoder) {
			s.str(1, vi.Name)
			if vi.Type != nil && vi.Type.TensorType != nil {
				s.message(2, func(t *encoder) {
					t.message(1, func(tt *encoder) { tt.writeTensorTypeProto(vi.Type.TensorType) })
				})
			}
			s.str(3, vi.DocString)
			s.metadata(4, vi.MetadataProps)
		})
	}
}

func (e *encoder) writeTensorTypeProto(t *TensorTypeProto) {
	e.varintAlways(1, int64(t.ElemType))
	if t.Shape == nil {
		return
	}
	e.message(2, func(s *encoder) {
		for _, d := range t.Shape.Dims {
			s.message(1, func(dim *encoder) {
				if d.DimParam != "" {
					dim.str(2, d.DimParam)
				} else {
					dim.varintAlways(1, d.DimValue)
				}
			})
		}
	})
}

func (e *encoder) writeAttributeProto(a *AttributeProto) {
	e.str(1, a.Name)
	if a.RefAttrName == "" {
		switch a.Type {
		case AttributeProtoFloat:
			e.float32Always(2, a.F)
		case AttributeProtoInt:
			e.varintAlways(3, a.I)
		case AttributeProtoString:
			e.bytes(4, a.S)
		case AttributeProtoTensor:
			if a.T != nil {
				e.message(5, func(s *encoder) { s.writeTensorProto(a.T) })
			}
		case AttributeProtoGraph:
			if a.G != nil {
				e.message(6, func(s *encoder) { s.writeGraphProto(a.G) })
			}
		case AttributeProtoFloats:
			e.packedFloat32s(7, a.Floats)
		case AttributeProtoInts:
			e.packedInt64s(8, a.Ints)
		case AttributeProtoStrings:
			for _, s := range a.Strings {
				e.bytes(9, s)
			}
		case AttributeProtoTensors:
			for i := range a.Tensors {
				e.message(10, func(s *encoder) { s.writeTensorProto(&a.Tensors[i]) })
			}
		case AttributeProtoGraphs:
			for i := range a.Graphs {
				e.message(11, func(s *encoder) { s.writeGraphProto(&a.Graphs[i]) })
			}
		}
	}
	e.str(13, a.DocString)
	e.varintAlways(20, int64(a.Type))
	e.str(21, a.RefAttrName)
}
