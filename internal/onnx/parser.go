package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ParseFile parses an ONNX model from file.
//
//nolint:gosec // G304: the path is provided by the user.
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from bytes.
func Parse(data []byte) (*ModelProto, error) {
	p := &parser{data: data}
	model := &ModelProto{}
	if err := p.readModelProto(model); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return model, nil
}

// parser is a minimal protobuf wire format decoder.
type parser struct {
	data []byte
	pos  int
}

// Protobuf wire types.
const (
	wireVarint = 0
	wire64Bit  = 1
	wireBytes  = 2
	wire32Bit  = 5
)

// fields calls fn for every field tag until the message is exhausted.
// fn must consume the field payload, typically via skipField for unknown fields.
func (p *parser) fields(fn func(field, wire int) error) error {
	for p.pos < len(p.data) {
		field, wire, err := p.readTag()
		if err != nil {
			return err
		}
		if err := fn(field, wire); err != nil {
			return fmt.Errorf("field %d: %w", field, err)
		}
	}
	return nil
}

// embedded decodes a length-delimited sub-message with read.
func embedded[T any](p *parser, read func(*parser, *T) error) (T, error) {
	var msg T
	data, err := p.readBytes()
	if err != nil {
		return msg, err
	}
	err = read(&parser{data: data}, &msg)
	return msg, err
}

// appendEmbedded decodes a sub-message and appends it to dst.
func appendEmbedded[T any](p *parser, dst *[]T, read func(*parser, *T) error) error {
	msg, err := embedded(p, read)
	if err != nil {
		return err
	}
	*dst = append(*dst, msg)
	return nil
}

func (p *parser) readModelProto(m *ModelProto) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			m.IRVersion, err = p.readVarint()
		case 2:
			m.ProducerName, err = p.readString()
		case 3:
			m.ProducerVersion, err = p.readString()
		case 4:
			m.Domain, err = p.readString()
		case 5:
			m.ModelVersion, err = p.readVarint()
		case 6:
			m.DocString, err = p.readString()
		case 7:
			var g GraphProto
			g, err = embedded(p, (*parser).readGraphProto)
			m.Graph = &g
		case 8:
			err = appendEmbedded(p, &m.OpsetImport, (*parser).readOperatorSetID)
		case 14:
			err = appendEmbedded(p, &m.MetadataProps, (*parser).readStringStringEntry)
		case 25:
			err = appendEmbedded(p, &m.Functions, (*parser).readFunctionProto)
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

func (p *parser) readGraphProto(m *GraphProto) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			err = appendEmbedded(p, &m.Nodes, (*parser).readNodeProto)
		case 2:
			m.Name, err = p.readString()
		case 5:
			err = appendEmbedded(p, &m.Initializers, (*parser).readTensorProto)
		case 10:
			m.DocString, err = p.readString()
		case 11:
			err = appendEmbedded(p, &m.Inputs, (*parser).readValueInfoProto)
		case 12:
			err = appendEmbedded(p, &m.Outputs, (*parser).readValueInfoProto)
		case 13:
			err = appendEmbedded(p, &m.ValueInfo, (*parser).readValueInfoProto)
		case 16:
			err = appendEmbedded(p, &m.MetadataProps, (*parser).readStringStringEntry)
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

func (p *parser) readNodeProto(m *NodeProto) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			err = p.appendString(&m.Inputs)
		case 2:
			err = p.appendString(&m.Outputs)
		case 3:
			m.Name, err = p.readString()
		case 4:
			m.OpType, err = p.readString()
		case 5:
			err = appendEmbedded(p, &m.Attributes, (*parser).readAttributeProto)
		case 6:
			m.DocString, err = p.readString()
		case 7:
			m.Domain, err = p.readString()
		case 8:
			m.Overload, err = p.readString()
		case 9:
			err = appendEmbedded(p, &m.MetadataProps, (*parser).readStringStringEntry)
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

func (p *parser) readFunctionProto(m *FunctionProto) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			m.Name, err = p.readString()
		case 4:
			err = p.appendString(&m.Inputs)
		case 5:
			err = p.appendString(&m.Outputs)
		case 6:
			err = p.appendString(&m.Attribute)
		case 7:
			err = appendEmbedded(p, &m.Nodes, (*parser).readNodeProto)
		case 8:
			m.DocString, err = p.readString()
		case 9:
			err = appendEmbedded(p, &m.OpsetImport, (*parser).readOperatorSetID)
		case 10:
			m.Domain, err = p.readString()
		case 11:
			err = appendEmbedded(p, &m.AttributeProto, (*parser).readAttributeProto)
		case 12:
			err = appendEmbedded(p, &m.ValueInfo, (*parser).readValueInfoProto)
		case 13:
			m.Overload, err = p.readString()
		case 14:
			err = appendEmbedded(p, &m.MetadataProps, (*parser).readStringStringEntry)
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

func (p *parser) readTensorProto(m *TensorProto) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			err = p.readVarints(wire, func(v uint64) { m.Dims = append(m.Dims, int64(v)) }) //nolint:gosec // G115: dims are int64 on the wire.
		case 2:
			m.DataType, err = p.readInt32()
		case 4:
			err = p.readFixed32s(wire, func(v uint32) { m.FloatData = append(m.FloatData, math.Float32frombits(v)) })
		case 5:
			err = p.readVarints(wire, func(v uint64) { m.Int32Data = append(m.Int32Data, int32(v)) }) //nolint:gosec // G115: int32 field.
		case 6:
			var s []byte
			s, err = p.readBytes()
			m.StringData = append(m.StringData, s)
		case 7:
			err = p.readVarints(wire, func(v uint64) { m.Int64Data = append(m.Int64Data, int64(v)) }) //nolint:gosec // G115: int64 field.
		case 8:
			m.Name, err = p.readString()
		case 9:
			m.RawData, err = p.readBytes()
		case 10:
			err = p.readFixed64s(wire, func(v uint64) { m.DoubleData = append(m.DoubleData, math.Float64frombits(v)) })
		case 11:
			err = p.readVarints(wire, func(v uint64) { m.Uint64Data = append(m.Uint64Data, v) })
		case 12:
			m.DocString, err = p.readString()
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

func (p *parser) readValueInfoProto(m *ValueInfoProto) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			m.Name, err = p.readString()
		case 2:
			var t TypeProto
			t, err = embedded(p, (*parser).readTypeProto)
			m.Type = &t
		case 3:
			m.DocString, err = p.readString()
		case 4:
			err = appendEmbedded(p, &m.MetadataProps, (*parser).readStringStringEntry)
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

func (p *parser) readTypeProto(m *TypeProto) error {
	return p.fields(func(field, wire int) (err error) {
		if field != 1 {
			return p.skipField(wire)
		}
		var t TensorTypeProto
		t, err = embedded(p, (*parser).readTensorTypeProto)
		m.TensorType = &t
		return err
	})
}

func (p *parser) readTensorTypeProto(m *TensorTypeProto) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			m.ElemType, err = p.readInt32()
		case 2:
			var s TensorShapeProto
			s, err = embedded(p, (*parser).readTensorShapeProto)
			m.Shape = &s
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

func (p *parser) readTensorShapeProto(m *TensorShapeProto) error {
	return p.fields(func(field, wire int) error {
		if field != 1 {
			return p.skipField(wire)
		}
		return appendEmbedded(p, &m.Dims, (*parser).readDimensionProto)
	})
}

func (p *parser) readDimensionProto(m *DimensionProto) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			m.DimValue, err = p.readVarint()
		case 2:
			m.DimParam, err = p.readString()
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

func (p *parser) readAttributeProto(m *AttributeProto) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			m.Name, err = p.readString()
		case 2:
			m.F, err = p.readFloat32()
		case 3:
			m.I, err = p.readVarint()
		case 4:
			m.S, err = p.readBytes()
		case 5:
			var t TensorProto
			t, err = embedded(p, (*parser).readTensorProto)
			m.T = &t
		case 6:
			var g GraphProto
			g, err = embedded(p, (*parser).readGraphProto)
			m.G = &g
		case 7:
			err = p.readFixed32s(wire, func(v uint32) { m.Floats = append(m.Floats, math.Float32frombits(v)) })
		case 8:
			err = p.readVarints(wire, func(v uint64) { m.Ints = append(m.Ints, int64(v)) }) //nolint:gosec // G115: int64 field.
		case 9:
			var s []byte
			s, err = p.readBytes()
			m.Strings = append(m.Strings, s)
		case 10:
			err = appendEmbedded(p, &m.Tensors, (*parser).readTensorProto)
		case 11:
			err = appendEmbedded(p, &m.Graphs, (*parser).readGraphProto)
		case 13:
			m.DocString, err = p.readString()
		case 20:
			m.Type, err = p.readInt32()
		case 21:
			m.RefAttrName, err = p.readString()
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

func (p *parser) readOperatorSetID(m *OperatorSetID) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			m.Domain, err = p.readString()
		case 2:
			m.Version, err = p.readVarint()
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

func (p *parser) readStringStringEntry(m *StringStringEntry) error {
	return p.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			m.Key, err = p.readString()
		case 2:
			m.Value, err = p.readString()
		default:
			err = p.skipField(wire)
		}
		return err
	})
}

// readTag reads a protobuf field tag.
func (p *parser) readTag() (fieldNum, wireType int, err error) {
	tag, err := p.readUvarint()
	if err != nil {
		return 0, 0, err
	}
	return int(tag >> 3), int(tag & 0x7), nil //nolint:gosec // G115: field numbers fit in int.
}

// readUvarint reads a base-128 varint.
func (p *parser) readUvarint() (uint64, error) {
	var result uint64
	for shift := uint(0); ; shift += 7 {
		if shift >= 64 {
			return 0, errors.New("varint overflow")
		}
		if p.pos >= len(p.data) {
			return 0, io.ErrUnexpectedEOF
		}
		b := p.data[p.pos]
		p.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
	}
}

// readVarint reads a varint-encoded int64.
func (p *parser) readVarint() (int64, error) {
	v, err := p.readUvarint()
	return int64(v), err //nolint:gosec // G115: two's complement reinterpretation.
}

// readInt32 reads a varint-encoded int32.
func (p *parser) readInt32() (int32, error) {
	v, err := p.readUvarint()
	return int32(v), err //nolint:gosec // G115: negative int32 values are sign-extended on the wire.
}

// readBytes reads a length-delimited byte slice. The result aliases the input.
func (p *parser) readBytes() ([]byte, error) {
	length, err := p.readUvarint()
	if err != nil {
		return nil, err
	}
	if length > uint64(len(p.data)-p.pos) {
		return nil, io.ErrUnexpectedEOF
	}
	end := p.pos + int(length) //nolint:gosec // G115: bounded by len(p.data) above.
	result := p.data[p.pos:end]
	p.pos = end
	return result, nil
}

func (p *parser) readString() (string, error) {
	b, err := p.readBytes()
	return string(b), err
}

func (p *parser) appendString(dst *[]string) error {
	s, err := p.readString()
	if err != nil {
		return err
	}
	*dst = append(*dst, s)
	return nil
}

// readFloat32 reads a fixed 32-bit float.
func (p *parser) readFloat32() (float32, error) {
	v, err := p.readFixed32()
	return math.Float32frombits(v), err
}

func (p *parser) readFixed32() (uint32, error) {
	if p.pos+4 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return v, nil
}

func (p *parser) readFixed64() (uint64, error) {
	if p.pos+8 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(p.data[p.pos:])
	p.pos += 8
	return v, nil
}

// readVarints reads a repeated varint field in packed or unpacked form.
func (p *parser) readVarints(wire int, add func(uint64)) error {
	if wire != wireBytes {
		v, err := p.readUvarint()
		if err == nil {
			add(v)
		}
		return err
	}
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	sub := &parser{data: data}
	for sub.pos < len(sub.data) {
		v, err := sub.readUvarint()
		if err != nil {
			return err
		}
		add(v)
	}
	return nil
}

// readFixed32s reads a repeated fixed32 field in packed or unpacked form.
func (p *parser) readFixed32s(wire int, add func(uint32)) error {
	if wire != wireBytes {
		v, err := p.readFixed32()
		if err == nil {
			add(v)
		}
		return err
	}
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	if len(data)%4 != 0 {
		return fmt.Errorf("packed fixed32 length %d is not a multiple of 4", len(data))
	}
	for i := 0; i < len(data); i += 4 {
		add(binary.LittleEndian.Uint32(data[i:]))
	}
	return nil
}

// readFixed64s reads a repeated fixed64 field in packed or unpacked form.
func (p *parser) readFixed64s(wire int, add func(uint64)) error {
	if wire != wireBytes {
		v, err := p.readFixed64()
		if err == nil {
			add(v)
		}
		return err
	}
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	if len(data)%8 != 0 {
		return fmt.Errorf("packed fixed64 length %d is not a multiple of 8", len(data))
	}
	for i := 0; i < len(data); i += 8 {
		add(binary.LittleEndian.Uint64(data[i:]))
	}
	return nil
}

// skipField skips a field based on wire type.
func (p *parser) skipField(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := p.readUvarint()
		return err
	case wire64Bit:
		_, err := p.readFixed64()
		return err
	case wireBytes:
		_, err := p.readBytes()
		return err
	case wire32Bit:
		_, err := p.readFixed32()
		return err
	default:
		return fmt.Errorf("unknown wire type: %d", wireType)
	}
}
