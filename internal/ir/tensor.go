package ir

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tensor is a constant payload attached to a Value or carried by a Tensor attribute.
//
// A Tensor is treated as immutable once built: cloning shares it by pointer
// instead of copying the data.
type Tensor struct {
	Name      string
	DType     DataType
	Dims      []int64
	Raw       []byte   // little-endian element data for numeric types
	Strings   []string // element data for String tensors
	DocString string
}

// NewTensor creates a tensor over raw little-endian data.
func NewTensor(name string, dtype DataType, dims []int64, raw []byte) *Tensor {
	return &Tensor{Name: name, DType: dtype, Dims: dims, Raw: raw}
}

// TensorFromFloat32 encodes data as a Float32 tensor.
func TensorFromFloat32(name string, dims []int64, data []float32) *Tensor {
	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return NewTensor(name, Float32, dims, raw)
}

// TensorFromInt64 encodes data as an Int64 tensor.
func TensorFromInt64(name string, dims []int64, data []int64) *Tensor {
	raw := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(raw[8*i:], uint64(v)) //nolint:gosec // G115: bit reinterpretation.
	}
	return NewTensor(name, Int64, dims, raw)
}

// NumElements returns the product of the dimensions (1 for scalars).
func (t *Tensor) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// Float32s decodes the payload of a Float32 tensor.
func (t *Tensor) Float32s() ([]float32, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("tensor %q has type %s, not float32", t.Name, t.DType)
	}
	if len(t.Raw)%4 != 0 {
		return nil, fmt.Errorf("tensor %q: raw data length %d is not a multiple of 4", t.Name, len(t.Raw))
	}
	out := make([]float32, len(t.Raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.Raw[4*i:]))
	}
	return out, nil
}

// Int64s decodes the payload of an Int64 tensor.
func (t *Tensor) Int64s() ([]int64, error) {
	if t.DType != Int64 {
		return nil, fmt.Errorf("tensor %q has type %s, not int64", t.Name, t.DType)
	}
	if len(t.Raw)%8 != 0 {
		return nil, fmt.Errorf("tensor %q: raw data length %d is not a multiple of 8", t.Name, len(t.Raw))
	}
	out := make([]int64, len(t.Raw)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(t.Raw[8*i:])) //nolint:gosec // G115: bit reinterpretation.
	}
	return out, nil
}

func (t *Tensor) String() string {
	dims := make([]string, len(t.Dims))
	for i, d := range t.Dims {
		dims[i] = strconv.FormatInt(d, 10)
	}
	return fmt.Sprintf("Tensor<%s,[%s]>(name=%q)", t.DType, strings.Join(dims, ","), t.Name)
}

// TensorType is the type of a tensor-valued Value.
type TensorType struct {
	Elem DataType
}

func (t *TensorType) String() string {
	if t == nil {
		return "?"
	}
	return "tensor(" + t.Elem.String() + ")"
}

// Dim is one dimension of a Shape: either a static size or a symbolic name.
type Dim struct {
	Value int64
	Param string
}

// IsStatic reports whether the dimension has a known size.
func (d Dim) IsStatic() bool {
	return d.Param == ""
}

func (d Dim) String() string {
	if d.Param != "" {
		return d.Param
	}
	return strconv.FormatInt(d.Value, 10)
}

// Shape is the (possibly symbolic) shape of a Value.
type Shape struct {
	Dims []Dim
}

// NewShape creates a static shape.
func NewShape(dims ...int64) *Shape {
	s := &Shape{Dims: make([]Dim, len(dims))}
	for i, d := range dims {
		s.Dims[i] = Dim{Value: d}
	}
	return s
}

// Rank returns the number of dimensions.
func (s *Shape) Rank() int {
	return len(s.Dims)
}

// Copy returns an independent copy of the shape. Copy of nil is nil.
func (s *Shape) Copy() *Shape {
	if s == nil {
		return nil
	}
	return &Shape{Dims: append([]Dim(nil), s.Dims...)}
}

func (s *Shape) String() string {
	if s == nil {
		return "?"
	}
	parts := make([]string, len(s.Dims))
	for i, d := range s.Dims {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}
