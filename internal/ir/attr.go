package ir

import (
	"fmt"
	"iter"
	"slices"
)

// AttrType identifies the payload kind of an Attr. Values follow the ONNX
// AttributeProto.AttributeType enumeration.
type AttrType int32

// Attribute payload kinds.
const (
	AttrUndefined AttrType = 0
	AttrFloat     AttrType = 1
	AttrInt       AttrType = 2
	AttrString    AttrType = 3
	AttrTensor    AttrType = 4
	AttrGraph     AttrType = 5
	AttrFloats    AttrType = 6
	AttrInts      AttrType = 7
	AttrStrings   AttrType = 8
	AttrTensors   AttrType = 9
	AttrGraphs    AttrType = 10
)

// IsGraph reports whether the kind carries one or more subgraphs.
func (t AttrType) IsGraph() bool {
	return t == AttrGraph || t == AttrGraphs
}

func (t AttrType) String() string {
	switch t {
	case AttrFloat:
		return "FLOAT"
	case AttrInt:
		return "INT"
	case AttrString:
		return "STRING"
	case AttrTensor:
		return "TENSOR"
	case AttrGraph:
		return "GRAPH"
	case AttrFloats:
		return "FLOATS"
	case AttrInts:
		return "INTS"
	case AttrStrings:
		return "STRINGS"
	case AttrTensors:
		return "TENSORS"
	case AttrGraphs:
		return "GRAPHS"
	default:
		return "UNDEFINED"
	}
}

// Attr is a named node attribute.
//
// An Attr is either concrete, holding a payload of kind Type, or a reference
// to an attribute parameter of the enclosing function, holding only the
// parameter name. References are legal only inside function bodies and are
// resolved when the function is inlined.
type Attr struct {
	name      string
	typ       AttrType
	refName   string
	value     any
	DocString string
}

// AttrFloat32 creates a FLOAT attribute.
func AttrFloat32(name string, v float32) *Attr {
	return &Attr{name: name, typ: AttrFloat, value: v}
}

// AttrInt64 creates an INT attribute.
func AttrInt64(name string, v int64) *Attr {
	return &Attr{name: name, typ: AttrInt, value: v}
}

// AttrStr creates a STRING attribute.
func AttrStr(name, v string) *Attr {
	return &Attr{name: name, typ: AttrString, value: v}
}

// AttrTensorValue creates a TENSOR attribute.
func AttrTensorValue(name string, t *Tensor) *Attr {
	return &Attr{name: name, typ: AttrTensor, value: t}
}

// AttrGraphValue creates a GRAPH attribute.
func AttrGraphValue(name string, g *Graph) *Attr {
	return &Attr{name: name, typ: AttrGraph, value: g}
}

// AttrFloat32s creates a FLOATS attribute.
func AttrFloat32s(name string, v []float32) *Attr {
	return &Attr{name: name, typ: AttrFloats, value: v}
}

// AttrInt64s creates an INTS attribute.
func AttrInt64s(name string, v []int64) *Attr {
	return &Attr{name: name, typ: AttrInts, value: v}
}

// AttrStrs creates a STRINGS attribute.
func AttrStrs(name string, v []string) *Attr {
	return &Attr{name: name, typ: AttrStrings, value: v}
}

// AttrTensorValues creates a TENSORS attribute.
func AttrTensorValues(name string, v []*Tensor) *Attr {
	return &Attr{name: name, typ: AttrTensors, value: v}
}

// AttrGraphValues creates a GRAPHS attribute.
func AttrGraphValues(name string, v []*Graph) *Attr {
	return &Attr{name: name, typ: AttrGraphs, value: v}
}

// RefAttr creates a reference attribute bound to the enclosing function's
// attribute parameter refName.
func RefAttr(name, refName string, typ AttrType) *Attr {
	return &Attr{name: name, typ: typ, refName: refName}
}

// Name returns the attribute name.
func (a *Attr) Name() string { return a.name }

// Type returns the payload kind (the declared kind for references).
func (a *Attr) Type() AttrType { return a.typ }

// IsRef reports whether the attribute is a reference.
func (a *Attr) IsRef() bool { return a.refName != "" }

// RefName returns the referenced parameter name, or "" for concrete attributes.
func (a *Attr) RefName() string { return a.refName }

// Value returns the raw payload; nil for references.
func (a *Attr) Value() any { return a.value }

// Renamed returns a copy of a under a new name sharing the same payload.
func (a *Attr) Renamed(name string) *Attr {
	c := *a
	c.name = name
	return &c
}

// The accessors below return the zero value when the kind does not match.

// AsFloat returns the FLOAT payload.
func (a *Attr) AsFloat() float32 {
	v, _ := a.value.(float32)
	return v
}

// AsInt returns the INT payload.
func (a *Attr) AsInt() int64 {
	v, _ := a.value.(int64)
	return v
}

// AsString returns the STRING payload.
func (a *Attr) AsString() string {
	v, _ := a.value.(string)
	return v
}

// AsTensor returns the TENSOR payload.
func (a *Attr) AsTensor() *Tensor {
	v, _ := a.value.(*Tensor)
	return v
}

// AsGraph returns the GRAPH payload.
func (a *Attr) AsGraph() *Graph {
	v, _ := a.value.(*Graph)
	return v
}

// AsFloats returns the FLOATS payload.
func (a *Attr) AsFloats() []float32 {
	v, _ := a.value.([]float32)
	return v
}

// AsInts returns the INTS payload.
func (a *Attr) AsInts() []int64 {
	v, _ := a.value.([]int64)
	return v
}

// AsStrings returns the STRINGS payload.
func (a *Attr) AsStrings() []string {
	v, _ := a.value.([]string)
	return v
}

// AsTensors returns the TENSORS payload.
func (a *Attr) AsTensors() []*Tensor {
	v, _ := a.value.([]*Tensor)
	return v
}

// AsGraphs returns the GRAPHS payload.
func (a *Attr) AsGraphs() []*Graph {
	v, _ := a.value.([]*Graph)
	return v
}

func (a *Attr) String() string {
	if a.IsRef() {
		return fmt.Sprintf("%s=@%s", a.name, a.refName)
	}
	switch a.typ {
	case AttrGraph:
		g := a.AsGraph()
		if g == nil {
			return a.name + "=<graph>"
		}
		return fmt.Sprintf("%s=<graph %q>", a.name, g.Name)
	case AttrGraphs:
		return fmt.Sprintf("%s=<%d graphs>", a.name, len(a.AsGraphs()))
	default:
		return fmt.Sprintf("%s=%v", a.name, a.value)
	}
}

// Attributes is an insertion-ordered map from name to Attr.
type Attributes struct {
	order []string
	m     map[string]*Attr
}

// NewAttributes builds an attribute map; later entries replace earlier ones with the same name.
func NewAttributes(attrs ...*Attr) *Attributes {
	a := &Attributes{m: make(map[string]*Attr, len(attrs))}
	for _, attr := range attrs {
		a.Set(attr)
	}
	return a
}

// Len returns the number of attributes.
func (a *Attributes) Len() int { return len(a.order) }

// Get looks up an attribute by name.
func (a *Attributes) Get(name string) (*Attr, bool) {
	attr, ok := a.m[name]
	return attr, ok
}

// Set adds or replaces the attribute under attr.Name().
func (a *Attributes) Set(attr *Attr) {
	if _, ok := a.m[attr.name]; !ok {
		a.order = append(a.order, attr.name)
	}
	a.m[attr.name] = attr
}

// Delete removes the named attribute and reports whether it was present.
func (a *Attributes) Delete(name string) bool {
	if _, ok := a.m[name]; !ok {
		return false
	}
	delete(a.m, name)
	a.order = slices.DeleteFunc(a.order, func(n string) bool { return n == name })
	return true
}

// Names returns attribute names in insertion order.
func (a *Attributes) Names() []string {
	return slices.Clone(a.order)
}

// List returns the attributes in insertion order.
func (a *Attributes) List() []*Attr {
	out := make([]*Attr, len(a.order))
	for i, name := range a.order {
		out[i] = a.m[name]
	}
	return out
}

// All iterates over name/attribute pairs in insertion order.
func (a *Attributes) All() iter.Seq2[string, *Attr] {
	return func(yield func(string, *Attr) bool) {
		for _, name := range a.order {
			if !yield(name, a.m[name]) {
				return
			}
		}
	}
}
