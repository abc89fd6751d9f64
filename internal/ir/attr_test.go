package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrKinds(t *testing.T) {
	tests := []struct {
		name string
		attr *Attr
		typ  AttrType
		want any
	}{
		{"float", AttrFloat32("alpha", 0.5), AttrFloat, float32(0.5)},
		{"int", AttrInt64("axis", -1), AttrInt, int64(-1)},
		{"string", AttrStr("mode", "constant"), AttrString, "constant"},
		{"ints", AttrInt64s("perm", []int64{1, 0}), AttrInts, []int64{1, 0}},
		{"strings", AttrStrs("names", []string{"a"}), AttrStrings, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.attr.Type())
			assert.False(t, tt.attr.IsRef())
			assert.Equal(t, tt.want, tt.attr.Value())
		})
	}
}

func TestRefAttr(t *testing.T) {
	a := RefAttr("alpha", "scale", AttrFloat)
	assert.True(t, a.IsRef())
	assert.Equal(t, "scale", a.RefName())
	assert.Equal(t, AttrFloat, a.Type())
	assert.Nil(t, a.Value())
	assert.Equal(t, "alpha=@scale", a.String())
}

func TestAttrRenamedSharesPayload(t *testing.T) {
	tensor := TensorFromInt64("shape", []int64{2}, []int64{3, 4})
	a := AttrTensorValue("value", tensor)
	b := a.Renamed("other")

	assert.Equal(t, "other", b.Name())
	assert.Equal(t, "value", a.Name())
	assert.Same(t, tensor, b.AsTensor())
}

func TestAttrAccessorsOnMismatch(t *testing.T) {
	a := AttrInt64("axis", 1)
	assert.Zero(t, a.AsFloat())
	assert.Nil(t, a.AsGraph())
	assert.Nil(t, a.AsGraphs())
	assert.Equal(t, int64(1), a.AsInt())
}

func TestAttributesOrder(t *testing.T) {
	attrs := NewAttributes(AttrInt64("b", 1), AttrInt64("a", 2))
	attrs.Set(AttrInt64("c", 3))
	attrs.Set(AttrInt64("b", 4))

	assert.Equal(t, []string{"b", "a", "c"}, attrs.Names())
	b, ok := attrs.Get("b")
	require.True(t, ok)
	assert.Equal(t, int64(4), b.AsInt())

	assert.True(t, attrs.Delete("a"))
	assert.False(t, attrs.Delete("a"))
	assert.Equal(t, []string{"b", "c"}, attrs.Names())
	assert.Equal(t, 2, attrs.Len())
}

func TestAttrTypeIsGraph(t *testing.T) {
	assert.True(t, AttrGraph.IsGraph())
	assert.True(t, AttrGraphs.IsGraph())
	assert.False(t, AttrTensor.IsGraph())
}
