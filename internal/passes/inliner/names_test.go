package inliner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphir/internal/ir"
)

func TestNamerUnique(t *testing.T) {
	n := NewNamer()
	assert.Equal(t, "a", n.NodeName("a"))
	assert.Equal(t, "a_2", n.NodeName("a"))
	assert.Equal(t, "a_3", n.NodeName("a"))
	// node and value names are independent
	assert.Equal(t, "a", n.ValueName("a"))
}

func TestNamerSeed(t *testing.T) {
	x := ir.NewValue("x")
	w := ir.NewValue("w")
	w.ConstValue = ir.TensorFromFloat32("w", []int64{1}, []float32{1})
	relu := ir.NewNode("", "Relu", []*ir.Value{x}, nil, ir.WithNodeName("relu"))
	relu.Output(0).SetName("y")
	g, err := ir.NewGraph([]*ir.Value{x}, []*ir.Value{relu.Output(0)}, []*ir.Node{relu}, ir.WithInitializers(w))
	require.NoError(t, err)

	n := NewNamer()
	n.Seed(g)
	for _, name := range []string{"x", "w", "y"} {
		assert.True(t, n.ValueNameUsed(name), name)
	}
	assert.True(t, n.NodeNameUsed("relu"))
	assert.Equal(t, "relu_2", n.NodeName("relu"))
	assert.Equal(t, "x_2", n.ValueName("x"))
}

func TestAbbreviate(t *testing.T) {
	ids := []ir.OperatorIdentifier{
		{Domain: "a", Name: "F"},
		{Domain: "b", Name: "F"},
		{Domain: "a", Name: "G", Overload: "v2"},
	}
	got := Abbreviate(ids)
	assert.Equal(t, "a_F", got[ids[0]])
	assert.Equal(t, "b_F", got[ids[1]])
	assert.Equal(t, "G_v2", got[ids[2]])
}

func TestDetectFunctionCyclesAcyclic(t *testing.T) {
	m := newModel(t, mainGraph(t, "G"), addMulFunction(t, "F", nil), callerFunction(t, "G", "F", "F"))
	assert.Nil(t, DetectFunctionCycles(m))
}

func TestDetectFunctionCyclesLongChain(t *testing.T) {
	m := newModel(t, mainGraph(t),
		callerFunction(t, "A", "B"),
		callerFunction(t, "B", "C"),
		callerFunction(t, "C", "B"),
	)
	assert.Equal(t, []ir.OperatorIdentifier{fid("B"), fid("C"), fid("B")}, DetectFunctionCycles(m))
}
