package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphir/internal/ir"
)

func TestImplicitUsage(t *testing.T) {
	x := ir.NewValue("x")
	w := ir.NewValue("w")
	cond := ir.NewValue("cond")

	// innermost branch reads x from main and its own local value
	local := ir.NewNode("", "Neg", []*ir.Value{w}, nil)
	inner := ir.NewNode("", "Add", []*ir.Value{x, local.Output(0)}, nil)
	innerGraph, err := ir.NewGraph(nil, []*ir.Value{inner.Output(0)}, []*ir.Node{local, inner}, ir.WithGraphName("inner"))
	require.NoError(t, err)

	// loop body declares w as an input and hosts the branch
	ifNode := ir.NewNode("", "If", []*ir.Value{cond}, []*ir.Attr{ir.AttrGraphValue("then_branch", innerGraph)})
	body, err := ir.NewGraph([]*ir.Value{w}, []*ir.Value{ifNode.Output(0)}, []*ir.Node{ifNode}, ir.WithGraphName("body"))
	require.NoError(t, err)

	loop := ir.NewNode("", "Loop", nil, []*ir.Attr{ir.AttrGraphValue("body", body)})
	empty, err := ir.NewGraph(nil, nil, nil, ir.WithGraphName("empty"))
	require.NoError(t, err)
	other := ir.NewNode("", "If", []*ir.Value{cond}, []*ir.Attr{ir.AttrGraphValues("branches", []*ir.Graph{empty})})
	main, err := ir.NewGraph([]*ir.Value{x, cond}, []*ir.Value{loop.Output(0)}, []*ir.Node{loop, other}, ir.WithGraphName("main"))
	require.NoError(t, err)

	usages := ImplicitUsage(main)
	require.Len(t, usages, 3)
	assert.NotContains(t, usages, main)

	assert.ElementsMatch(t, []*ir.Value{x, w}, usages[innerGraph].Slice())
	assert.ElementsMatch(t, []*ir.Value{x, cond}, usages[body].Slice())
	assert.Equal(t, 0, usages[empty].Size())

	assert.Equal(t, []*ir.Value{w, x}, Captures(main, innerGraph))
	assert.Nil(t, Captures(main, main))
}
