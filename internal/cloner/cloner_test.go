package cloner

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphir/internal/ir"
)

// addMulGraph builds y = Mul(Add(x, x), w) with w an initializer.
func addMulGraph(t *testing.T) *ir.Graph {
	t.Helper()
	x := ir.NewValue("x")
	x.Type = &ir.TensorType{Elem: ir.Float32}
	x.Shape = ir.NewShape(2, 3)
	w := ir.NewValue("w")
	w.ConstValue = ir.TensorFromFloat32("w", []int64{1}, []float32{2})
	add := ir.NewNode("", "Add", []*ir.Value{x, x}, nil, ir.WithNodeName("add"))
	add.Output(0).SetName("t")
	mul := ir.NewNode("", "Mul", []*ir.Value{add.Output(0), w}, nil, ir.WithNodeName("mul"))
	mul.Output(0).SetName("y")
	g, err := ir.NewGraph([]*ir.Value{x}, []*ir.Value{mul.Output(0)}, []*ir.Node{add, mul},
		ir.WithGraphName("main"), ir.WithInitializers(w), ir.WithOpsetImports(map[string]int64{"": 18}))
	require.NoError(t, err)
	return g
}

// producerIndex returns the position of v's producer in g, or -1 for inputs and initializers.
func producerIndex(g *ir.Graph, v *ir.Value) int {
	if v.Producer() == nil {
		return -1
	}
	return g.IndexOf(v.Producer())
}

func TestCloneGraphIsomorphic(t *testing.T) {
	g := addMulGraph(t)

	clone, err := New(Options{}).CloneGraph(g)
	require.NoError(t, err)

	require.Equal(t, g.Len(), clone.Len())
	for i, orig := range g.Nodes() {
		cn := clone.Node(i)
		assert.NotSame(t, orig, cn)
		assert.Equal(t, orig.OpIdentifier(), cn.OpIdentifier())
		assert.Equal(t, orig.Name(), cn.Name())
		require.Equal(t, orig.NumInputs(), cn.NumInputs())
		for j := range orig.NumInputs() {
			assert.Equal(t, producerIndex(g, orig.Input(j)), producerIndex(clone, cn.Input(j)))
			assert.NotSame(t, orig.Input(j), cn.Input(j))
		}
	}

	assert.Equal(t, "main", clone.Name)
	assert.Equal(t, map[string]int64{"": 18}, clone.OpsetImports)
	require.Len(t, clone.Inputs(), 1)
	assert.Equal(t, "x", clone.Inputs()[0].Name())
	assert.Equal(t, ir.NewShape(2, 3), clone.Inputs()[0].Shape)
	assert.Equal(t, "y", clone.Outputs()[0].Name())
	assert.Same(t, clone.Node(1).Output(0), clone.Outputs()[0])
}

func TestCloneGraphSharesConstantPayloads(t *testing.T) {
	g := addMulGraph(t)

	clone, err := New(Options{}).CloneGraph(g)
	require.NoError(t, err)

	orig, ok := g.Initializer("w")
	require.True(t, ok)
	cw, ok := clone.Initializer("w")
	require.True(t, ok)
	assert.NotSame(t, orig, cw)
	assert.Same(t, orig.ConstValue, cw.ConstValue)
}

func TestCloneNodeSubstitutesMappedInputs(t *testing.T) {
	a := ir.NewValue("a")
	b := ir.NewValue("b")
	n := ir.NewNode("", "Sub", []*ir.Value{a, b}, nil)

	a2 := ir.NewValue("a2")
	values := ValueMap{a: a2, b: nil}
	clone, err := New(Options{ValueMap: values}).CloneNode(n)
	require.NoError(t, err)

	assert.Same(t, a2, clone.Input(0))
	assert.Nil(t, clone.Input(1), "severed inputs become empty slots")
	assert.Same(t, clone.Output(0), values[n.Output(0)])
}

func TestCloneNodeKeepsEmptyInputSlots(t *testing.T) {
	x := ir.NewValue("x")
	n := ir.NewNode("", "Clip", []*ir.Value{x, nil, nil}, nil)

	clone, err := New(Options{ValueMap: ValueMap{x: x}}).CloneNode(n)
	require.NoError(t, err)
	assert.Equal(t, 3, clone.NumInputs())
	assert.Nil(t, clone.Input(1))
	assert.Nil(t, clone.Input(2))
}

// outerScopeGraph builds a main graph whose If branch reads the main input x.
func outerScopeGraph(t *testing.T) (main *ir.Graph, branch *ir.Graph, x *ir.Value) {
	t.Helper()
	x = ir.NewValue("x")
	cond := ir.NewValue("cond")
	neg := ir.NewNode("", "Neg", []*ir.Value{x}, nil, ir.WithNodeName("neg"))
	branch, err := ir.NewGraph(nil, []*ir.Value{neg.Output(0)}, []*ir.Node{neg}, ir.WithGraphName("then"))
	require.NoError(t, err)
	ifNode := ir.NewNode("", "If", []*ir.Value{cond}, []*ir.Attr{
		ir.AttrGraphValue("then_branch", branch),
		ir.AttrGraphValue("else_branch", branch),
	})
	main, err = ir.NewGraph([]*ir.Value{x, cond}, ifNode.Outputs(), []*ir.Node{ifNode}, ir.WithGraphName("main"))
	require.NoError(t, err)
	return main, branch, x
}

func TestCloneGraphOuterScopeDisallowed(t *testing.T) {
	_, branch, _ := outerScopeGraph(t)

	_, err := New(Options{}).CloneGraph(branch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedReference))
	assert.Contains(t, err.Error(), "%x")
	assert.Contains(t, err.Error(), "neg(::Neg)")
	assert.Contains(t, err.Error(), `"main"`)
	assert.Contains(t, err.Error(), "in CloneGraph(")
	assert.Contains(t, err.Error(), "in CloneNode(")
}

func TestCloneGraphOuterScopeAllowed(t *testing.T) {
	_, branch, x := outerScopeGraph(t)

	clone, err := New(Options{AllowOuterScopeValues: true}).CloneGraph(branch)
	require.NoError(t, err)
	assert.Same(t, x, clone.Node(0).Input(0), "captured values are referenced, not duplicated")
}

func TestCloneGraphResolvesClosuresThroughSharedMap(t *testing.T) {
	main, _, _ := outerScopeGraph(t)

	clone, err := New(Options{}).CloneGraph(main)
	require.NoError(t, err)

	cx := clone.Inputs()[0]
	ifClone := clone.Node(0)
	then, ok := ifClone.Attributes.Get("then_branch")
	require.True(t, ok)
	assert.Same(t, cx, then.AsGraph().Node(0).Input(0))
	orig, _ := main.Node(0).Attributes.Get("then_branch")
	assert.NotSame(t, orig.AsGraph(), then.AsGraph())
}

func TestCloneAttrResolution(t *testing.T) {
	tests := []struct {
		name    string
		resolve bool
		attrMap map[string]*ir.Attr
		check   func(t *testing.T, out *ir.Attr)
	}{
		{
			name:    "unresolved passes through",
			resolve: false,
			attrMap: map[string]*ir.Attr{"alpha": ir.AttrFloat32("alpha", 2)},
			check: func(t *testing.T, out *ir.Attr) {
				require.NotNil(t, out)
				assert.True(t, out.IsRef())
				assert.Equal(t, "alpha", out.RefName())
			},
		},
		{
			name:    "concrete target",
			resolve: true,
			attrMap: map[string]*ir.Attr{"alpha": ir.AttrFloat32("alpha", 2)},
			check: func(t *testing.T, out *ir.Attr) {
				require.NotNil(t, out)
				assert.False(t, out.IsRef())
				assert.Equal(t, "scale", out.Name())
				assert.Equal(t, float32(2), out.AsFloat())
			},
		},
		{
			name:    "reference target",
			resolve: true,
			attrMap: map[string]*ir.Attr{"alpha": ir.RefAttr("alpha", "outer_alpha", ir.AttrFloat)},
			check: func(t *testing.T, out *ir.Attr) {
				require.NotNil(t, out)
				assert.True(t, out.IsRef())
				assert.Equal(t, "scale", out.Name())
				assert.Equal(t, "outer_alpha", out.RefName())
				assert.Equal(t, ir.AttrFloat, out.Type())
			},
		},
		{
			name:    "absent target is dropped",
			resolve: true,
			attrMap: nil,
			check: func(t *testing.T, out *ir.Attr) {
				assert.Nil(t, out)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Options{AttrMap: tt.attrMap, ResolveRefAttrs: tt.resolve})
			out, err := c.CloneAttr("scale", ir.RefAttr("scale", "alpha", ir.AttrFloat))
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}

func TestCloneNodeElidesUnsetAttributes(t *testing.T) {
	x := ir.NewValue("x")
	n := ir.NewNode("", "LeakyRelu", []*ir.Value{x}, []*ir.Attr{
		ir.RefAttr("alpha", "alpha", ir.AttrFloat),
		ir.AttrInt64("keep", 1),
	})

	clone, err := New(Options{ValueMap: ValueMap{x: x}, ResolveRefAttrs: true}).CloneNode(n)
	require.NoError(t, err)
	_, ok := clone.Attributes.Get("alpha")
	assert.False(t, ok)
	assert.Equal(t, []string{"keep"}, clone.Attributes.Names())
}

func TestCloneNodeSharesConcreteAttributes(t *testing.T) {
	value := ir.AttrTensorValue("value", ir.TensorFromInt64("c", []int64{1}, []int64{7}))
	n := ir.NewNode("", "Constant", nil, []*ir.Attr{value})

	clone, err := New(Options{}).CloneNode(n)
	require.NoError(t, err)
	got, ok := clone.Attributes.Get("value")
	require.True(t, ok)
	assert.Same(t, value, got)
}

func TestCloneNodeMetadataAndPostProcess(t *testing.T) {
	x := ir.NewValue("x")
	n := ir.NewNode("", "Relu", []*ir.Value{x}, nil,
		ir.WithNodeMetadata(map[string]string{"origin": "node", "layer": "1"}))

	var seen []*ir.Node
	c := New(Options{
		ValueMap:    ValueMap{x: x},
		Metadata:    map[string]string{"origin": "call", "pass": "inline"},
		PostProcess: func(n *ir.Node) { seen = append(seen, n) },
	})
	clone, err := c.CloneNode(n)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"origin": "node", "layer": "1", "pass": "inline"}, clone.Metadata)
	assert.Equal(t, []*ir.Node{clone}, seen)
}

func TestResolveValue(t *testing.T) {
	v := ir.NewValue("v")
	v.DocString = "doc"
	v.Metadata = map[string]string{"k": "v"}
	c := New(Options{})

	nv, err := c.ResolveValue(v)
	require.NoError(t, err)
	assert.NotSame(t, v, nv)
	assert.Equal(t, "v", nv.Name())
	assert.Equal(t, "doc", nv.DocString)
	assert.Equal(t, map[string]string{"k": "v"}, nv.Metadata)

	again, err := c.ResolveValue(v)
	require.NoError(t, err)
	assert.Same(t, nv, again)

	severed := ir.NewValue("s")
	c.ValueMap()[severed] = nil
	_, err = c.ResolveValue(severed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedReference))
}

type countingObserver struct {
	counts map[string]int
}

func (o *countingObserver) Record(_ any, operation, _ string) {
	o.counts[operation]++
}

func TestClonerReportsToObserver(t *testing.T) {
	g := addMulGraph(t)
	obs := &countingObserver{counts: map[string]int{}}

	_, err := New(Options{Observer: obs}).CloneGraph(g)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"clone_node": 2, "clone_graph": 1}, obs.counts)
}
