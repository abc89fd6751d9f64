package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphir/internal/config"
	"github.com/born-ml/graphir/internal/ir"
	"github.com/born-ml/graphir/internal/onnx"
)

// writeModel saves a model with one function custom::Double(a) = Add(a, a),
// called once in the main graph and once inside the then-branch of an If.
func writeModel(t *testing.T, dir string) string {
	t.Helper()

	a := ir.NewValue("a")
	add := ir.NewNode("", "Add", []*ir.Value{a, a}, nil, ir.WithNodeName("add"))
	add.Output(0).SetName("b")
	body, err := ir.NewGraph([]*ir.Value{a}, []*ir.Value{add.Output(0)}, []*ir.Node{add},
		ir.WithOpsetImports(map[string]int64{"": 18}))
	require.NoError(t, err)
	double := ir.NewFunction("custom", "Double", "", body, nil)

	x := ir.NewValue("x")
	x.Type = &ir.TensorType{Elem: ir.Float32}
	cond := ir.NewValue("cond")
	cond.Type = &ir.TensorType{Elem: ir.Bool}

	inner := ir.NewNode("custom", "Double", []*ir.Value{x}, nil, ir.WithNodeName("inner"))
	inner.Output(0).SetName("then_out")
	thenBranch, err := ir.NewGraph(nil, []*ir.Value{inner.Output(0)}, []*ir.Node{inner}, ir.WithGraphName("then"))
	require.NoError(t, err)
	ident := ir.NewNode("", "Identity", []*ir.Value{x}, nil)
	ident.Output(0).SetName("else_out")
	elseBranch, err := ir.NewGraph(nil, []*ir.Value{ident.Output(0)}, []*ir.Node{ident}, ir.WithGraphName("else"))
	require.NoError(t, err)

	outer := ir.NewNode("custom", "Double", []*ir.Value{x}, nil, ir.WithNodeName("outer"))
	ifNode := ir.NewNode("", "If", []*ir.Value{cond}, []*ir.Attr{
		ir.AttrGraphValue("then_branch", thenBranch),
		ir.AttrGraphValue("else_branch", elseBranch),
	}, ir.WithNodeName("if"))
	outer.Output(0).SetName("y")
	ifNode.Output(0).SetName("z")

	g, err := ir.NewGraph([]*ir.Value{x, cond}, []*ir.Value{outer.Output(0), ifNode.Output(0)},
		[]*ir.Node{outer, ifNode}, ir.WithGraphName("main"),
		ir.WithOpsetImports(map[string]int64{"": 18, "custom": 1}))
	require.NoError(t, err)
	m, err := ir.NewModel(g, 10, double)
	require.NoError(t, err)

	path := filepath.Join(dir, "model.onnx")
	require.NoError(t, onnx.Save(path, m))
	return path
}

func opTypes(g *ir.Graph) []string {
	var out []string
	for n := range g.AllNodes() {
		out = append(out, n.OpType)
	}
	return out
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ModelPath = writeModel(t, dir)
	cfg.LogLevel = "error"
	cfg.Journal = true
	cfg.ReportCaptures = true

	var out bytes.Buffer
	require.NoError(t, Run(&out, &cfg))

	text := out.String()
	assert.Contains(t, text, "Inlined 2 call sites, removed 1 functions")
	assert.Contains(t, text, "custom::Double")
	assert.Contains(t, text, "Journal:")
	assert.Contains(t, text, "inline_call")
	assert.Contains(t, text, "if/then: [x]")
	assert.Contains(t, text, "if/else: [x]")

	m, err := onnx.Load(filepath.Join(dir, "model.inlined.onnx"))
	require.NoError(t, err)
	assert.Zero(t, m.NumFunctions())
	assert.Equal(t, []string{"Add", "If", "Add", "Identity"}, opTypes(m.Graph))
	assert.Equal(t, "y", m.Graph.Outputs()[0].Name())
}

func TestRunKeepsSelectedFunctions(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ModelPath = writeModel(t, dir)
	cfg.OutputPath = filepath.Join(dir, "kept.onnx")
	cfg.LogLevel = "error"
	cfg.Keep = []ir.OperatorIdentifier{{Domain: "custom", Name: "Double"}}

	var out bytes.Buffer
	require.NoError(t, Run(&out, &cfg))
	assert.Contains(t, out.String(), "Inlined 0 call sites, removed 0 functions")

	m, err := onnx.Load(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 1, m.NumFunctions())
}

func TestRunErrors(t *testing.T) {
	cfg := config.Default()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")
	assert.Error(t, Run(&bytes.Buffer{}, &cfg))
}
