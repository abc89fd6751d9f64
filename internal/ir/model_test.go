package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want OperatorIdentifier
	}{
		{"pkg.custom::Gelu", OperatorIdentifier{Domain: "pkg.custom", Name: "Gelu"}},
		{"pkg.custom::Gelu:fast", OperatorIdentifier{Domain: "pkg.custom", Name: "Gelu", Overload: "fast"}},
		{"::Relu", OperatorIdentifier{Name: "Relu"}},
		{"Relu", OperatorIdentifier{Name: "Relu"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperatorIdentifier(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseOperatorIdentifier("pkg::")
	require.Error(t, err)

	id := OperatorIdentifier{Domain: "d", Name: "F", Overload: "v2"}
	parsed, err := ParseOperatorIdentifier(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func newIdentityFunction(t *testing.T, domain, name string) *Function {
	t.Helper()
	x := NewValue("x")
	id := NewNode("", "Identity", []*Value{x}, nil)
	body, err := NewGraph([]*Value{x}, []*Value{id.Output(0)}, []*Node{id})
	require.NoError(t, err)
	return NewFunction(domain, name, "", body, nil)
}

func TestModelFunctionTable(t *testing.T) {
	g, err := NewGraph(nil, nil, nil)
	require.NoError(t, err)
	f := newIdentityFunction(t, "local", "F")
	h := newIdentityFunction(t, "local", "H")

	m, err := NewModel(g, 10, f, h)
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumFunctions())

	got, ok := m.Function(OperatorIdentifier{Domain: "local", Name: "F"})
	require.True(t, ok)
	assert.Same(t, f, got)

	require.Error(t, m.AddFunction(newIdentityFunction(t, "local", "F")))

	assert.True(t, m.RemoveFunction(f.Identifier()))
	assert.False(t, m.RemoveFunction(f.Identifier()))
	assert.Equal(t, []*Function{h}, m.Functions())

	m.OpsetImports()["local"] = 1
	assert.Equal(t, int64(1), g.OpsetImports["local"])
}

func TestFunctionAttribute(t *testing.T) {
	f := newIdentityFunction(t, "local", "F")
	f.params = []*AttrParam{{Name: "alpha", Type: AttrFloat, Default: AttrFloat32("alpha", 1)}}

	p, ok := f.Attribute("alpha")
	require.True(t, ok)
	assert.Equal(t, float32(1), p.Default.AsFloat())
	_, ok = f.Attribute("beta")
	assert.False(t, ok)
}
