package passes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphir/internal/ir"
)

type fakePass struct {
	Base
	name        string
	requiresErr error
	ensuresErr  error
	modifyTimes int
	calls       int
}

func (p *fakePass) Name() string { return p.name }

func (p *fakePass) Requires(m *ir.Model) error {
	if p.requiresErr != nil {
		return p.requiresErr
	}
	return p.Base.Requires(m)
}

func (p *fakePass) Ensures(*ir.Model) error { return p.ensuresErr }

func (p *fakePass) Call(m *ir.Model) (*Result, error) {
	p.calls++
	return &Result{Model: m, Modified: p.calls <= p.modifyTimes}, nil
}

func emptyModel(t *testing.T) *ir.Model {
	t.Helper()
	g, err := ir.NewGraph(nil, nil, nil)
	require.NoError(t, err)
	m, err := ir.NewModel(g, 10)
	require.NoError(t, err)
	return m
}

func TestRunPrecondition(t *testing.T) {
	cause := errors.New("bad model")
	p := &fakePass{name: "fake", requiresErr: cause}

	_, err := Run(p, emptyModel(t))
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "fake", pre.Pass)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, p.calls, "Call must not run after a failed precondition")
}

func TestRunPreconditionKeepsTypedError(t *testing.T) {
	typed := &PreconditionError{Pass: "inner", Err: errors.New("cycle")}
	p := &fakePass{name: "outer", requiresErr: typed}

	_, err := Run(p, emptyModel(t))
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "inner", pre.Pass)
}

func TestRunPostcondition(t *testing.T) {
	p := &fakePass{name: "fake", ensuresErr: errors.New("broken")}

	_, err := Run(p, emptyModel(t))
	var post *PostconditionError
	require.ErrorAs(t, err, &post)
	assert.Equal(t, 1, p.calls)
}

func TestManagerStopsAtFixedPoint(t *testing.T) {
	p := &fakePass{name: "fake", modifyTimes: 2}
	mgr := NewManager([]Pass{p}, WithSteps(10))

	res, err := mgr.Run(emptyModel(t))
	require.NoError(t, err)
	assert.True(t, res.Modified)
	assert.Equal(t, 3, p.calls, "two modifying rounds plus one confirming round")
}

func TestManagerSingleStepByDefault(t *testing.T) {
	p := &fakePass{name: "fake"}
	res, err := NewManager([]Pass{p}).Run(emptyModel(t))
	require.NoError(t, err)
	assert.False(t, res.Modified)
	assert.Equal(t, 1, p.calls)
}
