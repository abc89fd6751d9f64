package journal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphir/internal/cloner"
	"github.com/born-ml/graphir/internal/ir"
)

func fixedClock() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestJournalRecord(t *testing.T) {
	j := New(WithClock(fixedClock))
	n := ir.NewNode("", "Relu", nil, nil, ir.WithNodeName("relu"))

	j.Record(n, "set_name", "old=")
	j.Record(nil, "noop", "")

	entries := j.Entries()
	require.Len(t, entries, 2)
	e := entries[0]
	assert.Equal(t, fixedClock(), e.Time)
	assert.Equal(t, "set_name", e.Operation)
	assert.Equal(t, "Node", e.Kind)
	assert.Same(t, n, e.Object)
	assert.Equal(t, n.String(), e.Summary)
	assert.Equal(t, "old=", e.Details)
	assert.Contains(t, e.Location, "journal_test.go")

	assert.Equal(t, "<nil>", entries[1].Kind)
}

func TestJournalHooksAndFilter(t *testing.T) {
	j := New(WithoutLocations())
	var seen []string
	j.AddHook(func(e Entry) { seen = append(seen, e.Operation) })

	v := ir.NewValue("x")
	j.Record(v, "a", "")
	j.Record(v, "b", "")
	j.ClearHooks()
	j.Record(v, "a", "")

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Len(t, j.Filter("a", ""), 2)
	assert.Len(t, j.Filter("", "Value"), 3)
	assert.Empty(t, j.Filter("a", "Node"))
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, j.Counts())
	assert.Empty(t, j.Entries()[0].Location)
}

func TestJournalObservesCloner(t *testing.T) {
	x := ir.NewValue("x")
	relu := ir.NewNode("", "Relu", []*ir.Value{x}, nil)
	g, err := ir.NewGraph([]*ir.Value{x}, []*ir.Value{relu.Output(0)}, []*ir.Node{relu}, ir.WithGraphName("g"))
	require.NoError(t, err)

	j := New(WithClock(fixedClock))
	_, err = cloner.New(cloner.Options{Observer: j}).CloneGraph(g)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"clone_node": 1, "clone_graph": 1}, j.Counts())
	for _, e := range j.Entries() {
		assert.Contains(t, e.Location, "journal_test.go")
	}
}

func TestJournalWriteTo(t *testing.T) {
	j := New(WithClock(fixedClock), WithoutLocations())
	j.Record(ir.NewValue("x"), "create", strings.Repeat("d", 150))

	var buf bytes.Buffer
	n, err := j.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[03:04:05.000000] create Value: %x"))
	assert.Contains(t, line, "[...]")
}
