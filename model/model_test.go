package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/neurograph/operator"
	"github.com/grailbio/neurograph/signal"
)

func TestAddOperatorAppendsAndRegistersNode(t *testing.T) {
	m := New()
	a := m.Signals.NewBase("a", []int{1}, []float64{1}, false)
	b := m.Signals.NewBase("b", []int{1}, []float64{1}, false)
	id := m.AddOperator(operator.NewElementwiseInc("inc", a, a, b))

	require.Len(t, m.Operators, 1)
	assert.Equal(t, id, m.Operators[0])
	assert.Contains(t, m.DG.Nodes(), id)
	assert.Empty(t, m.DG.Successors(id))
}

func TestAddDependencyRecordsEdge(t *testing.T) {
	m := New()
	a := m.Signals.NewBase("a", []int{1}, []float64{1}, false)
	b := m.Signals.NewBase("b", []int{1}, []float64{1}, false)
	c := m.Signals.NewBase("c", []int{1}, []float64{1}, false)
	producer := m.AddOperator(operator.NewElementwiseInc("p", a, a, b))
	consumer := m.AddOperator(operator.NewElementwiseInc("c", b, b, c))

	m.AddDependency(producer, consumer)
	assert.Contains(t, m.DG.Successors(producer), consumer)
}

func TestSetSignalAndSignalRoundTrip(t *testing.T) {
	m := New()
	var sid signal.ID = 7
	m.SetSignal(Owner("ens0"), "output", sid)

	got, ok := m.Signal(Owner("ens0"), "output")
	require.True(t, ok)
	assert.Equal(t, sid, got)

	_, ok = m.Signal(Owner("ens0"), "J")
	assert.False(t, ok)
	_, ok = m.Signal(Owner("nonexistent"), "output")
	assert.False(t, ok)
}

func TestSetSignalOverwritesExistingName(t *testing.T) {
	m := New()
	m.SetSignal(Owner("ens0"), "output", signal.ID(1))
	m.SetSignal(Owner("ens0"), "output", signal.ID(2))

	got, ok := m.Signal(Owner("ens0"), "output")
	require.True(t, ok)
	assert.Equal(t, signal.ID(2), got)
}
