package dagutil

import (
	"testing"

	"github.com/grailbio/neurograph/operator"
	"github.com/stretchr/testify/assert"
)

func TestTransitiveClosureChain(t *testing.T) {
	g := New()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	order, err := Toposort(g)
	assert.NoError(t, err)

	closure := TransitiveClosure(g, order)
	assert.True(t, closure[operator.ID(1)][operator.ID(2)])
	assert.True(t, closure[operator.ID(1)][operator.ID(3)])
	assert.True(t, closure[operator.ID(2)][operator.ID(3)])
	assert.False(t, closure[operator.ID(3)][operator.ID(1)])
	assert.False(t, closure[operator.ID(2)][operator.ID(1)])
}

func TestIndependentChecksBothDirections(t *testing.T) {
	g := New()
	g.AddEdge(1, 2)
	g.AddNode(3)
	order, _ := Toposort(g)
	closure := TransitiveClosure(g, order)

	assert.False(t, Independent(closure, 1, 2))
	assert.False(t, Independent(closure, 2, 1))
	assert.True(t, Independent(closure, 1, 3))
	assert.True(t, Independent(closure, 3, 1))
}

func TestToposortDetectsCycle(t *testing.T) {
	g := New()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(3, 1)

	_, err := Toposort(g)
	assert.ErrorIs(t, err, ErrCycle)
}
