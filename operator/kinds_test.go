package operator

import (
	"testing"

	"github.com/grailbio/neurograph/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(a *signal.Arena, name string, vals ...float64) signal.ID {
	return a.NewBase(name, []int{len(vals)}, append([]float64(nil), vals...), false)
}

func TestSimNeuronsCanMergeSameInstance(t *testing.T) {
	a := signal.NewArena()
	n1 := LIF{TauRC: 0.02, TauRef: 0.002}
	op1 := NewSimNeurons("op1", n1, vec(a, "J0", 1), vec(a, "out0", 0), []signal.ID{vec(a, "v0", 0), vec(a, "r0", 0)})
	op2 := NewSimNeurons("op2", n1, vec(a, "J1", 2), vec(a, "out1", 0), []signal.ID{vec(a, "v1", 0), vec(a, "r1", 0)})
	n2 := LIF{TauRC: 0.05, TauRef: 0.001}
	op3 := NewSimNeurons("op3", n2, vec(a, "J2", 3), vec(a, "out2", 0), []signal.ID{vec(a, "v2", 0), vec(a, "r2", 0)})

	assert.True(t, op1.CanMerge(a, op2))
	assert.False(t, op1.CanMerge(a, op3))
}

func TestSimNeuronsMergeConcatenatesSlots(t *testing.T) {
	a := signal.NewArena()
	n := LIF{TauRC: 0.02, TauRef: 0.002}
	op1 := NewSimNeurons("op1", n, vec(a, "J0", 1, 1, 1, 1), vec(a, "out0", 0, 0, 0, 0), nil)
	op2 := NewSimNeurons("op2", n, vec(a, "J1", 2, 2, 2, 2), vec(a, "out1", 0, 0, 0, 0), nil)
	op3 := NewSimNeurons("op3", n, vec(a, "J2", 3, 3, 3, 3), vec(a, "out2", 0, 0, 0, 0), nil)

	fused, repl, err := op1.Merge(a, []Op{op2, op3})
	require.NoError(t, err)

	merged := fused.(SimNeurons)
	assert.Equal(t, 12, a.Get(merged.J).Size())
	assert.Equal(t, []float64{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}, a.Read(merged.J))
	assert.Len(t, repl, 6) // J and Output for each of 3 operators
}

func TestElementwiseIncCanMerge(t *testing.T) {
	a := signal.NewArena()
	op1 := NewElementwiseInc("e1", vec(a, "a", 1), vec(a, "b", 1), vec(a, "y", 0))
	op2 := NewElementwiseInc("e2", vec(a, "a2", 1), vec(a, "b2", 1), vec(a, "y2", 0))
	assert.True(t, op1.CanMerge(a, op2))

	dot := NewDotInc("d1", vec(a, "A", 1), vec(a, "x", 1), vec(a, "y3", 0))
	assert.False(t, op1.CanMerge(a, dot))
}

func TestDotIncCanMergeRejectsMismatchedColumnCount(t *testing.T) {
	a := signal.NewArena()
	// op1's A is 2x3 (3 presynaptic inputs); op2's A is 2x4 (4
	// presynaptic inputs). Independent, same-kind DotInc operators whose
	// A operands disagree off the concatenation axis must be rejected by
	// CanMerge, not left to fail inside Merge.
	a1 := a.NewBase("A1", []int{2, 3}, make([]float64, 6), true)
	a2 := a.NewBase("A2", []int{2, 4}, make([]float64, 8), true)
	op1 := NewDotInc("d1", a1, vec(a, "x1", 1, 1, 1), vec(a, "y1", 0, 0))
	op2 := NewDotInc("d2", a2, vec(a, "x2", 1, 1, 1, 1), vec(a, "y2", 0, 0))

	assert.False(t, op1.CanMerge(a, op2))
}

func TestSlicedCopyRequiresMatchingSlices(t *testing.T) {
	a := signal.NewArena()
	src := vec(a, "src", 1, 2, 3, 4)
	dst := vec(a, "dst", 0, 0, 0, 0)
	op1 := NewSlicedCopy("c1", src, dst, Slice{0, 2, 1}, Slice{0, 2, 1}, false)
	op2 := NewSlicedCopy("c2", src, dst, Slice{0, 2, 1}, Slice{0, 2, 1}, false)
	op3 := NewSlicedCopy("c3", src, dst, Slice{1, 3, 1}, Slice{0, 2, 1}, false)

	assert.True(t, op1.CanMerge(a, op2))
	assert.False(t, op1.CanMerge(a, op3))
}

func TestCustomOpNeverMerges(t *testing.T) {
	a := signal.NewArena()
	op := NewCustomOp("custom", nil, nil, nil, nil)
	assert.False(t, op.SupportsMerge())
	assert.False(t, op.CanMerge(a, op))
	_, _, err := op.Merge(nil, nil)
	assert.Equal(t, ErrUnmergeable, err)
}

func TestArenaAddAssignsStableID(t *testing.T) {
	arena := NewArena()
	a := signal.NewArena()
	op := NewDotInc("d", vec(a, "A", 1), vec(a, "x", 1), vec(a, "y", 0))
	id := arena.Add(op)
	assert.Equal(t, id, arena.Get(id).ID())
}
