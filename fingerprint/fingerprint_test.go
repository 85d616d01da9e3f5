package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grailbio/neurograph/operator"
	"github.com/grailbio/neurograph/signal"
)

func TestSignalFingerprintDeterministic(t *testing.T) {
	a := signal.NewArena()
	id := a.NewBase("x", []int{4}, []float64{1, 2, 3, 4}, false)
	h1 := Signal(a, id)
	h2 := Signal(a, id)
	assert.Equal(t, h1, h2)
}

func TestSignalFingerprintDistinguishesShape(t *testing.T) {
	a := signal.NewArena()
	id1 := a.NewBase("x", []int{4}, []float64{1, 2, 3, 4}, false)
	id2 := a.NewBase("y", []int{2, 2}, []float64{1, 2, 3, 4}, false)
	assert.NotEqual(t, Signal(a, id1), Signal(a, id2))
}

func TestOperatorFingerprintOrderSensitive(t *testing.T) {
	a := signal.NewArena()
	x := a.NewBase("x", []int{2}, []float64{1, 2}, false)
	y := a.NewBase("y", []int{2}, []float64{3, 4}, false)
	op1 := operator.NewElementwiseInc("e", x, y, y)
	op2 := operator.NewElementwiseInc("e", y, x, y)

	assert.NotEqual(t, Operator(a, op1), Operator(a, op2))
}
