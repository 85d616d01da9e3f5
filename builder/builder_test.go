package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/operator"
)

func TestAddConnectionWiresDependencyOnInputProducer(t *testing.T) {
	nw := New()
	in := nw.AddInput("stim", []float64{1, 0})
	nw.AddEnsemble(EnsembleSpec{Name: "e", Size: 2, Neurons: operator.LIF{TauRC: 0.02, TauRef: 0.002}})
	ensembleID := nw.Model.Operators[0]

	connID, err := nw.AddConnection("e.conn", in, [][]float64{{1, 0}, {0, 1}}, "e")
	require.NoError(t, err)

	// stim has no producing operator, so the connection has no
	// predecessors; the ensemble's SimNeurons, in turn, must depend on
	// the connection, since the connection writes J and SimNeurons
	// reads it.
	assert.Contains(t, nw.Model.DG.Successors(connID), ensembleID)
}

func TestAddConnectionUnknownEnsembleErrors(t *testing.T) {
	nw := New()
	in := nw.AddInput("stim", []float64{1})
	_, err := nw.AddConnection("bad", in, [][]float64{{1}}, "nonexistent")
	assert.Error(t, err)
}

func TestAddBiasIncrementsJWithoutReplacingEarlierProducers(t *testing.T) {
	nw := New()
	in := nw.AddInput("stim", []float64{1, 0})
	nw.AddEnsemble(EnsembleSpec{Name: "e", Size: 2, Neurons: operator.LIF{TauRC: 0.02, TauRef: 0.002}})
	connID, err := nw.AddConnection("e.conn", in, [][]float64{{1, 0}, {0, 1}}, "e")
	require.NoError(t, err)
	biasID, err := nw.AddBias("e.bias", "e", []float64{0.1, 0.1})
	require.NoError(t, err)

	j, ok := nw.Model.Signal(model.Owner("e"), "J")
	require.True(t, ok)

	// Both the connection and the bias increment J, so both should be
	// recorded as producers and the ensemble depends on both.
	producers := nw.producers[j]
	assert.ElementsMatch(t, []operator.ID{connID, biasID}, producers)
}

func TestAddProbeCopiesEnsembleOutput(t *testing.T) {
	nw := New()
	nw.AddEnsemble(EnsembleSpec{Name: "e", Size: 3, Neurons: operator.LIF{TauRC: 0.02, TauRef: 0.002}})
	probe, err := nw.AddProbe("e.probe", "e")
	require.NoError(t, err)
	assert.Equal(t, 3, nw.Model.Signals.Get(probe).Size())
}

func TestDemoNetworkBuildsWithoutError(t *testing.T) {
	nw, err := DemoNetwork()
	require.NoError(t, err)
	// 3 ensembles: SimNeurons + DotInc + ElementwiseInc + SlicedCopy each.
	assert.Len(t, nw.Model.Operators, 12)
}
