package simulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/neurograph/builder"
	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/operator"
	"github.com/grailbio/neurograph/optimizer"
	"github.com/grailbio/neurograph/signal"
)

func TestStepElementwiseInc(t *testing.T) {
	m := model.New()
	a := m.Signals.NewBase("a", []int{3}, []float64{1, 2, 3}, true)
	b := m.Signals.NewBase("b", []int{3}, []float64{10, 10, 10}, true)
	y := m.Signals.NewBase("y", []int{3}, []float64{0, 0, 0}, false)
	m.AddOperator(operator.NewElementwiseInc("e", a, b, y))

	sim, err := New(m, 0.001)
	require.NoError(t, err)
	require.NoError(t, sim.Step())

	assert.Equal(t, []float64{10, 20, 30}, m.Signals.Read(y))
}

func TestStepDotInc(t *testing.T) {
	m := model.New()
	a := m.Signals.NewBase("A", []int{2, 3}, []float64{1, 0, 0, 0, 1, 0}, true)
	x := m.Signals.NewBase("x", []int{3}, []float64{5, 6, 7}, true)
	y := m.Signals.NewBase("y", []int{2}, []float64{0, 0}, false)
	m.AddOperator(operator.NewDotInc("d", a, x, y))

	sim, err := New(m, 0.001)
	require.NoError(t, err)
	require.NoError(t, sim.Step())

	assert.Equal(t, []float64{5, 6}, m.Signals.Read(y))
}

func TestStepSlicedCopy(t *testing.T) {
	m := model.New()
	src := m.Signals.NewBase("src", []int{4}, []float64{1, 2, 3, 4}, true)
	dst := m.Signals.NewBase("dst", []int{4}, []float64{0, 0, 0, 0}, false)
	m.AddOperator(operator.NewSlicedCopy("c", src, dst, operator.Slice{Start: 0, Stop: 2, Step: 1}, operator.Slice{Start: 2, Stop: 4, Step: 1}, false))

	sim, err := New(m, 0.001)
	require.NoError(t, err)
	require.NoError(t, sim.Step())

	assert.Equal(t, []float64{0, 0, 1, 2}, m.Signals.Read(dst))
}

func TestStepSimNeuronsAdvancesState(t *testing.T) {
	m := model.New()
	j := m.Signals.NewBase("J", []int{2}, []float64{2, 2}, true)
	out := m.Signals.NewBase("out", []int{2}, []float64{0, 0}, false)
	voltage := m.Signals.NewBase("voltage", []int{2}, []float64{0, 0}, false)
	refrac := m.Signals.NewBase("refrac", []int{2}, []float64{0, 0}, false)
	m.AddOperator(operator.NewSimNeurons("n", operator.LIF{TauRC: 0.02, TauRef: 0.002}, j, out, []signal.ID{voltage, refrac}))

	sim, err := New(m, 0.001)
	require.NoError(t, err)
	require.NoError(t, sim.Step())

	v := m.Signals.Read(voltage)
	assert.NotEqual(t, []float64{0, 0}, v, "voltage should have moved off its initial value after one step")
}

func TestOptimizePreservesProbedOutputOnDemoNetwork(t *testing.T) {
	const steps = 5

	before, err := builder.DemoNetwork()
	require.NoError(t, err)
	beforeSim, err := New(before.Model, 0.001)
	require.NoError(t, err)
	require.NoError(t, beforeSim.Steps(steps))
	beforeOutputs := probeOutputs(t, before.Model)

	after, err := builder.DemoNetwork()
	require.NoError(t, err)
	require.NoError(t, optimizer.Optimize(context.Background(), after.Model))
	require.Less(t, len(after.Model.Operators), len(before.Model.Operators), "the optimizer should have fused the three identical ensembles")
	afterSim, err := New(after.Model, 0.001)
	require.NoError(t, err)
	require.NoError(t, afterSim.Steps(steps))
	afterOutputs := probeOutputs(t, after.Model)

	assert.Equal(t, beforeOutputs, afterOutputs, "optimize must not change the network's observable step behavior")
}

func probeOutputs(t *testing.T, m *model.Model) map[string][]float64 {
	t.Helper()
	out := map[string][]float64{}
	for i := 0; i < 3; i++ {
		name := "ens" + itoa(i) + ".probe"
		sig, ok := m.Signal(model.Owner(name), "output")
		require.True(t, ok, "missing probe %q", name)
		out[name] = m.Signals.Read(sig)
	}
	return out
}

func itoa(i int) string {
	return string(rune('0' + i))
}
