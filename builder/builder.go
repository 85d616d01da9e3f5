// Package builder is the minimal model-building front end: it assembles
// SimNeurons/DotInc/ElementwiseInc/SlicedCopy operators and their signals
// for a small feed-forward ensemble network, wiring the dependency graph
// as each operator is added. The full model-building front end (turning
// an arbitrary user network description into a graph) is an external
// collaborator and out of scope; this package exists so the optimizer
// and its CLI have something concrete, and non-trivial, to operate on.
package builder

import (
	"fmt"

	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/operator"
	"github.com/grailbio/neurograph/signal"
)

// Network incrementally builds a model.Model, tracking which operator
// last wrote (Set) or is among those accumulating into (Inc) each
// signal, so that every operator added is wired into the dependency
// graph against its actual producers rather than requiring the caller
// to call model.AddDependency by hand.
type Network struct {
	Model *model.Model

	// producers[sig] is the set of operators that write sig: exactly one
	// after a Set, one-or-more after a run of Incs, reset by the next
	// Set. An input node's backing signal never appears here, since it
	// has no producing operator to depend on.
	producers map[signal.ID][]operator.ID
}

// New returns an empty Network ready to build on.
func New() *Network {
	return &Network{
		Model:     model.New(),
		producers: map[signal.ID][]operator.ID{},
	}
}

// addOp registers op, wires a dependency from every current producer of
// any signal op reads or updates, wires a dependency from op to every
// earlier operator that reads or updates a signal op sets or
// increments, and records op as the (possibly additional) producer of
// every signal op sets or increments.
func (nw *Network) addOp(op operator.Op) operator.ID {
	id := nw.Model.AddOperator(op)

	deps := map[operator.ID]bool{}
	for _, sid := range op.Reads() {
		for _, p := range nw.producers[sid] {
			deps[p] = true
		}
	}
	for _, sid := range op.Updates() {
		for _, p := range nw.producers[sid] {
			deps[p] = true
		}
	}
	for p := range deps {
		nw.Model.AddDependency(p, id)
	}

	// Earlier operators that read or update a signal op sets or
	// increments consume op's output, so they depend on op as well.
	written := map[signal.ID]bool{}
	for _, sid := range op.AllSignals()[:len(op.Sets())+len(op.Incs())] {
		written[sid] = true
	}
	for _, prev := range nw.Model.Operators[:len(nw.Model.Operators)-1] {
		p := nw.Model.Ops.Get(prev)
		for _, sid := range p.AllSignals()[len(p.Sets())+len(p.Incs()):] {
			if written[sid] {
				nw.Model.AddDependency(id, prev)
				break
			}
		}
	}

	for _, sid := range op.Sets() {
		nw.producers[sid] = []operator.ID{id}
	}
	for _, sid := range op.Incs() {
		nw.producers[sid] = append(nw.producers[sid], id)
	}
	return id
}

// AddInput registers a read-only constant base signal named name, owned
// under the same name, and returns its ID. Inputs have no producing
// operator: nothing in the model needs to run before a consumer reads
// one.
func (nw *Network) AddInput(name string, values []float64) signal.ID {
	id := nw.Model.Signals.NewBase(name, []int{len(values)}, append([]float64(nil), values...), true)
	nw.Model.SetSignal(model.Owner(name), "output", id)
	return id
}

// EnsembleSpec describes a single population of neurons sharing one
// NeuronType instance.
type EnsembleSpec struct {
	Name    string
	Size    int
	Neurons operator.NeuronType
}

// AddEnsemble allocates the J (input current), output and per-neuron
// state signals for spec, registers a SimNeurons operator over them,
// and returns the output signal. J starts at zero; callers wire
// AddConnection/AddBias calls that increment it before this ensemble's
// SimNeurons operator runs.
func (nw *Network) AddEnsemble(spec EnsembleSpec) signal.ID {
	m := nw.Model
	j := m.Signals.NewBase(spec.Name+".J", []int{spec.Size}, make([]float64, spec.Size), false)
	out := m.Signals.NewBase(spec.Name+".output", []int{spec.Size}, make([]float64, spec.Size), false)

	states := make([]signal.ID, spec.Neurons.NumStates())
	for i := range states {
		states[i] = m.Signals.NewBase(fmt.Sprintf("%s.state%d", spec.Name, i), []int{spec.Size}, make([]float64, spec.Size), false)
	}

	nw.addOp(operator.NewSimNeurons(spec.Name, spec.Neurons, j, out, states))
	m.SetSignal(model.Owner(spec.Name), "J", j)
	m.SetSignal(model.Owner(spec.Name), "output", out)
	return out
}

// AddConnection wires a dense weight matrix from pre (a size-D signal)
// into postOwner's ensemble J via postJ += weights . pre (a DotInc),
// returning the new operator's ID. weights must have postOwner's
// ensemble size rows and D columns.
func (nw *Network) AddConnection(name string, pre signal.ID, weights [][]float64, postOwner string) (operator.ID, error) {
	postJ, ok := nw.Model.Signal(model.Owner(postOwner), "J")
	if !ok {
		return 0, fmt.Errorf("builder: unknown ensemble %q", postOwner)
	}
	rows := len(weights)
	cols := 0
	if rows > 0 {
		cols = len(weights[0])
	}
	flat := make([]float64, 0, rows*cols)
	for _, row := range weights {
		if len(row) != cols {
			return 0, fmt.Errorf("builder: ragged weight matrix for connection %q", name)
		}
		flat = append(flat, row...)
	}
	a := nw.Model.Signals.NewBase(name+".weights", []int{rows, cols}, flat, true)
	return nw.addOp(operator.NewDotInc(name, a, pre, postJ)), nil
}

// AddBias increments postOwner's ensemble J by a constant per-neuron
// bias vector, via ElementwiseInc (J += bias * 1).
func (nw *Network) AddBias(name, postOwner string, bias []float64) (operator.ID, error) {
	postJ, ok := nw.Model.Signal(model.Owner(postOwner), "J")
	if !ok {
		return 0, fmt.Errorf("builder: unknown ensemble %q", postOwner)
	}
	b := nw.Model.Signals.NewBase(name+".bias", []int{len(bias)}, append([]float64(nil), bias...), true)
	ones := nw.Model.Signals.NewBase(name+".ones", []int{len(bias)}, onesVec(len(bias)), true)
	return nw.addOp(operator.NewElementwiseInc(name, b, ones, postJ)), nil
}

// AddProbe copies ensembleOwner's output signal, in full, into a fresh
// readout buffer via a whole-signal SlicedCopy, and returns the probe's
// backing signal.
func (nw *Network) AddProbe(name, ensembleOwner string) (signal.ID, error) {
	out, ok := nw.Model.Signal(model.Owner(ensembleOwner), "output")
	if !ok {
		return 0, fmt.Errorf("builder: unknown ensemble %q", ensembleOwner)
	}
	size := nw.Model.Signals.Get(out).Size()
	dst := nw.Model.Signals.NewBase(name+".probe", []int{size}, make([]float64, size), false)
	slice := operator.Slice{Start: 0, Stop: size, Step: 1}
	nw.addOp(operator.NewSlicedCopy(name, out, dst, slice, slice, false))
	nw.Model.SetSignal(model.Owner(name), "output", dst)
	return dst, nil
}

func onesVec(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// DemoNetwork builds a small, fixed feed-forward network exercised by
// the simulator's optimize-preserves-behavior tests and by cmd/graphopt:
// a constant input feeds three identically-parameterized LIF ensembles
// in parallel (set up so the optimizer's SimNeurons merge has something
// to fuse), whose outputs are each probed.
func DemoNetwork() (*Network, error) {
	nw := New()
	in := nw.AddInput("stim", []float64{0.6, 0.9, 1.2, 0.3})

	neurons := operator.LIF{TauRC: 0.02, TauRef: 0.002}
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("ens%d", i)
		nw.AddEnsemble(EnsembleSpec{Name: name, Size: 4, Neurons: neurons})
		weights := [][]float64{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
			{0, 0, 0, 1},
		}
		if _, err := nw.AddConnection(name+".conn", in, weights, name); err != nil {
			return nil, err
		}
		if _, err := nw.AddBias(name+".bias", name, []float64{0.1, 0.1, 0.1, 0.1}); err != nil {
			return nil, err
		}
		if _, err := nw.AddProbe(name+".probe", name); err != nil {
			return nil, err
		}
	}
	return nw, nil
}
