// Package simulator provides the reference single-threaded stepper: it
// binds a model's signals to their live buffers and runs operators in
// topological order, once per Step. It exists so tests (and
// cmd/graphopt's demo) can prove that Optimize preserves a network's
// observable per-step behavior; the runtime scheduler that would
// actually place and pipeline a simulation across devices is an
// external collaborator and out of scope.
package simulator

import (
	"fmt"

	"github.com/grailbio/neurograph/dagutil"
	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/operator"
)

// Simulator runs m's current operator graph, once per Step, in a fixed
// topological order computed at New time. Rewriting m (most notably by
// running optimizer.Optimize) after New invalidates that order; call
// New again against the rewritten model before stepping it further.
type Simulator struct {
	Model *model.Model
	DT    float64

	order []operator.ID
}

// New topologically sorts m.DG and returns a Simulator ready to step
// it. DT is the step size handed to every SimNeurons operator's
// NeuronType.StepMath.
func New(m *model.Model, dt float64) (*Simulator, error) {
	order, err := dagutil.Toposort(m.DG)
	if err != nil {
		return nil, err
	}
	return &Simulator{Model: m, DT: dt, order: order}, nil
}

// Step runs every operator once, in topological order.
func (s *Simulator) Step() error {
	for _, id := range s.order {
		if err := s.runOp(s.Model.Ops.Get(id)); err != nil {
			return fmt.Errorf("simulator: operator %d (%s): %w", id, s.Model.Ops.Get(id).Tag(), err)
		}
	}
	return nil
}

// Steps runs Step n times.
func (s *Simulator) Steps(n int) error {
	for i := 0; i < n; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) runOp(op operator.Op) error {
	switch o := op.(type) {
	case operator.ElementwiseInc:
		return s.stepElementwiseInc(o)
	case operator.SlicedCopy:
		return s.stepSlicedCopy(o)
	case operator.DotInc:
		return s.stepDotInc(o)
	case operator.SimNeurons:
		return s.stepSimNeurons(o)
	case operator.CustomOp:
		// CustomOp carries no kernel of its own in this reference
		// implementation; extension kinds are expected to bind their own
		// step closure outside this package. A no-op here is correct for
		// every test and demo network in this repository, none of which
		// exercise a CustomOp's actual data effect.
		return nil
	default:
		return fmt.Errorf("simulator: unknown operator kind %T", op)
	}
}

func (s *Simulator) stepElementwiseInc(o operator.ElementwiseInc) error {
	arena := s.Model.Signals
	a := arena.Read(o.A)
	b := arena.Read(o.B)
	y := arena.Read(o.Y)
	if len(a) != len(y) || len(b) != len(y) {
		return fmt.Errorf("elementwise_inc: operand size mismatch (a=%d b=%d y=%d)", len(a), len(b), len(y))
	}
	for i := range y {
		y[i] += a[i] * b[i]
	}
	return arena.Write(o.Y, y)
}

func (s *Simulator) stepDotInc(o operator.DotInc) error {
	arena := s.Model.Signals
	aSig := arena.Get(o.A)
	shape := aSig.Shape()
	if len(shape) != 2 {
		return fmt.Errorf("dot_inc: A must be rank 2, got rank %d", len(shape))
	}
	rows, cols := shape[0], shape[1]
	a := arena.Read(o.A)
	x := arena.Read(o.X)
	y := arena.Read(o.Y)
	if len(x) != cols {
		return fmt.Errorf("dot_inc: X has %d elements, want %d", len(x), cols)
	}
	if len(y) != rows {
		return fmt.Errorf("dot_inc: Y has %d elements, want %d", len(y), rows)
	}
	for r := 0; r < rows; r++ {
		var sum float64
		for c := 0; c < cols; c++ {
			sum += a[r*cols+c] * x[c]
		}
		y[r] += sum
	}
	return arena.Write(o.Y, y)
}

func (s *Simulator) stepSlicedCopy(o operator.SlicedCopy) error {
	arena := s.Model.Signals
	src := arena.Read(o.Src)
	dst := arena.Read(o.Dst)

	srcIdx := sliceIndices(o.SrcSlice, len(src))
	dstIdx := sliceIndices(o.DstSlice, len(dst))
	if len(srcIdx) != len(dstIdx) {
		return fmt.Errorf("sliced_copy: src slice selects %d elements, dst selects %d", len(srcIdx), len(dstIdx))
	}
	for k := range srcIdx {
		if o.Inc {
			dst[dstIdx[k]] += src[srcIdx[k]]
		} else {
			dst[dstIdx[k]] = src[srcIdx[k]]
		}
	}
	return arena.Write(o.Dst, dst)
}

// sliceIndices expands a Python-style half-open [Start:Stop:Step) slice
// over a signal with n elements into the concrete element indices it
// selects.
func sliceIndices(sl operator.Slice, n int) []int {
	step := sl.Step
	if step == 0 {
		step = 1
	}
	stop := sl.Stop
	if stop > n {
		stop = n
	}
	var out []int
	if step > 0 {
		for i := sl.Start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := sl.Start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out
}

func (s *Simulator) stepSimNeurons(o operator.SimNeurons) error {
	arena := s.Model.Signals
	j := arena.Read(o.J)
	output := make([]float64, arena.Get(o.Output).Size())
	states := make([][]float64, len(o.States))
	for i, sid := range o.States {
		states[i] = arena.Read(sid)
	}

	o.Neurons.StepMath(s.DT, j, output, states)

	if err := arena.Write(o.Output, output); err != nil {
		return err
	}
	for i, sid := range o.States {
		if err := arena.Write(sid, states[i]); err != nil {
			return err
		}
	}
	return nil
}
