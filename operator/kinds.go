package operator

import (
	"github.com/grailbio/neurograph/signal"
)

// concatAxis is the axis every built-in operator kind concatenates its
// operands along when merged: axis 0, matching optimizer's own
// concatAxis (operators in this package only ever carry rank-1 or
// batch-leading-axis signals, so a single fixed axis suffices).
const concatAxis = 0

// ElementwiseInc implements Y += A * B (Nengo's `Y[...] += A * B`
// elementwise operator family). It carries no kind-local merge
// parameters: any two ElementwiseInc operators can merge provided their
// A, B and Y operands are pairwise compatible (same rank, same shape off
// the concatenation axis).
type ElementwiseInc struct {
	id   ID
	tag  string
	A, B, Y signal.ID
}

func NewElementwiseInc(tag string, a, b, y signal.ID) ElementwiseInc {
	return ElementwiseInc{tag: tag, A: a, B: b, Y: y}
}

func (o ElementwiseInc) ID() ID        { return o.id }
func (o ElementwiseInc) Kind() Kind     { return KindElementwiseInc }
func (o ElementwiseInc) Tag() string    { return o.tag }
func (o ElementwiseInc) Sets() []signal.ID    { return nil }
func (o ElementwiseInc) Incs() []signal.ID    { return []signal.ID{o.Y} }
func (o ElementwiseInc) Reads() []signal.ID   { return []signal.ID{o.A, o.B} }
func (o ElementwiseInc) Updates() []signal.ID { return nil }
func (o ElementwiseInc) AllSignals() []signal.ID {
	return allSignals(o.Sets(), o.Incs(), o.Reads(), o.Updates())
}
func (o ElementwiseInc) SupportsMerge() bool { return true }
func (o ElementwiseInc) CanMerge(a *signal.Arena, other Op) bool {
	p, ok := other.(ElementwiseInc)
	if !ok {
		return false
	}
	return signal.Compatible(a, []signal.ID{o.A, p.A}, concatAxis) &&
		signal.Compatible(a, []signal.ID{o.B, p.B}, concatAxis) &&
		signal.Compatible(a, []signal.ID{o.Y, p.Y}, concatAxis)
}
func (o ElementwiseInc) WithID(id ID) Op { o.id = id; return o }

func (o ElementwiseInc) Merge(a *signal.Arena, others []Op) (Op, map[signal.ID]signal.ID, error) {
	peers := make([]ElementwiseInc, len(others))
	for i, p := range others {
		peers[i] = p.(ElementwiseInc)
	}
	replacements := map[signal.ID]signal.ID{}
	aID, err := mergeSlot(a, replacements, o.A, peers, func(p ElementwiseInc) signal.ID { return p.A })
	if err != nil {
		return nil, nil, err
	}
	bID, err := mergeSlot(a, replacements, o.B, peers, func(p ElementwiseInc) signal.ID { return p.B })
	if err != nil {
		return nil, nil, err
	}
	yID, err := mergeSlot(a, replacements, o.Y, peers, func(p ElementwiseInc) signal.ID { return p.Y })
	if err != nil {
		return nil, nil, err
	}
	return NewElementwiseInc("merged<"+o.tag+">", aID, bID, yID), replacements, nil
}

// mergeSlot gathers self's and peers' signal in a given operand slot
// (selected by slot) and fuses them with signal.MergeSignalsOrViews.
func mergeSlot[P any](a *signal.Arena, replacements map[signal.ID]signal.ID, self signal.ID, peers []P, slot func(P) signal.ID) (signal.ID, error) {
	ids := make([]signal.ID, 0, len(peers)+1)
	ids = append(ids, self)
	for _, p := range peers {
		ids = append(ids, slot(p))
	}
	return signal.MergeSignalsOrViews(a, ids, concatAxis, "merged-slot", replacements)
}

// Slice is a Python-style half-open [Start:Stop:Step) slice used by
// SlicedCopy to describe which elements of its source and destination
// signals participate in the copy.
type Slice struct {
	Start, Stop, Step int
}

// SlicedCopy copies (or increments, if Inc) Src[SrcSlice] into
// Dst[DstSlice]. Two SlicedCopy operators can only merge if their slice
// parameters and Inc flag match exactly, since the slice applies
// uniformly across whatever signals are concatenated underneath it.
type SlicedCopy struct {
	id                 ID
	tag                string
	Src, Dst           signal.ID
	SrcSlice, DstSlice Slice
	Inc                bool
}

func NewSlicedCopy(tag string, src, dst signal.ID, srcSlice, dstSlice Slice, inc bool) SlicedCopy {
	return SlicedCopy{tag: tag, Src: src, Dst: dst, SrcSlice: srcSlice, DstSlice: dstSlice, Inc: inc}
}

func (o SlicedCopy) ID() ID     { return o.id }
func (o SlicedCopy) Kind() Kind  { return KindSlicedCopy }
func (o SlicedCopy) Tag() string { return o.tag }
func (o SlicedCopy) Sets() []signal.ID {
	if o.Inc {
		return nil
	}
	return []signal.ID{o.Dst}
}
func (o SlicedCopy) Incs() []signal.ID {
	if o.Inc {
		return []signal.ID{o.Dst}
	}
	return nil
}
func (o SlicedCopy) Reads() []signal.ID   { return []signal.ID{o.Src} }
func (o SlicedCopy) Updates() []signal.ID { return nil }
func (o SlicedCopy) AllSignals() []signal.ID {
	return allSignals(o.Sets(), o.Incs(), o.Reads(), o.Updates())
}
func (o SlicedCopy) SupportsMerge() bool { return true }
func (o SlicedCopy) CanMerge(a *signal.Arena, other Op) bool {
	p, ok := other.(SlicedCopy)
	return ok && p.SrcSlice == o.SrcSlice && p.DstSlice == o.DstSlice && p.Inc == o.Inc
}
func (o SlicedCopy) WithID(id ID) Op { o.id = id; return o }

func (o SlicedCopy) Merge(a *signal.Arena, others []Op) (Op, map[signal.ID]signal.ID, error) {
	peers := make([]SlicedCopy, len(others))
	for i, p := range others {
		peers[i] = p.(SlicedCopy)
	}
	replacements := map[signal.ID]signal.ID{}
	srcID, err := mergeSlot(a, replacements, o.Src, peers, func(p SlicedCopy) signal.ID { return p.Src })
	if err != nil {
		return nil, nil, err
	}
	dstID, err := mergeSlot(a, replacements, o.Dst, peers, func(p SlicedCopy) signal.ID { return p.Dst })
	if err != nil {
		return nil, nil, err
	}
	return NewSlicedCopy("merged<"+o.tag+">", srcID, dstID, o.SrcSlice, o.DstSlice, o.Inc), replacements, nil
}

// DotInc implements Y += dot(A, X), Nengo's matrix-vector product
// operator. Like ElementwiseInc it carries no kind-local merge
// parameters: two DotInc operators can only merge if their A operands'
// non-batch shape matches (same column count), since that is the
// dimension the concatenated A's rows must agree on.
type DotInc struct {
	id      ID
	tag     string
	A, X, Y signal.ID
}

func NewDotInc(tag string, aSig, x, y signal.ID) DotInc {
	return DotInc{tag: tag, A: aSig, X: x, Y: y}
}

func (o DotInc) ID() ID     { return o.id }
func (o DotInc) Kind() Kind  { return KindDotInc }
func (o DotInc) Tag() string { return o.tag }
func (o DotInc) Sets() []signal.ID    { return nil }
func (o DotInc) Incs() []signal.ID    { return []signal.ID{o.Y} }
func (o DotInc) Reads() []signal.ID   { return []signal.ID{o.A, o.X} }
func (o DotInc) Updates() []signal.ID { return nil }
func (o DotInc) AllSignals() []signal.ID {
	return allSignals(o.Sets(), o.Incs(), o.Reads(), o.Updates())
}
func (o DotInc) SupportsMerge() bool { return true }
func (o DotInc) CanMerge(a *signal.Arena, other Op) bool {
	p, ok := other.(DotInc)
	if !ok {
		return false
	}
	return signal.Compatible(a, []signal.ID{o.A, p.A}, concatAxis)
}
func (o DotInc) WithID(id ID) Op { o.id = id; return o }

func (o DotInc) Merge(a *signal.Arena, others []Op) (Op, map[signal.ID]signal.ID, error) {
	peers := make([]DotInc, len(others))
	for i, p := range others {
		peers[i] = p.(DotInc)
	}
	replacements := map[signal.ID]signal.ID{}
	aID, err := mergeSlot(a, replacements, o.A, peers, func(p DotInc) signal.ID { return p.A })
	if err != nil {
		return nil, nil, err
	}
	xID, err := mergeSlot(a, replacements, o.X, peers, func(p DotInc) signal.ID { return p.X })
	if err != nil {
		return nil, nil, err
	}
	yID, err := mergeSlot(a, replacements, o.Y, peers, func(p DotInc) signal.ID { return p.Y })
	if err != nil {
		return nil, nil, err
	}
	return NewDotInc("merged<"+o.tag+">", aID, xID, yID), replacements, nil
}

// SimNeurons implements `neurons.StepMath(dt, J, output, *states)`: sets
// [output]+states, reads [J]. Two SimNeurons operators can only merge if
// they share the same neuron model instance (Neurons.Key()).
type SimNeurons struct {
	id      ID
	tag     string
	Neurons NeuronType
	J       signal.ID
	Output  signal.ID
	States  []signal.ID
}

func NewSimNeurons(tag string, neurons NeuronType, j, output signal.ID, states []signal.ID) SimNeurons {
	return SimNeurons{tag: tag, Neurons: neurons, J: j, Output: output, States: states}
}

func (o SimNeurons) ID() ID     { return o.id }
func (o SimNeurons) Kind() Kind  { return KindSimNeurons }
func (o SimNeurons) Tag() string { return o.tag }
func (o SimNeurons) Sets() []signal.ID {
	out := make([]signal.ID, 0, 1+len(o.States))
	out = append(out, o.Output)
	out = append(out, o.States...)
	return out
}
func (o SimNeurons) Incs() []signal.ID    { return nil }
func (o SimNeurons) Reads() []signal.ID   { return []signal.ID{o.J} }
func (o SimNeurons) Updates() []signal.ID { return nil }
func (o SimNeurons) AllSignals() []signal.ID {
	return allSignals(o.Sets(), o.Incs(), o.Reads(), o.Updates())
}
func (o SimNeurons) SupportsMerge() bool { return true }
func (o SimNeurons) CanMerge(a *signal.Arena, other Op) bool {
	p, ok := other.(SimNeurons)
	return ok && p.Neurons.Key() == o.Neurons.Key() && len(p.States) == len(o.States)
}
func (o SimNeurons) WithID(id ID) Op { o.id = id; return o }

func (o SimNeurons) Merge(a *signal.Arena, others []Op) (Op, map[signal.ID]signal.ID, error) {
	peers := make([]SimNeurons, len(others))
	for i, p := range others {
		peers[i] = p.(SimNeurons)
	}
	replacements := map[signal.ID]signal.ID{}
	jID, err := mergeSlot(a, replacements, o.J, peers, func(p SimNeurons) signal.ID { return p.J })
	if err != nil {
		return nil, nil, err
	}
	outID, err := mergeSlot(a, replacements, o.Output, peers, func(p SimNeurons) signal.ID { return p.Output })
	if err != nil {
		return nil, nil, err
	}
	states := make([]signal.ID, len(o.States))
	for k := range o.States {
		k := k
		stID, err := mergeSlot(a, replacements, o.States[k], peers, func(p SimNeurons) signal.ID { return p.States[k] })
		if err != nil {
			return nil, nil, err
		}
		states[k] = stID
	}
	return NewSimNeurons("merged<"+o.tag+">", o.Neurons, jID, outID, states), replacements, nil
}

// CustomOp is the escape hatch for extension operator kinds outside the
// enumerated set. It never merges: SupportsMerge always reports false,
// and callers of Merge get an error rather than a silent no-op.
type CustomOp struct {
	id        ID
	tag       string
	sets      []signal.ID
	incs      []signal.ID
	reads     []signal.ID
	updates   []signal.ID
}

func NewCustomOp(tag string, sets, incs, reads, updates []signal.ID) CustomOp {
	return CustomOp{tag: tag, sets: sets, incs: incs, reads: reads, updates: updates}
}

func (o CustomOp) ID() ID     { return o.id }
func (o CustomOp) Kind() Kind  { return KindCustom }
func (o CustomOp) Tag() string { return o.tag }
func (o CustomOp) Sets() []signal.ID    { return o.sets }
func (o CustomOp) Incs() []signal.ID    { return o.incs }
func (o CustomOp) Reads() []signal.ID   { return o.reads }
func (o CustomOp) Updates() []signal.ID { return o.updates }
func (o CustomOp) AllSignals() []signal.ID {
	return allSignals(o.sets, o.incs, o.reads, o.updates)
}
func (o CustomOp) SupportsMerge() bool { return false }
func (o CustomOp) CanMerge(a *signal.Arena, other Op) bool { return false }
func (o CustomOp) WithID(id ID) Op { o.id = id; return o }
func (o CustomOp) Merge(a *signal.Arena, others []Op) (Op, map[signal.ID]signal.ID, error) {
	return nil, nil, ErrUnmergeable
}
