// Package operator implements the operator model described in the
// design: a node in the dependency graph that declares four disjoint
// signal lists (sets/incs/reads/updates), a merge-compatibility
// predicate, and a merge constructor that fuses a cluster of
// mutually-independent, same-kind operators into one operator plus a
// signal-replacement map.
package operator

import "github.com/grailbio/neurograph/signal"

// Kind discriminates the closed set of built-in operator kinds the
// optimizer knows how to fuse, plus the CustomOp escape hatch for
// extension kinds that never participate in merging.
type Kind int

const (
	KindElementwiseInc Kind = iota
	KindSlicedCopy
	KindDotInc
	KindSimNeurons
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindElementwiseInc:
		return "ElementwiseInc"
	case KindSlicedCopy:
		return "SlicedCopy"
	case KindDotInc:
		return "DotInc"
	case KindSimNeurons:
		return "SimNeurons"
	case KindCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// ID addresses an Op within an Arena.
type ID int

// Op is a node in the operator graph. Implementations are immutable
// value types; Merge never mutates self or others, it returns a new Op.
type Op interface {
	// ID is this operator's arena-stable identity. It is assigned by
	// Arena.Add via WithID and is otherwise zero.
	ID() ID

	// Kind is the tagged discriminant used for merge bucketing and
	// dispatch.
	Kind() Kind

	// Tag is a diagnostic label, analogous to Nengo's Operator.tag.
	Tag() string

	// Sets, Incs, Reads and Updates are the four disjoint signal lists
	// the design requires every operator to declare.
	Sets() []signal.ID
	Incs() []signal.ID
	Reads() []signal.ID
	Updates() []signal.ID

	// AllSignals is the ordered union sets++incs++reads++updates used
	// for view-index matching during merge clustering.
	AllSignals() []signal.ID

	// SupportsMerge is a static, kind-level flag: CustomOp always
	// reports false.
	SupportsMerge() bool

	// CanMerge reports whether self and other are merge-compatible:
	// same concrete kind plus any kind-local parameters (e.g. the same
	// neuron model instance for SimNeurons, identical slices for
	// SlicedCopy). ElementwiseInc also checks rank and off-axis shape
	// on its A, B and Y slots, and DotInc on its A slot; the other
	// kinds do not check operand shapes here, so a shape mismatch in
	// an unchecked slot surfaces as an error from Merge. a resolves the
	// signal IDs involved; it is never mutated.
	CanMerge(a *signal.Arena, other Op) bool

	// Merge fuses self and others (all mutually CanMerge-compatible)
	// into one operator whose operand slots are the concatenation of
	// the originals', via signal.MergeSignalsOrViews. It returns the
	// fused operator and a map from every pre-merge signal involved to
	// its replacement view into the fused operand.
	Merge(a *signal.Arena, others []Op) (Op, map[signal.ID]signal.ID, error)

	// WithID returns a copy of this Op with its ID set to id. Used only
	// by Arena.Add.
	WithID(id ID) Op
}

// Arena is an index-addressed store of Ops, mirroring signal.Arena: a
// merge pass allocates new Ops here rather than mutating existing ones.
type Arena struct {
	ops []Op
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{ops: []Op{nil}} // index 0 unused, as in signal.Arena
}

// Add assigns op a fresh ID (via op.WithID) and stores it, returning the
// ID.
func (a *Arena) Add(op Op) ID {
	id := ID(len(a.ops))
	a.ops = append(a.ops, op.WithID(id))
	return id
}

// Get returns the Op for id.
func (a *Arena) Get(id ID) Op {
	op := a.ops[int(id)]
	if op == nil {
		panic("operator: unknown ID in arena")
	}
	return op
}

// allSignals is the shared helper every concrete kind uses to compute its
// AllSignals() from its four disjoint lists.
func allSignals(sets, incs, reads, updates []signal.ID) []signal.ID {
	out := make([]signal.ID, 0, len(sets)+len(incs)+len(reads)+len(updates))
	out = append(out, sets...)
	out = append(out, incs...)
	out = append(out, reads...)
	out = append(out, updates...)
	return out
}
