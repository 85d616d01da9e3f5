package operator

import "github.com/grailbio/neurograph/signal"

// ReplaceSignals returns a copy of op with every signal ID that is a key
// of repl substituted by its mapped value, wherever that ID appears in
// any of op's slots (including kind-specific named slots like
// SimNeurons.States, not just the AllSignals() union). IDs absent from
// repl are left untouched. This is the generic substitution step the
// optimizer's commit phase uses to rewrite every surviving operator's
// signal references after a pass, without switching on kind itself at
// the call site.
func ReplaceSignals(op Op, repl map[signal.ID]signal.ID) Op {
	sub := func(id signal.ID) signal.ID {
		if r, ok := repl[id]; ok {
			return r
		}
		return id
	}
	switch o := op.(type) {
	case ElementwiseInc:
		o.A, o.B, o.Y = sub(o.A), sub(o.B), sub(o.Y)
		return o
	case SlicedCopy:
		o.Src, o.Dst = sub(o.Src), sub(o.Dst)
		return o
	case DotInc:
		o.A, o.X, o.Y = sub(o.A), sub(o.X), sub(o.Y)
		return o
	case SimNeurons:
		o.J, o.Output = sub(o.J), sub(o.Output)
		o.States = subAll(o.States, repl)
		return o
	case CustomOp:
		o.sets = subAll(o.sets, repl)
		o.incs = subAll(o.incs, repl)
		o.reads = subAll(o.reads, repl)
		o.updates = subAll(o.updates, repl)
		return o
	default:
		return op
	}
}

func subAll(ids []signal.ID, repl map[signal.ID]signal.ID) []signal.ID {
	if len(ids) == 0 {
		return ids
	}
	out := make([]signal.ID, len(ids))
	changed := false
	for i, id := range ids {
		if r, ok := repl[id]; ok {
			out[i] = r
			changed = true
		} else {
			out[i] = id
		}
	}
	if !changed {
		return ids
	}
	return out
}

// NeedsReplacement reports whether any signal in op.AllSignals() is a
// key of repl. AllSignals is the union of every slot (sets/incs/
// reads/updates, which for SimNeurons already folds in States via
// Sets()), so this single check is sufficient regardless of kind.
func NeedsReplacement(op Op, repl map[signal.ID]signal.ID) bool {
	for _, sid := range op.AllSignals() {
		if _, ok := repl[sid]; ok {
			return true
		}
	}
	return false
}
