package optimizer

import (
	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/operator"
)

// firstViewRange returns the byte range of the first view signal in
// op's AllSignals(), or ok=false if op references no view at all (a
// pure-bases operator sorts as if its offset were zero, and never
// triggers or ends buildCluster's early break).
func firstViewRange(m *model.Model, op operator.ID) (start, end int, ok bool) {
	o := m.Ops.Get(op)
	for _, sid := range o.AllSignals() {
		s := m.Signals.Get(sid)
		if s.IsView() {
			start, end = s.ByteRange()
			return start, end, true
		}
	}
	return 0, 0, false
}

// hasView reports whether op references at least one view signal.
func hasView(m *model.Model, op operator.ID) bool {
	_, _, ok := firstViewRange(m, op)
	return ok
}

// viewIndicesMatch reports whether a and b's AllSignals() slots agree,
// position by position, on which slots are views, and — for every
// slot that is a view on both sides — that the views share dtype,
// base and strides. Slots that are bases on both sides are unconstrained
// here; MergeSignals screens their own preconditions at apply time.
func viewIndicesMatch(m *model.Model, a, b operator.Op) bool {
	as, bs := a.AllSignals(), b.AllSignals()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		sa := m.Signals.Get(as[i])
		sb := m.Signals.Get(bs[i])
		if sa.IsView() != sb.IsView() {
			return false
		}
		if !sa.IsView() {
			continue
		}
		if sa.Dtype() != sb.Dtype() {
			return false
		}
		if sa.Base() != sb.Base() {
			return false
		}
		if !intSlicesEqual(sa.Strides(), sb.Strides()) {
			return false
		}
	}
	return true
}

// sequential reports whether, zipping the AllSignals() of tail (the most
// recently accepted cluster member) and candidate, every corresponding
// signal pair is either both bases (unconstrained — a later non-view
// pass handles base concatenation) or both views whose byte ranges abut
// exactly (tail ends where candidate starts). A slot that is a view on
// one side and a base on the other breaks sequentiality entirely.
func sequential(m *model.Model, tail, candidate operator.Op) bool {
	ts, cs := tail.AllSignals(), candidate.AllSignals()
	if len(ts) != len(cs) {
		return false
	}
	for i := range ts {
		st := m.Signals.Get(ts[i])
		sc := m.Signals.Get(cs[i])
		if !st.IsView() && !sc.IsView() {
			continue
		}
		if st.IsView() != sc.IsView() {
			return false
		}
		_, tailEnd := st.ByteRange()
		candStart, _ := sc.ByteRange()
		if tailEnd != candStart {
			return false
		}
	}
	return true
}

func intSlicesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// concatAxis is the axis every built-in operator kind concatenates its
// operands along when merged: axis 0. Operators in this implementation
// only ever carry rank-1 (flat) or batch-leading-axis signals, so a
// single fixed concatenation axis (rather than a per-kind configurable
// one) matches every kind's Merge implementation in the operator
// package.
const concatAxis = 0
