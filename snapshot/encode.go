package snapshot

import (
	"sort"

	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/operator"
	"github.com/grailbio/neurograph/signal"
	"github.com/grailbio/neurograph/snapshot/graphpb"
)

// encodeModel flattens m into a ModelSnapshotProto: every signal
// reachable from a surviving operator or a model.Sig entry, every
// operator's signature (kind, tag, signal-id lists, and the small bag
// of kind-specific scalar parameters that don't fit that shape), the
// flattened signal index, and the dependency edges addressed by
// position in Operators rather than by arena ID, so a snapshot is
// self-contained.
func encodeModel(m *model.Model) *graphpb.ModelSnapshotProto {
	opIndex := make(map[operator.ID]int64, len(m.Operators))
	for i, id := range m.Operators {
		opIndex[id] = int64(i)
	}

	seenSig := map[signal.ID]bool{}
	var sigOrder []signal.ID
	addSig := func(sid signal.ID) {
		if seenSig[sid] {
			return
		}
		seenSig[sid] = true
		sigOrder = append(sigOrder, sid)
		if s := m.Signals.Get(sid); s.IsView() {
			if !seenSig[s.Base()] {
				seenSig[s.Base()] = true
				sigOrder = append(sigOrder, s.Base())
			}
		}
	}

	out := &graphpb.ModelSnapshotProto{FormatVersion: graphpb.FormatVersion1}
	for _, id := range m.Operators {
		op := m.Ops.Get(id)
		for _, sid := range op.AllSignals() {
			addSig(sid)
		}
		out.Operators = append(out.Operators, encodeOperator(id, op))
	}
	for _, sid := range sigOrder {
		out.Signals = append(out.Signals, encodeSignal(m.Signals, sid))
	}

	for _, owner := range sortedOwners(m.Sig) {
		for _, name := range sortedNames(m.Sig[owner]) {
			sid := m.Sig[owner][name]
			addExtra(out, m.Signals, &seenSig, sid)
			out.SignalIndex = append(out.SignalIndex, &graphpb.SignalRefProto{
				Owner:    string(owner),
				Name:     name,
				SignalId: int64(sid),
			})
		}
	}

	for _, a := range m.DG.Nodes() {
		pa, ok := opIndex[a]
		if !ok {
			continue
		}
		for _, b := range m.DG.Successors(a) {
			pb, ok := opIndex[b]
			if !ok {
				continue
			}
			out.DependencyEdges = append(out.DependencyEdges, pa, pb)
		}
	}
	return out
}

// addExtra records sid (and, for a view, its base) in out.Signals if
// not already captured by the operator sweep above — a signal named
// only in model.Sig but never referenced by a surviving operator is
// rare but possible mid-build.
func addExtra(out *graphpb.ModelSnapshotProto, arena *signal.Arena, seen *map[signal.ID]bool, sid signal.ID) {
	if (*seen)[sid] {
		return
	}
	(*seen)[sid] = true
	out.Signals = append(out.Signals, encodeSignal(arena, sid))
	if s := arena.Get(sid); s.IsView() && !(*seen)[s.Base()] {
		(*seen)[s.Base()] = true
		out.Signals = append(out.Signals, encodeSignal(arena, s.Base()))
	}
}

func encodeSignal(arena *signal.Arena, sid signal.ID) *graphpb.SignalProto {
	s := arena.Get(sid)
	p := &graphpb.SignalProto{
		Id:       int64(sid),
		Name:     s.Name(),
		Dtype:    uint32(s.Dtype()),
		Offset:   int64(s.Offset()),
		Base:     int64(s.Base()),
		Readonly: s.Readonly(),
	}
	for _, d := range s.Shape() {
		p.Shape = append(p.Shape, int64(d))
	}
	for _, st := range s.Strides() {
		p.Strides = append(p.Strides, int64(st))
	}
	if !s.IsView() {
		p.Buf = arena.Read(sid)
	}
	return p
}

func encodeOperator(id operator.ID, op operator.Op) *graphpb.OperatorProto {
	p := &graphpb.OperatorProto{
		Id:   int64(id),
		Kind: uint32(op.Kind()),
		Tag:  op.Tag(),
	}
	for _, sid := range op.Sets() {
		p.Sets = append(p.Sets, int64(sid))
	}
	for _, sid := range op.Incs() {
		p.Incs = append(p.Incs, int64(sid))
	}
	for _, sid := range op.Reads() {
		p.Reads = append(p.Reads, int64(sid))
	}
	for _, sid := range op.Updates() {
		p.Updates = append(p.Updates, int64(sid))
	}
	switch o := op.(type) {
	case operator.SimNeurons:
		p.NeuronKey = o.Neurons.Key()
	case operator.SlicedCopy:
		p.SliceParams = []int64{
			int64(o.SrcSlice.Start), int64(o.SrcSlice.Stop), int64(o.SrcSlice.Step),
			int64(o.DstSlice.Start), int64(o.DstSlice.Stop), int64(o.DstSlice.Step),
		}
		p.Inc = o.Inc
	}
	return p
}

func sortedOwners(sig map[model.Owner]map[string]signal.ID) []model.Owner {
	out := make([]model.Owner, 0, len(sig))
	for o := range sig {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedNames(names map[string]signal.ID) []string {
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
