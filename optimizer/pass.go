package optimizer

import (
	"github.com/grailbio/neurograph/dagutil"
	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/operator"
	"github.com/grailbio/neurograph/signal"
)

// kindSweepOrder is the fixed heuristic order the design requires kinds
// to be processed in, before falling back to whatever other mergeable
// kinds are present in the graph.
var kindSweepOrder = []operator.Kind{
	operator.KindElementwiseInc,
	operator.KindSlicedCopy,
	operator.KindDotInc,
	operator.KindSimNeurons,
}

// pass runs one sweep over all operator kinds. viewsOnly restricts
// candidate op1s to operators that reference at least one view (the
// bucket built per kind still holds every operator of that kind); in
// non-view mode, the sweep stops after
// the first kind that actually produces a merge, per the driver's
// alternating-rhythm heuristic (see SPEC_FULL.md's carried Open
// Question). It reports whether any merge was made.
func pass(m *model.Model, passIndex int, viewsOnly bool) (bool, error) {
	order, err := dagutil.Toposort(m.DG)
	if err != nil {
		return false, newInvariantError(passIndex, err)
	}
	// closure and the per-kind buckets are both computed once, up front,
	// against the pre-pass graph: every kind's sweep this pass tests
	// independence and clustering against this same frozen snapshot, and
	// only the final commit (view-rewrite, signal replacement, DG and
	// model.sig rewrite) is applied, once, after every kind has been
	// swept.
	closure := dagutil.TransitiveClosure(m.DG, order)

	buckets := bucketByKind(m)
	kinds := sweepKindsInOrder(buckets)

	// poisoned is shared across every kind swept this pass: once an
	// operator shares a signal with a merged cluster it must not join a
	// cluster under any other kind either, even though kinds are swept
	// one at a time.
	poisoned := map[operator.ID]bool{}

	var all []mergeResult
	for _, kind := range kinds {
		ids := buckets[kind]
		sample := m.Ops.Get(ids[0])
		if !sample.SupportsMerge() {
			continue
		}
		results, err := sweepKind(m, passIndex, ids, closure, viewsOnly, poisoned)
		if err != nil {
			return len(all) > 0, err
		}
		if len(results) > 0 {
			all = append(all, results...)
			if !viewsOnly {
				// Non-view mode stops after the first productive kind,
				// to force the alternating views/non-views rhythm
				// rather than churning every kind's replacements before
				// the next views pass gets a chance to run.
				break
			}
		}
	}
	if len(all) == 0 {
		return false, nil
	}
	if err := commit(m, all); err != nil {
		return true, newInvariantError(passIndex, err)
	}
	return true, nil
}

func bucketByKind(m *model.Model) map[operator.Kind][]operator.ID {
	buckets := map[operator.Kind][]operator.ID{}
	for _, id := range m.Operators {
		k := m.Ops.Get(id).Kind()
		buckets[k] = append(buckets[k], id)
	}
	return buckets
}

// sweepKindsInOrder returns the kinds present in buckets, starting with
// kindSweepOrder (in that fixed order, skipping absent kinds) and then
// any remaining kinds in the (deterministic) order operator.Kind's
// integer values assign them.
func sweepKindsInOrder(buckets map[operator.Kind][]operator.ID) []operator.Kind {
	seen := map[operator.Kind]bool{}
	out := make([]operator.Kind, 0, len(buckets))
	for _, k := range kindSweepOrder {
		if _, ok := buckets[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	rest := make([]operator.Kind, 0, len(buckets))
	for k := range buckets {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	// Deterministic tiebreak for "remaining" kinds: Kind's declared
	// integer order, not map iteration order.
	for i := 0; i < len(rest); i++ {
		for j := i + 1; j < len(rest); j++ {
			if rest[j] < rest[i] {
				rest[i], rest[j] = rest[j], rest[i]
			}
		}
	}
	return append(out, rest...)
}

// mergeResult is recorded once per applied cluster, before the
// end-of-pass view-rewrite and apply phases (commit) run.
type mergeResult struct {
	old     []operator.ID // the operators the cluster fused
	fused   operator.Op
	sigRepl map[signal.ID]signal.ID
}

// sweepKind performs steps 5-6 of the design's single-pass algorithm for
// one operator kind: sort by view offset, sweep left to right building
// clusters, and apply (via Merge) every cluster of size >= 2. Applying a
// cluster here only invokes Merge to produce the fused operator, its
// replaced signals, and bookkeeping (steps 7-10's global rewrite happens
// once per pass, in commit, after every kind has been swept this way).
func sweepKind(m *model.Model, passIndex int, ids []operator.ID, closure map[operator.ID]map[operator.ID]bool, viewsOnly bool, poisoned map[operator.ID]bool) ([]mergeResult, error) {
	items := orderedBucket(m, ids)

	var results []mergeResult

	for i, op1 := range items {
		if poisoned[op1] {
			continue
		}
		if viewsOnly && !hasView(m, op1) {
			continue
		}
		cluster := buildCluster(m, items, i, closure, poisoned)
		if len(cluster) < 2 {
			continue
		}
		fused, sigRepl, err := applyCluster(m, cluster)
		if err != nil {
			return results, newInvariantError(passIndex, err)
		}
		results = append(results, mergeResult{old: cluster, fused: fused, sigRepl: sigRepl})
		for _, id := range cluster {
			poisoned[id] = true
		}
		poisonSharedSignals(m, cluster, poisoned)
	}

	return results, nil
}

// buildCluster sweeps forward from items[start] accumulating mergeable,
// sequential peers, stopping early once a candidate's first view starts
// strictly past the end of the cluster's tracked view range (later
// operators, being sorted by offset, cannot be sequential with this
// cluster either).
func buildCluster(m *model.Model, items []operator.ID, start int, closure map[operator.ID]map[operator.ID]bool, poisoned map[operator.ID]bool) []operator.ID {
	op1 := items[start]
	o1 := m.Ops.Get(op1)
	cluster := []operator.ID{op1}
	tail := o1

	_, clusterEnd, haveOffset := firstViewRange(m, op1)

	for j := start + 1; j < len(items); j++ {
		op2 := items[j]
		if poisoned[op2] {
			continue
		}
		o2 := m.Ops.Get(op2)

		if mergeableCandidate(m, o1, tail, op2, o2, closure) {
			cluster = append(cluster, op2)
			tail = o2
			if _, end2, ok := firstViewRange(m, op2); ok {
				clusterEnd = end2
				haveOffset = true
			}
			continue
		}
		if haveOffset {
			if start2, _, ok := firstViewRange(m, op2); ok && start2 > clusterEnd {
				break
			}
		}
	}
	return cluster
}

func mergeableCandidate(m *model.Model, o1 operator.Op, tail operator.Op, op2 operator.ID, o2 operator.Op, closure map[operator.ID]map[operator.ID]bool) bool {
	if !dagutil.Independent(closure, o1.ID(), op2) {
		return false
	}
	if !viewIndicesMatch(m, o1, o2) {
		return false
	}
	if !o1.CanMerge(m.Signals, o2) {
		return false
	}
	if !sequential(m, tail, o2) {
		return false
	}
	return true
}

// poisonSharedSignals marks every surviving, not-yet-poisoned operator
// in the whole model — not just this kind's bucket, since poisoning
// must hold for the rest of the pass regardless of which kind sweeps
// next — that shares any signal with a just-merged cluster, per the
// design's "an operator that shares any signal with a freshly merged
// one is poisoned even if not itself merged" rule. Without this, a
// later cluster (in this kind or another) could merge a neighbor into a
// layout that's about to be invalidated by the pending signal rewrite.
func poisonSharedSignals(m *model.Model, cluster []operator.ID, poisoned map[operator.ID]bool) {
	touched := map[signal.ID]bool{}
	for _, id := range cluster {
		for _, sid := range m.Ops.Get(id).AllSignals() {
			touched[sid] = true
		}
	}
	for _, id := range m.Operators {
		if poisoned[id] {
			continue
		}
		for _, sid := range m.Ops.Get(id).AllSignals() {
			if touched[sid] {
				poisoned[id] = true
				break
			}
		}
	}
}

// applyCluster invokes cluster[0].Merge(cluster[1:]) and registers the
// fused operator in the arena.
func applyCluster(m *model.Model, cluster []operator.ID) (operator.Op, map[signal.ID]signal.ID, error) {
	first := m.Ops.Get(cluster[0])
	rest := make([]operator.Op, len(cluster)-1)
	for i, id := range cluster[1:] {
		rest[i] = m.Ops.Get(id)
	}
	return first.Merge(m.Signals, rest)
}
