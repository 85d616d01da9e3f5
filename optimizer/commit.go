package optimizer

import (
	"github.com/grailbio/neurograph/dagutil"
	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/operator"
	"github.com/grailbio/neurograph/signal"
)

// commit applies steps 7-10 of the design's single-pass algorithm, once,
// after every kind in this pass has been swept: it registers the fused
// operators from results, propagates view rewrites for any surviving
// signal whose base was itself replaced, applies the accumulated signal
// replacement map to every surviving operator, and rewrites DG and
// model.Sig to match.
func commit(m *model.Model, results []mergeResult) error {
	// clusterRep maps every old operator ID that was part of some
	// cluster to that cluster's fused operator's (pre-rewrite) ID.
	clusterRep := map[operator.ID]operator.ID{}
	sigRepl := map[signal.ID]signal.ID{}
	for _, r := range results {
		newID := m.Ops.Add(r.fused)
		for _, old := range r.old {
			clusterRep[old] = newID
		}
		for k, v := range r.sigRepl {
			sigRepl[k] = v
		}
	}

	// candidates is the post-merge, pre-rewrite operator set: one fused
	// ID per cluster, one original ID per untouched/poisoned survivor.
	candidates := map[operator.ID]bool{}
	for _, old := range m.Operators {
		if rep, ok := clusterRep[old]; ok {
			candidates[rep] = true
		} else {
			candidates[old] = true
		}
	}

	if err := extendViewRewrites(m, candidates, sigRepl); err != nil {
		return err
	}

	// finalRepl maps each candidate to itself, or to a freshly allocated
	// operator if any of its signal slots needed substitution.
	finalRepl := map[operator.ID]operator.ID{}
	for cand := range candidates {
		op := m.Ops.Get(cand)
		if operator.NeedsReplacement(op, sigRepl) {
			finalRepl[cand] = m.Ops.Add(operator.ReplaceSignals(op, sigRepl))
		} else {
			finalRepl[cand] = cand
		}
	}

	opRepl := map[operator.ID]operator.ID{}
	for _, old := range m.Operators {
		if rep, ok := clusterRep[old]; ok {
			opRepl[old] = finalRepl[rep]
		} else {
			opRepl[old] = finalRepl[old]
		}
	}

	newOperators := make([]operator.ID, 0, len(m.Operators))
	seen := map[operator.ID]bool{}
	for _, old := range m.Operators {
		nid := opRepl[old]
		if seen[nid] {
			continue
		}
		seen[nid] = true
		newOperators = append(newOperators, nid)
	}
	m.Operators = newOperators

	newDG := dagutil.New()
	for _, id := range newOperators {
		newDG.AddNode(id)
	}
	for _, a := range m.DG.Nodes() {
		ra := opRepl[a]
		for _, b := range m.DG.Successors(a) {
			rb := opRepl[b]
			if ra == rb {
				continue // self-loop from an idempotent replacement collapses
			}
			newDG.AddEdge(ra, rb)
		}
	}
	m.DG = newDG

	for owner, names := range m.Sig {
		for name, sid := range names {
			if r, ok := sigRepl[sid]; ok {
				m.Sig[owner][name] = r
			}
		}
	}
	return nil
}

// extendViewRewrites scans every candidate operator's signal slots for
// views whose base is a key of sigRepl (i.e. a base that this pass
// replaced), and adds a view-rewrite replacement (per the propagation
// rule in signal.RewriteView) for each one found, so step 8's uniform
// substitution also reaches operators that share a base — rather than
// the exact replaced signal — with a merged cluster. Iterates to a
// fixpoint since one rewrite can expose another (a view whose base is
// itself another, not-yet-rewritten view's old base).
func extendViewRewrites(m *model.Model, candidates map[operator.ID]bool, sigRepl map[signal.ID]signal.ID) error {
	for {
		changed := false
		for cand := range candidates {
			op := m.Ops.Get(cand)
			for _, sid := range op.AllSignals() {
				if _, already := sigRepl[sid]; already {
					continue
				}
				s := m.Signals.Get(sid)
				if !s.IsView() {
					continue
				}
				newBase, ok := sigRepl[s.Base()]
				if !ok {
					continue
				}
				newView, err := signal.RewriteView(m.Signals, sid, newBase)
				if err != nil {
					return err
				}
				sigRepl[sid] = newView
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
}
