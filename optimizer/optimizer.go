// Package optimizer implements the operator-graph merge optimizer: an
// iterative, multi-pass driver that rewrites a model's operator graph
// into an equivalent but smaller one by fusing mutually independent,
// same-kind operators whose operands can be concatenated into
// contiguous memory, while keeping the dependency graph and every
// surviving signal reference consistent.
package optimizer

import (
	"context"
	"time"

	"github.com/grailbio/base/log"

	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/operator"
)

// Optimize runs the merge optimizer to fixpoint against m, rewriting
// m.Operators, m.Sig and m.DG in place. ctx bounds wall-clock time
// across many passes on a large model (checked only between passes,
// never inside one, matching the single-threaded, no-suspension-point
// scheduling model); it is not required to be canceled for Optimize to
// return promptly on an already-stable graph.
//
// Optimize alternates a views-only pass (considering only operators
// that reference at least one view) with a non-view pass (considering
// base-only operators), starting with a views-only pass to establish
// memory-ordering constraints before any base concatenation is
// attempted, and terminates once a non-view pass followed by a
// views-only pass both fail to reduce len(m.Operators).
func Optimize(ctx context.Context, m *model.Model) error {
	passIndex := 0
	run := func(viewsOnly bool) (bool, error) {
		passIndex++
		before := len(m.Operators)
		start := time.Now()
		histBefore := histogram(m)

		reduced, err := pass(m, passIndex, viewsOnly)

		after := len(m.Operators)
		logPass(passIndex, viewsOnly, before, after, time.Since(start), histBefore)
		if err != nil {
			return reduced, err
		}
		return after < before, nil
	}

	if _, err := run(true); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		nonViewReduced, err := run(false)
		if err != nil {
			return err
		}
		viewsReduced, err := run(true)
		if err != nil {
			return err
		}
		if !nonViewReduced && !viewsReduced {
			return nil
		}
	}
}

func histogram(m *model.Model) map[operator.Kind]int {
	h := map[operator.Kind]int{}
	for _, id := range m.Operators {
		h[m.Ops.Get(id).Kind()]++
	}
	return h
}

func logPass(passIndex int, viewsOnly bool, before, after int, elapsed time.Duration, hist map[operator.Kind]int) {
	mode := "non-view"
	if viewsOnly {
		mode = "views-only"
	}
	log.Printf("optimizer: pass %d (%s): %d -> %d operators in %s", passIndex, mode, before, after, elapsed)
	for kind, n := range hist {
		log.Debug.Printf("optimizer: pass %d: %d %s operator(s) before sweep", passIndex, n, kind)
	}
}
