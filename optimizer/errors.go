package optimizer

import (
	"fmt"

	baseerrors "github.com/grailbio/base/errors"
)

// InvariantError wraps a violation of one of the optimizer's structural
// invariants — a signal.MergeSignalsOrViews precondition the pass should
// already have screened, or a post-pass signal still reaching a freed
// base. These are programming errors: the pass that triggers one aborts
// and the caller should treat Optimize's returned error as fatal, per
// the design's error-handling categories.
type InvariantError struct {
	Pass int
	Err  error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("optimizer: pass %d: invariant violation: %v", e.Pass, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

// newInvariantError wraps err with pass context via grailbio/base/errors,
// matching the rest of this codebase's error-wrapping convention.
func newInvariantError(pass int, err error) error {
	return &InvariantError{Pass: pass, Err: baseerrors.E(err, fmt.Sprintf("optimizer pass %d", pass))}
}
