package operator

import "errors"

// ErrUnmergeable is returned by Merge on an operator kind whose
// SupportsMerge is false (e.g. CustomOp). The optimizer never calls
// Merge on such operators — this exists so a caller that does is told
// plainly why, rather than silently producing a no-op.
var ErrUnmergeable = errors.New("operator: this operator kind does not support merging")
