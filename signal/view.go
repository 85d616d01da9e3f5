package signal

// Compatible reports whether signals (indexed by ids into a) could be
// concatenated along axis: identical rank, identical shape on every axis
// except axis, identical dtype, and — for views — identical base and
// strides (a base is its own base, so a view and a base never match).
// It does not check sequentiality of view byte ranges; that is a
// separate, stricter condition checked by MergeViews and by the
// optimizer's sequential-memory-access test.
func Compatible(a *Arena, ids []ID, axis int) bool {
	if len(ids) == 0 {
		return false
	}
	first := a.Get(ids[0])
	for _, id := range ids {
		s := a.Get(id)
		if s.Rank() != first.Rank() {
			return false
		}
		if !shapeMatchesExceptAxis(s.shape, first.shape, axis) {
			return false
		}
		if s.dtype != first.dtype {
			return false
		}
		if s.IsView() || first.IsView() {
			if s.base != first.base {
				return false
			}
			if !intsEqual(s.strides, first.strides) {
				return false
			}
		}
	}
	return true
}

func shapeMatchesExceptAxis(a, b []int, axis int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if i == axis {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intsEqual(a, b []int) bool {
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

// checkSignalsMergeable validates the preconditions of MergeSignals:
// none of ids may be a view, and all must share rank and off-axis shape.
func checkSignalsMergeable(a *Arena, ids []ID, axis int) error {
	if len(ids) == 0 {
		return ErrEmptyInput
	}
	first := a.Get(ids[0])
	for _, id := range ids {
		s := a.Get(id)
		if s.IsView() {
			return ErrNotBases
		}
		if s.Rank() != first.Rank() {
			return ErrRankMismatch
		}
		if !shapeMatchesExceptAxis(s.shape, first.shape, axis) {
			return ErrShapeMismatch
		}
		if s.dtype != first.dtype {
			return ErrDtypeMismatch
		}
	}
	return nil
}

// MergeSignals concatenates base signals ids along axis into one new base
// signal with freshly allocated, contiguous backing storage. For every
// input it also allocates a view into the merged base selecting the slab
// that input originally occupied, and records old-ID -> view-ID into
// replacements. Readonly on the result is the conjunction of inputs'
// Readonly. It is an error (ErrNotBases) if any input is itself a view.
func MergeSignals(a *Arena, ids []ID, axis int, name string, replacements map[ID]ID) (ID, error) {
	if err := checkSignalsMergeable(a, ids, axis); err != nil {
		return 0, err
	}

	first := a.Get(ids[0])
	newShape := append([]int(nil), first.shape...)
	newShape[axis] = 0
	readonly := true
	for _, id := range ids {
		s := a.Get(id)
		newShape[axis] += s.shape[axis]
		readonly = readonly && s.readonly
	}

	size := 1
	for _, d := range newShape {
		size *= d
	}
	newBuf := make([]float64, size)
	newStrides := rowMajorStrides(newShape)

	start := 0
	for _, id := range ids {
		s := a.Get(id)
		copyInto(newBuf, newStrides, start, axis, s, a)
		start += s.shape[axis]
	}

	mergedID := a.NewBase(mergedName(a, ids), newShape, newBuf, readonly)

	start = 0
	for _, id := range ids {
		s := a.Get(id)
		viewShape := append([]int(nil), s.shape...)
		viewOffset := start * newStrides[axis]
		viewID, err := a.NewView(s.name, mergedID, viewShape, newStrides, viewOffset, s.readonly)
		if err != nil {
			// Can't happen: viewShape always fits inside the buffer we
			// just sized to hold it.
			return 0, err
		}
		replacements[id] = viewID
		start += s.shape[axis]
	}

	return mergedID, nil
}

// copyInto writes s's elements (read through its own shape/strides/offset)
// into dst at the slab starting at index `start` along `axis`, where dst
// is laid out according to dstStrides.
func copyInto(dst []float64, dstStrides []int, start, axis int, s *Signal, a *Arena) {
	base := a.Get(s.Base())
	idx := make([]int, s.Rank())
	for i := 0; i < s.Size(); i++ {
		srcOff := s.offset
		for ax, v := range idx {
			srcOff += v * s.strides[ax]
		}
		dstOff := 0
		for ax, v := range idx {
			vv := v
			if ax == axis {
				vv += start
			}
			dstOff += vv * dstStrides[ax]
		}
		dst[dstOff/itemSize] = base.buf[srcOff/itemSize]
		incIndex(idx, s.shape)
	}
}

func mergedName(a *Arena, ids []ID) string {
	name := "merged<"
	for i, id := range ids {
		if i > 0 {
			name += ", "
		}
		name += a.Get(id).name
	}
	return name + ">"
}

// checkViewsMergeable validates the preconditions of MergeViews: all
// signals must be views sharing base, dtype, rank and strides, and their
// byte ranges must be exactly sequential in the given order (no gaps, no
// overlaps, no reordering).
func checkViewsMergeable(a *Arena, ids []ID, axis int) error {
	if len(ids) == 0 {
		return ErrEmptyInput
	}
	first := a.Get(ids[0])
	if !first.IsView() {
		return ErrNotViews
	}
	_, end := first.ByteRange()
	for i, id := range ids {
		s := a.Get(id)
		if !s.IsView() {
			return ErrNotViews
		}
		if s.base != first.base {
			return ErrBaseMismatch
		}
		if s.dtype != first.dtype {
			return ErrDtypeMismatch
		}
		if s.Rank() != first.Rank() {
			return ErrRankMismatch
		}
		if !intsEqual(s.strides, first.strides) {
			return ErrStrideMismatch
		}
		if !shapeMatchesExceptAxis(s.shape, first.shape, axis) {
			return ErrShapeMismatch
		}
		if i == 0 {
			continue
		}
		start, next := s.ByteRange()
		if start != end {
			return ErrNotSequential
		}
		end = next
	}
	return nil
}

// MergeViews concatenates view signals ids (which must all share a base,
// dtype, rank and strides, and whose byte ranges must be exactly
// sequential in the given order) into a single view spanning their
// combined byte range, with the same strides. It returns ErrNotSequential
// if there is a gap or overlap between consecutive views.
func MergeViews(a *Arena, ids []ID, axis int) (ID, error) {
	if err := checkViewsMergeable(a, ids, axis); err != nil {
		return 0, err
	}
	first := a.Get(ids[0])
	shape := append([]int(nil), first.shape...)
	for _, id := range ids[1:] {
		shape[axis] += a.Get(id).shape[axis]
	}
	return a.NewView(first.name, first.base, shape, first.strides, first.offset, allReadonly(a, ids))
}

func allReadonly(a *Arena, ids []ID) bool {
	for _, id := range ids {
		if !a.Get(id).readonly {
			return false
		}
	}
	return true
}

// MergeSignalsOrViews dispatches to MergeSignals or MergeViews depending
// on whether ids are all bases or all views; a mix of the two is
// ErrMixedViewsBases.
func MergeSignalsOrViews(a *Arena, ids []ID, axis int, name string, replacements map[ID]ID) (ID, error) {
	if len(ids) == 0 {
		return 0, ErrEmptyInput
	}
	views := 0
	for _, id := range ids {
		if a.Get(id).IsView() {
			views++
		}
	}
	switch views {
	case len(ids):
		return MergeViews(a, ids, axis)
	case 0:
		return MergeSignals(a, ids, axis, name, replacements)
	default:
		return 0, ErrMixedViewsBases
	}
}

// RewriteView recomputes a view signal after its (possibly indirect) base
// has been replaced by baseReplacement, per the view-replacement
// propagation rule: the new offset accounts for baseReplacement's own
// offset if baseReplacement is itself a view, strides are rescaled
// per-axis by (new base stride / old base stride), and the result always
// points directly at the ultimate base (never at another view), so that
// view-to-base chains never exceed length 1.
func RewriteView(a *Arena, view ID, baseReplacement ID) (ID, error) {
	s := a.Get(view)
	oldBase := a.Get(s.base)
	repl := a.Get(baseReplacement)

	offset := s.offset
	ultimateBase := baseReplacement
	if repl.IsView() {
		offset += repl.offset
		ultimateBase = repl.base
	}

	strides := make([]int, len(s.strides))
	for i := range strides {
		var oldBaseStride, replStride int
		if i < len(oldBase.strides) {
			oldBaseStride = oldBase.strides[i]
		} else {
			oldBaseStride = 1
		}
		if i < len(repl.strides) {
			replStride = repl.strides[i]
		} else {
			replStride = 1
		}
		if oldBaseStride == 0 {
			strides[i] = s.strides[i]
			continue
		}
		strides[i] = (s.strides[i] / oldBaseStride) * replStride
	}

	return a.NewView(s.name, ultimateBase, s.shape, strides, offset, s.readonly)
}
