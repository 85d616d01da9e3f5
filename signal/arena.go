package signal

// Arena is an index-addressed store of Signals. Operators reference
// signals only by ID; a merge pass builds new Signals in the Arena and
// hands back an old-ID -> new-ID replacement map rather than mutating any
// existing Signal, so that a partially-applied replacement can never
// leave a live reference to a signal whose base has already changed
// shape underneath it.
type Arena struct {
	signals []*Signal
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	// Index 0 is never issued: it lets the zero ID mean "absent".
	return &Arena{signals: []*Signal{nil}}
}

// Get returns the Signal for id. It panics if id is unknown, matching the
// "this is a programming error" treatment of any out-of-arena reference.
func (a *Arena) Get(id ID) *Signal {
	s := a.signals[int(id)]
	if s == nil {
		panic("signal: unknown ID in arena")
	}
	return s
}

// NewBase allocates a new base signal owning buf, with the given shape
// and row-major (C-order) byte strides derived from shape.
func (a *Arena) NewBase(name string, shape []int, buf []float64, readonly bool) ID {
	id := ID(len(a.signals))
	s := &Signal{
		id:       id,
		name:     name,
		dtype:    Float64,
		shape:    append([]int(nil), shape...),
		strides:  rowMajorStrides(shape),
		offset:   0,
		base:     id,
		readonly: readonly,
		buf:      buf,
	}
	a.signals = append(a.signals, s)
	return id
}

// NewView allocates a new view signal into base, which must itself be a
// base (views of views are disallowed per the design). Returns
// ErrViewOfView if base is itself a view, or ErrBufferOverrun if the
// requested range would read or write outside base's buffer.
func (a *Arena) NewView(name string, base ID, shape, strides []int, offset int, readonly bool) (ID, error) {
	baseSig := a.Get(base)
	if baseSig.IsView() {
		return 0, ErrViewOfView
	}
	size := 1
	for _, d := range shape {
		size *= d
	}
	if offset+size*itemSize > len(baseSig.buf)*itemSize && size > 0 {
		return 0, ErrBufferOverrun
	}
	id := ID(len(a.signals))
	s := &Signal{
		id:       id,
		name:     name,
		dtype:    Float64,
		shape:    append([]int(nil), shape...),
		strides:  append([]int(nil), strides...),
		offset:   offset,
		base:     base,
		readonly: readonly,
	}
	a.signals = append(a.signals, s)
	return id, nil
}

// rowMajorStrides computes contiguous (C-order) byte strides for shape.
func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := itemSize
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

// Read materializes id's elements in row-major iteration order by walking
// its shape/strides/offset over its base's buffer. It is intended for
// tests and diagnostics, not the hot path.
func (a *Arena) Read(id ID) []float64 {
	s := a.Get(id)
	base := a.Get(s.Base())
	out := make([]float64, s.Size())
	idx := make([]int, s.Rank())
	for i := range out {
		off := s.offset
		for ax, v := range idx {
			off += v * s.strides[ax]
		}
		out[i] = base.buf[off/itemSize]
		incIndex(idx, s.shape)
	}
	return out
}

// Write stores vals (in row-major iteration order) into id's elements. It
// returns an error if id is readonly.
func (a *Arena) Write(id ID, vals []float64) error {
	s := a.Get(id)
	if s.readonly {
		return ErrReadonlyWrite
	}
	base := a.Get(s.Base())
	idx := make([]int, s.Rank())
	for i := range vals {
		off := s.offset
		for ax, v := range idx {
			off += v * s.strides[ax]
		}
		base.buf[off/itemSize] = vals[i]
		incIndex(idx, s.shape)
	}
	return nil
}

// incIndex advances idx (row-major, last axis fastest) in place according
// to shape, treating idx as a multi-dimensional counter.
func incIndex(idx, shape []int) {
	for ax := len(shape) - 1; ax >= 0; ax-- {
		idx[ax]++
		if idx[ax] < shape[ax] {
			return
		}
		idx[ax] = 0
	}
}
