// Package fingerprint computes deterministic, content-based hashes of
// signals and operators. These hashes are never used for correctness
// decisions inside the optimizer — signal and operator identity is
// always via arena index — they exist only for diagnostics (log lines,
// graphopt's histogram labels) and as cache/snapshot keys, so a
// collision degrades a cache hit rather than correctness.
package fingerprint

import (
	"encoding/binary"

	farm "github.com/dgryski/go-farm"

	"github.com/grailbio/neurograph/operator"
	"github.com/grailbio/neurograph/signal"
)

// Signal returns a FarmHash fingerprint of id's shape, strides, offset,
// dtype and name — everything that determines what id denotes, nothing
// that depends on where it happens to sit in the arena.
func Signal(a *signal.Arena, id signal.ID) uint64 {
	s := a.Get(id)
	buf := encodeSignal(s)
	return farm.Hash64(buf)
}

func encodeSignal(s *signal.Signal) []byte {
	buf := make([]byte, 0, 64+len(s.Name()))
	buf = appendUint64(buf, uint64(s.Dtype()))
	buf = appendUint64(buf, uint64(s.Offset()))
	buf = appendUint64(buf, boolToUint64(s.IsView()))
	buf = appendUint64(buf, boolToUint64(s.Readonly()))
	for _, d := range s.Shape() {
		buf = appendUint64(buf, uint64(d))
	}
	for _, st := range s.Strides() {
		buf = appendUint64(buf, uint64(st))
	}
	buf = append(buf, s.Name()...)
	return buf
}

// Operator returns a FarmHash fingerprint of op's kind and the ordered
// fingerprints of its signals (via Signal), seeding each subsequent
// signal's hash with the running total so permutations of the same
// signal set fingerprint differently (order matters: all_signals is an
// ordered tuple).
func Operator(a *signal.Arena, op operator.Op) uint64 {
	h := farm.Hash64WithSeed([]byte(op.Kind().String()), 0)
	for _, sid := range op.AllSignals() {
		sigHash := Signal(a, sid)
		var seedBuf [8]byte
		binary.LittleEndian.PutUint64(seedBuf[:], sigHash)
		h = farm.Hash64WithSeed(seedBuf[:], h)
	}
	return h
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
