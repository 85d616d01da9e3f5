package optimizer

import (
	"encoding/binary"

	"github.com/biogo/store/llrb"
	"blainsmith.com/go/seahash"

	"github.com/grailbio/neurograph/fingerprint"
	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/operator"
)

// bucketItem is the llrb.Comparable the per-kind sweep orders operators
// by: primarily the byte offset of the operator's first view signal (or
// zero for an all-bases operator), with ties broken by a content hash
// (seahash over the operator's fingerprint) rather than arena insertion
// order, so that two operators landing on the same offset sort the same
// way regardless of the order model building happened to add them in.
type bucketItem struct {
	op       operator.ID
	offset   int
	tiebreak uint64
}

func (b *bucketItem) Compare(c llrb.Comparable) int {
	o := c.(*bucketItem)
	if b.offset != o.offset {
		if b.offset < o.offset {
			return -1
		}
		return 1
	}
	if b.tiebreak != o.tiebreak {
		if b.tiebreak < o.tiebreak {
			return -1
		}
		return 1
	}
	if b.op != o.op {
		if b.op < o.op {
			return -1
		}
		return 1
	}
	return 0
}

// orderedBucket sorts ids (all of the same operator.Kind) by view offset
// using an LLRB tree rather than sort.Slice, giving the deterministic,
// ordered traversal the design requires "for free" from the container,
// the same way cmd/bio-bam-sort/sorter keeps sortEntry records ordered
// in an llrb.Tree instead of re-sorting a slice.
func orderedBucket(m *model.Model, ids []operator.ID) []operator.ID {
	tree := llrb.Tree{}
	for _, id := range ids {
		start, _, _ := firstViewRange(m, id)
		tree.Insert(&bucketItem{
			op:       id,
			offset:   start,
			tiebreak: contentTiebreak(m, id),
		})
	}
	out := make([]operator.ID, 0, len(ids))
	tree.Do(func(item llrb.Comparable) bool {
		out = append(out, item.(*bucketItem).op)
		return false // not done: visit every item
	})
	return out
}

// contentTiebreak seahashes the operator's fingerprint, so the ordering
// key is a pure function of operator content, not of the operator's
// arena-assigned ID.
func contentTiebreak(m *model.Model, id operator.ID) uint64 {
	op := m.Ops.Get(id)
	fp := fingerprint.Operator(m.Signals, op)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], fp)
	return seahash.Sum64(buf[:])
}
