package dagutil

import (
	"errors"

	"github.com/grailbio/neurograph/operator"
)

// ErrCycle is returned by Toposort when the graph is not a DAG.
var ErrCycle = errors.New("dagutil: dependency graph has a cycle")

// Toposort returns g's nodes in a topological order: every node
// appears after all the nodes it depends on. Among nodes with no
// remaining unscheduled dependency at a given step, the one that
// appears earliest in g's insertion order (Nodes()) is scheduled
// first, so the result is a deterministic function of the order edges
// were added, not of map iteration.
func Toposort(g *Graph) ([]operator.ID, error) {
	indeg := make(map[operator.ID]int, g.Len())
	for _, n := range g.order {
		indeg[n] = 0
	}
	for _, n := range g.order {
		for _, s := range g.succ[n] {
			indeg[s]++
		}
	}

	// ready holds nodes with indeg 0, in the insertion order they were
	// first seen, so a plain scan (rather than a priority structure)
	// gives a stable, deterministic schedule.
	ready := make([]operator.ID, 0, g.Len())
	for _, n := range g.order {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}

	out := make([]operator.ID, 0, g.Len())
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		out = append(out, n)
		for _, s := range g.succ[n] {
			indeg[s]--
			if indeg[s] == 0 {
				ready = insertInOrder(ready, s, g)
			}
		}
	}

	if len(out) != g.Len() {
		return nil, ErrCycle
	}
	return out, nil
}

// insertInOrder inserts newly-ready node s into ready at the position
// that preserves g's first-seen order across the combined slice, so
// ties among simultaneously-ready nodes always resolve the same way
// regardless of which edge made them ready.
func insertInOrder(ready []operator.ID, s operator.ID, g *Graph) []operator.ID {
	pos := indexInOrder(g, s)
	i := 0
	for i < len(ready) && indexInOrder(g, ready[i]) < pos {
		i++
	}
	out := make([]operator.ID, 0, len(ready)+1)
	out = append(out, ready[:i]...)
	out = append(out, s)
	out = append(out, ready[i:]...)
	return out
}

func indexInOrder(g *Graph, id operator.ID) int {
	for i, n := range g.order {
		if n == id {
			return i
		}
	}
	return -1
}
