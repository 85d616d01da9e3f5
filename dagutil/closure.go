package dagutil

import "github.com/grailbio/neurograph/operator"

// TransitiveClosure computes, for every node in order (expected to be a
// valid topological order of g), the set of all nodes reachable from it
// by following successor edges — i.e. its transitive descendants. order
// is consumed back-to-front so each node's closure is built from the
// already-computed closures of its direct successors, giving the whole
// computation O(n*avg-closure-size) rather than a DFS per node.
func TransitiveClosure(g *Graph, order []operator.ID) map[operator.ID]map[operator.ID]bool {
	closure := make(map[operator.ID]map[operator.ID]bool, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		desc := make(map[operator.ID]bool)
		for _, s := range g.succ[n] {
			desc[s] = true
			for d := range closure[s] {
				desc[d] = true
			}
		}
		closure[n] = desc
	}
	return closure
}

// Independent reports whether a and b are mutually unreachable from one
// another in closure — neither is a transitive ancestor of the other.
// The design requires checking both directions; this helper exists so
// every call site does, rather than some callers reducing to one.
func Independent(closure map[operator.ID]map[operator.ID]bool, a, b operator.ID) bool {
	if closure[a][b] {
		return false
	}
	if closure[b][a] {
		return false
	}
	return true
}
