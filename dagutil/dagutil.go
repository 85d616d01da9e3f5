// Package dagutil implements the dependency-graph utilities the
// optimizer needs on top of the operator model: topological ordering
// and transitive closure over the "operator X depends on operator Y"
// relation, kept as a thin, explicit adjacency structure rather than a
// generic graph library so that iteration order — and therefore merge
// determinism — is a property of the type, not an accident of map
// iteration.
package dagutil

import "github.com/grailbio/neurograph/operator"

// Graph is a dependency graph over operator.ID: an edge from a to b
// means b depends on a (a must run, or merge-complete, before b can).
// Every node the graph has ever seen — via AddNode or as either
// endpoint of AddEdge — has an entry in succ, possibly with an empty
// successor list, and appears exactly once in order, in the sequence
// it was first seen. That insertion order is the tie-break Toposort
// and TransitiveClosure use, mirroring the fact that the model this
// graph represents built its operator list in a fixed, meaningful
// order (e.g. network-build order).
type Graph struct {
	order []operator.ID
	succ  map[operator.ID][]operator.ID
	seen  map[operator.ID]bool
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{succ: map[operator.ID][]operator.ID{}, seen: map[operator.ID]bool{}}
}

// AddNode ensures id has an entry in the graph, creating one (with no
// successors) if this is the first time id has been seen. It is a
// no-op if id is already present.
func (g *Graph) AddNode(id operator.ID) {
	if g.seen[id] {
		return
	}
	g.seen[id] = true
	g.order = append(g.order, id)
	g.succ[id] = nil
}

// AddEdge records that b depends on a, adding both as nodes first if
// necessary. Adding the same edge twice is a no-op.
func (g *Graph) AddEdge(a, b operator.ID) {
	g.AddNode(a)
	g.AddNode(b)
	for _, existing := range g.succ[a] {
		if existing == b {
			return
		}
	}
	g.succ[a] = append(g.succ[a], b)
}

// Nodes returns every node in the graph, in first-seen order.
func (g *Graph) Nodes() []operator.ID {
	return append([]operator.ID(nil), g.order...)
}

// Successors returns the operators that directly depend on id, in the
// order their edges were added.
func (g *Graph) Successors(id operator.ID) []operator.ID {
	return append([]operator.ID(nil), g.succ[id]...)
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.order) }
