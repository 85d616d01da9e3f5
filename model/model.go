// Package model holds the Model aggregate the optimizer consumes and
// rewrites: the signal index, the operator list, and the dependency
// graph, matching the external interfaces the model builder and the
// simulator both see (see SPEC_FULL.md section 6).
package model

import (
	"github.com/grailbio/neurograph/dagutil"
	"github.com/grailbio/neurograph/operator"
	"github.com/grailbio/neurograph/signal"
)

// Owner is the opaque handle model.sig is keyed by in the outer map —
// typically the name of the network object (an ensemble, a node, a
// connection) that owns a group of signals. It carries no behavior; it
// exists purely so model.Sig's two-level keying matches the design's
// `model.sig[owner][name]`.
type Owner string

// Model is the mutable aggregate Optimize operates on: the signal arena
// and its owner/name index, the current operator list, and the
// dependency graph over that list. Optimize rewrites Operators, Sig and
// DG in place; Signals and the pre-merge operators referenced from
// Arena remain addressable (by ID) for as long as anything still holds
// their IDs, but are no longer reachable from Operators/Sig/DG once a
// pass has rewritten those three.
type Model struct {
	Signals *signal.Arena
	Ops     *operator.Arena

	// Operators is the current, active operator list — the set the
	// simulator should enumerate. It is always consistent with the
	// nodes of DG.
	Operators []operator.ID

	// Sig is the nested signal index: Sig[owner][name] is the signal
	// backing a given named attribute of a given network object.
	Sig map[Owner]map[string]signal.ID

	DG *dagutil.Graph
}

// New returns an empty Model ready for a builder to populate.
func New() *Model {
	return &Model{
		Signals: signal.NewArena(),
		Ops:     operator.NewArena(),
		Sig:     map[Owner]map[string]signal.ID{},
		DG:      dagutil.New(),
	}
}

// AddOperator registers op in Ops, appends it to Operators, and adds it
// (with no edges yet) to DG, returning its assigned ID.
func (m *Model) AddOperator(op operator.Op) operator.ID {
	id := m.Ops.Add(op)
	m.Operators = append(m.Operators, id)
	m.DG.AddNode(id)
	return id
}

// AddDependency records that consumer depends on producer: producer must
// run (or, mid-optimization, merge-complete) before consumer.
func (m *Model) AddDependency(producer, consumer operator.ID) {
	m.DG.AddEdge(producer, consumer)
}

// SetSignal records sig as owner's signal named name.
func (m *Model) SetSignal(owner Owner, name string, sig signal.ID) {
	names, ok := m.Sig[owner]
	if !ok {
		names = map[string]signal.ID{}
		m.Sig[owner] = names
	}
	names[name] = sig
}

// Signal looks up owner's signal named name.
func (m *Model) Signal(owner Owner, name string) (signal.ID, bool) {
	names, ok := m.Sig[owner]
	if !ok {
		return 0, false
	}
	id, ok := names[name]
	return id, ok
}
