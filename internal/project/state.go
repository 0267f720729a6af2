package project

import (
	"github.com/roach88/exprstate/internal/contentstore"
	"github.com/roach88/exprstate/internal/ir"
)

// State is the project state owned by the reducer.
//
// INVARIANTS:
//   - every hash referenced by Bindings or TypeBindings is eventually a key
//     of Store (it may be absent while a fetch is outstanding)
//   - Store only grows
type State struct {
	ProjectHash  ir.ExprHash
	Bindings     map[string]ir.ExprHash
	TypeBindings map[string]ir.ExprHash
	Store        contentstore.Store
}

// NewState returns an empty state with no current project.
func NewState() State {
	return State{
		Bindings:     map[string]ir.ExprHash{},
		TypeBindings: map[string]ir.ExprHash{},
		Store:        contentstore.New(),
	}
}

// WithProjectHash returns a copy of s with ProjectHash replaced.
func (s State) WithProjectHash(hash ir.ExprHash) State {
	s.ProjectHash = hash
	return s
}

// WithBindings returns a copy of s with both binding maps replaced by copies
// of the given maps.
func (s State) WithBindings(bindings, typeBindings map[string]ir.ExprHash) State {
	s.Bindings = ir.CloneBindings(bindings)
	s.TypeBindings = ir.CloneBindings(typeBindings)
	return s
}

// WithStore returns a copy of s with Store replaced.
func (s State) WithStore(store contentstore.Store) State {
	s.Store = store
	return s
}

// ProjectData returns the bindings part of s as a backend snapshot.
func (s State) ProjectData() ir.ProjectData {
	return ir.ProjectData{
		Hash:         s.ProjectHash,
		Bindings:     ir.CloneBindings(s.Bindings),
		TypeBindings: ir.CloneBindings(s.TypeBindings),
	}
}
