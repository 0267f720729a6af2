// Package project holds the project state, the actions and events that move
// it, and the pure reducer and selectors over it.
//
// ARCHITECTURE:
//
// Reduce is a pure function (State, Action) -> (State, []Event, error). It
// performs no I/O, never blocks and never logs. Every transition that
// introduces new hash references emits the FetchExpressions event needed to
// resolve them; filling the store happens later, when the effect runner
// dispatches FetchExpressionSuccess back through the same queue.
//
// State is a value. Builder methods (WithProjectHash, WithBindings,
// WithStore) return a new State with the named fields replaced and never
// touch the receiver's maps.
//
// Stale fetches: FetchExpressionSuccess carries the project hash the fetch
// was issued under. When it is set and differs from the current project
// hash, the result is discarded.
package project
