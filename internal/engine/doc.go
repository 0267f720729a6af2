// Package engine runs the project reducer and its effects.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Actions are dispatched into a FIFO queue from any goroutine. Engine.Run
// drains the queue on one goroutine, stamps each action with a seq from the
// Clock, applies project.Reduce and installs the resulting state. Because
// only Run writes state, reads through State() always see a complete
// transition.
//
// Effects:
// The events a transition emits are handed to the Runner, which performs
// backend calls and session writes on worker goroutines. Results come back
// only as new dispatched actions; effects never touch state directly.
//
// Error Handling:
// Reducer errors (content conflicts) are logged and recorded on the
// Transition; the state is left unchanged and the loop continues. Effect
// failures are logged and recorded as a remote.Failure status.
package engine
