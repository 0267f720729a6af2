package engine

import (
	"sync"

	"github.com/roach88/exprstate/internal/project"
)

// actionQueue is an unbounded, thread-safe FIFO of pending actions.
//
// Effects dispatch from their own goroutines while the Run loop drains the
// queue. The signal channel (buffer 1) coalesces wakeups so the loop can
// wait in a select alongside ctx.Done().
type actionQueue struct {
	mu      sync.Mutex
	actions []project.Action
	closed  bool
	signal  chan struct{}
}

func newActionQueue() *actionQueue {
	return &actionQueue{
		actions: make([]project.Action, 0, 32),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends an action. Returns false once the queue is closed.
func (q *actionQueue) Enqueue(a project.Action) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.actions = append(q.actions, a)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front action without blocking.
func (q *actionQueue) TryDequeue() (project.Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return nil, false
	}
	a := q.actions[0]
	q.actions[0] = nil // release for GC
	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}
	return a, true
}

// Wait returns the wakeup channel. It is closed when the queue closes.
func (q *actionQueue) Wait() <-chan struct{} {
	return q.signal
}

func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Close rejects further actions and wakes the loop. Idempotent.
func (q *actionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *actionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
