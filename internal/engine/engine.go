package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/exprstate/internal/project"
)

// Transition records one processed action.
type Transition struct {
	Seq    int64
	Action project.Action
	Events []project.Event
	Err    error
}

// EffectHandler performs the events of a transition. Handle is called on
// the Run goroutine and must not block on the network.
type EffectHandler interface {
	Handle(ctx context.Context, t Transition)
}

// Engine is the single-writer loop that owns the project State.
//
// Thread-safety model:
//   - Dispatch(), State(), Subscribe(), Settle(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	mu    sync.RWMutex
	state project.State

	clock   *Clock
	queue   *actionQueue
	pending *tracker
	logger  *slog.Logger

	effects EffectHandler

	obsMu     sync.Mutex
	observers []func(Transition)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithInitialState starts the engine from s instead of project.NewState().
func WithInitialState(s project.State) EngineOption {
	return func(e *Engine) {
		e.state = s
	}
}

// WithClock sets the sequence clock.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// New creates an Engine with no effect handler; events are dropped until a
// Runner is attached with NewRunner.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		state:   project.NewState(),
		clock:   NewClock(),
		queue:   newActionQueue(),
		pending: newTracker(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch submits an action to the Run loop.
// Returns false if the engine has been stopped.
func (e *Engine) Dispatch(a project.Action) bool {
	e.pending.add()
	if !e.queue.Enqueue(a) {
		e.pending.done()
		e.logger.Warn("action dropped: engine stopped", "action", a.ActionType())
		return false
	}
	return true
}

// State returns the current state snapshot.
func (e *Engine) State() project.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Subscribe registers fn to be called on the Run goroutine after every
// transition is installed.
func (e *Engine) Subscribe(fn func(Transition)) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, fn)
}

// Clock returns the engine's sequence clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// QueueLen returns the number of actions waiting to be processed.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Settle blocks until every dispatched action has been processed and every
// effect it started has finished, or ctx is done.
func (e *Engine) Settle(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.pending.idle():
		return nil
	}
}

// Run processes actions until ctx is cancelled or Stop is called.
//
// ERROR HANDLING: a reducer error is logged with the action context, stored
// on the Transition and processing continues. Retrying would change the
// order of later transitions.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		if a, ok := e.queue.TryDequeue(); ok {
			e.process(ctx, a)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.drain()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Closed() && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once the queue is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}

// drain releases pending counts for actions that will never run.
func (e *Engine) drain() {
	for {
		if _, ok := e.queue.TryDequeue(); !ok {
			return
		}
		e.pending.done()
	}
}

// process applies one action. Called only from Run.
func (e *Engine) process(ctx context.Context, a project.Action) {
	defer e.pending.done()

	seq := e.clock.Next()
	current := e.State()

	next, events, err := project.Reduce(current, a)
	t := Transition{Seq: seq, Action: a, Events: events}
	if err != nil {
		t.Err = newReduceError(seq, a.ActionType(), err)
		e.logger.Error("reduce failed",
			"seq", seq,
			"action", a.ActionType(),
			"error", err,
		)
	} else {
		e.mu.Lock()
		e.state = next
		e.mu.Unlock()
	}

	e.logger.Debug("transition",
		"seq", seq,
		"action", a.ActionType(),
		"events", len(events),
		"project", next.ProjectHash,
	)

	if e.effects != nil {
		e.effects.Handle(ctx, t)
	}

	e.obsMu.Lock()
	observers := append([]func(Transition){}, e.observers...)
	e.obsMu.Unlock()
	for _, fn := range observers {
		fn(t)
	}
}

// tracker counts outstanding work: queued actions and running effects.
type tracker struct {
	mu   sync.Mutex
	n    int
	zero chan struct{}
}

func newTracker() *tracker {
	t := &tracker{zero: make(chan struct{})}
	close(t.zero)
	return t
}

func (t *tracker) add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		t.zero = make(chan struct{})
	}
	t.n++
}

func (t *tracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.zero)
	}
}

// idle returns a channel closed when the count is zero.
func (t *tracker) idle() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.zero
}
