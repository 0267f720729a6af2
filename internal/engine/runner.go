package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/exprstate/internal/backend"
	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
	"github.com/roach88/exprstate/internal/remote"
	"github.com/roach88/exprstate/internal/session"
)

// Request names reported by RequestStatus.
const (
	RequestListBindings  = "ListBindings"
	RequestCreateProject = "CreateProject"
	RequestSaveSession   = "SaveToSessionStorage"
)

// Runner performs the events emitted by the reducer.
//
// Backend calls run on their own goroutines and report back by dispatching
// actions. A hash is never fetched while it is already in the store or
// already being fetched for the same project, and concurrent ListBindings
// for one project share a single backend call.
type Runner struct {
	engine  *Engine
	client  backend.Client
	kv      session.KV
	logger  *slog.Logger
	timeout time.Duration

	lists singleflight.Group
	wg    sync.WaitGroup

	mu       sync.Mutex
	inFlight map[fetchKey]bool
	statuses map[ir.ExprHash]remote.Status
	requests map[string]remote.Status
}

// fetchKey identifies one outstanding fetch. A result is only applied while
// its project is current, so a fetch started under another project does not
// cover the same hash for this one.
type fetchKey struct {
	hash    ir.ExprHash
	project ir.ExprHash
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger. Default: the engine's logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRequestTimeout bounds each backend call. Zero means no extra bound.
func WithRequestTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a Runner and attaches it to e as its effect handler.
// Call before e.Run.
func NewRunner(e *Engine, client backend.Client, kv session.KV, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:   e,
		client:   client,
		kv:       kv,
		logger:   e.logger,
		inFlight: make(map[fetchKey]bool),
		statuses: make(map[ir.ExprHash]remote.Status),
		requests: make(map[string]remote.Status),
	}
	for _, opt := range opts {
		opt(r)
	}
	e.effects = r
	return r
}

// Handle starts the effects for one transition.
func (r *Runner) Handle(ctx context.Context, t Transition) {
	if s, ok := t.Action.(project.FetchExpressionSuccess); ok {
		r.applied(s, t.Err)
	}

	for _, ev := range t.Events {
		switch ev := ev.(type) {
		case project.ListBindings:
			r.listBindings(ctx, ev.Hash)
		case project.CreateProjectEvent:
			r.createProject(ctx)
		case project.FetchExpressions:
			r.fetchExpressions(ctx, ev)
		case project.SaveToSessionStorage:
			r.saveSession(ctx, ev.Hash)
		default:
			r.logger.Warn("unhandled event", "event", ev.EventType())
		}
	}
}

// Status returns the fetch status of one hash.
func (r *Runner) Status(hash ir.ExprHash) remote.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[hash]
}

// RequestStatus returns the status of the last request with the given name.
func (r *Runner) RequestStatus(name string) remote.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[name]
}

// InFlight reports whether hash is being fetched under any project.
func (r *Runner) InFlight(hash ir.ExprHash) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlightLocked(hash)
}

func (r *Runner) inFlightLocked(hash ir.ExprHash) bool {
	for k := range r.inFlight {
		if k.hash == hash {
			return true
		}
	}
	return false
}

// Wait blocks until every effect goroutine started so far has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// spawn runs fn on a tracked goroutine.
func (r *Runner) spawn(ctx context.Context, fn func(ctx context.Context)) {
	r.engine.pending.add()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.engine.pending.done()
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		fn(ctx)
	}()
}

func (r *Runner) setRequest(name string, s remote.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[name] = s
}

func (r *Runner) listBindings(ctx context.Context, hash ir.ExprHash) {
	r.setRequest(RequestListBindings, remote.Pending())
	r.spawn(ctx, func(ctx context.Context) {
		// Only the leading caller runs the closure, so the result is
		// dispatched once however many callers share it.
		_, err, shared := r.lists.Do(string(hash), func() (any, error) {
			data, err := r.client.ListBindings(ctx, hash)
			if err != nil {
				return nil, err
			}
			r.engine.Dispatch(project.NewStoreProjectData(data))
			return data, nil
		})
		if err != nil {
			err = newEffectError(RequestListBindings, err)
			r.logger.Error("list bindings failed", "project", hash, "error", err)
			r.setRequest(RequestListBindings, remote.Failed(err.Error()))
			return
		}
		r.logger.Debug("list bindings", "project", hash, "shared", shared)
		r.setRequest(RequestListBindings, remote.Done())
	})
}

func (r *Runner) createProject(ctx context.Context) {
	r.setRequest(RequestCreateProject, remote.Pending())
	r.spawn(ctx, func(ctx context.Context) {
		data, err := r.client.CreateProject(ctx)
		if err != nil {
			err = newEffectError(RequestCreateProject, err)
			r.logger.Error("create project failed", "error", err)
			r.setRequest(RequestCreateProject, remote.Failed(err.Error()))
			return
		}
		r.logger.Info("project created", "project", data.Hash)
		r.engine.Dispatch(project.NewStoreProjectData(data))
		r.setRequest(RequestCreateProject, remote.Done())
	})
}

// claim marks the hashes that need a backend call as in flight for
// projectHash and returns them. Hashes already stored, or already in flight for
// the same project, are skipped.
func (r *Runner) claim(hashes []ir.ExprHash, projectHash ir.ExprHash) []ir.ExprHash {
	stored := r.engine.State().Store

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ir.ExprHash
	for _, h := range stored.Missing(hashes) {
		k := fetchKey{hash: h, project: projectHash}
		if r.inFlight[k] {
			continue
		}
		r.inFlight[k] = true
		r.statuses[h] = remote.Pending()
		out = append(out, h)
	}
	return out
}

// applied clears the in-flight mark once a fetch result has been reduced
// and records whether it reached the store. A stale result leaves the hash
// NotAsked unless another fetch for it is still running.
func (r *Runner) applied(s project.FetchExpressionSuccess, reduceErr error) {
	stored := r.engine.State().Store.Has(s.Hash)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, fetchKey{hash: s.Hash, project: s.ProjectHash})
	switch {
	case reduceErr != nil:
		r.statuses[s.Hash] = remote.Failed(reduceErr.Error())
	case stored:
		r.statuses[s.Hash] = remote.Done()
	case !r.inFlightLocked(s.Hash):
		delete(r.statuses, s.Hash)
	}
}

// dropped clears the in-flight mark of a result the engine never accepted.
func (r *Runner) dropped(k fetchKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, k)
	if !r.inFlightLocked(k.hash) {
		delete(r.statuses, k.hash)
	}
}

func (r *Runner) fail(projectHash ir.ExprHash, hashes []ir.ExprHash, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range hashes {
		delete(r.inFlight, fetchKey{hash: h, project: projectHash})
		r.statuses[h] = remote.Failed(msg)
	}
}

func (r *Runner) fetchExpressions(ctx context.Context, ev project.FetchExpressions) {
	hashes := r.claim(ev.Hashes, ev.ProjectHash)
	if len(hashes) == 0 {
		return
	}

	r.spawn(ctx, func(ctx context.Context) {
		found, err := r.client.FetchExpressions(ctx, hashes, ev.ProjectHash)
		if err != nil {
			err = newEffectError("FetchExpressions", err)
			r.logger.Error("fetch expressions failed",
				"count", len(hashes),
				"project", ev.ProjectHash,
				"error", err,
			)
			r.fail(ev.ProjectHash, hashes, err.Error())
			return
		}

		var missing []ir.ExprHash
		for _, h := range hashes {
			data, ok := found[h]
			if !ok {
				missing = append(missing, h)
				continue
			}
			if !r.engine.Dispatch(project.FetchExpressionSuccess{Hash: h, Data: data, ProjectHash: ev.ProjectHash}) {
				r.dropped(fetchKey{hash: h, project: ev.ProjectHash})
			}
		}
		if len(missing) > 0 {
			r.logger.Warn("expressions not returned", "count", len(missing), "project", ev.ProjectHash)
			r.fail(ev.ProjectHash, missing, fmt.Sprintf("expression not returned by backend (%d missing)", len(missing)))
		}
	})
}

// saveSession runs inline so session writes keep transition order.
func (r *Runner) saveSession(ctx context.Context, hash ir.ExprHash) {
	if r.kv == nil {
		return
	}
	if err := session.ProjectSet(ctx, r.kv, ir.Project{Hash: hash}); err != nil {
		err = newEffectError(RequestSaveSession, err)
		r.logger.Error("save session failed", "project", hash, "error", err)
		r.setRequest(RequestSaveSession, remote.Failed(err.Error()))
		return
	}
	r.setRequest(RequestSaveSession, remote.Done())
}

// Bootstrap resumes the persisted project, or asks for a new one.
// Returns the resumed hash and whether one was found.
func Bootstrap(ctx context.Context, e *Engine, kv session.KV) (ir.ExprHash, bool) {
	p, ok := session.ProjectGet(ctx, kv).Get()
	if !ok {
		e.logger.Info("no saved project, creating one")
		e.Dispatch(project.CreateProject{})
		return "", false
	}
	e.logger.Info("resuming project", "project", p.Hash)
	e.Dispatch(project.StoreProjectHash{Hash: p.Hash})
	return p.Hash, true
}
