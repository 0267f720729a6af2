package harness

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/exprstate/internal/contentstore"
	"github.com/roach88/exprstate/internal/engine"
	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
)

// Run applies the scenario's steps through project.Reduce and checks the
// expectations against the final state.
//
// A step the reducer rejects is recorded on the trace and the state is left
// unchanged, matching the engine's log-and-continue handling. Run returns
// an error only for a malformed scenario.
func Run(s *Scenario) (*Result, error) {
	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	state, err := initialState(s.Initial)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}

	result := NewResult()
	clock := engine.NewClock()

	for i, step := range s.Steps {
		action, err := step.toAction()
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}

		next, events, err := project.Reduce(state, action)
		entry := TraceEntry{
			Seq:    clock.Next(),
			Action: action.ActionType(),
			Events: events,
		}
		if err != nil {
			entry.Error = errorCode(err)
		} else {
			state = next
		}
		result.Trace = append(result.Trace, entry)
	}

	result.Final = state
	checkExpect(result, s.Expect)
	return result, nil
}

func initialState(in Initial) (project.State, error) {
	state := project.NewState().
		WithProjectHash(in.ProjectHash).
		WithBindings(in.Bindings, in.TypeBindings)

	batch := make(map[ir.ExprHash]ir.ExpressionData, len(in.Store))
	for hash, e := range in.Store {
		batch[hash] = e.data()
	}
	store, err := contentstore.New().PutAll(batch)
	if err != nil {
		return project.State{}, err
	}
	return state.WithStore(store), nil
}

func errorCode(err error) string {
	var ce *contentstore.ConflictError
	if errors.As(err, &ce) {
		return contentstore.ErrCodeConflict
	}
	return err.Error()
}

func checkExpect(r *Result, e Expect) {
	final := r.Final

	if e.ProjectHash != nil && final.ProjectHash != *e.ProjectHash {
		r.AddError(fmt.Sprintf("project_hash: got %q, want %q", final.ProjectHash, *e.ProjectHash))
	}
	if e.Bindings != nil && !maps.Equal(final.Bindings, e.Bindings) {
		r.AddError(fmt.Sprintf("bindings: got %v, want %v", final.Bindings, e.Bindings))
	}
	if e.TypeBindings != nil && !maps.Equal(final.TypeBindings, e.TypeBindings) {
		r.AddError(fmt.Sprintf("type_bindings: got %v, want %v", final.TypeBindings, e.TypeBindings))
	}
	for _, name := range e.Resolved {
		if project.FindExpressionForAnyBinding(name, final).IsNone() {
			r.AddError(fmt.Sprintf("resolved: %q does not resolve", name))
		}
	}
	for _, name := range e.Unresolved {
		if project.FindExpressionForAnyBinding(name, final).IsSome() {
			r.AddError(fmt.Sprintf("unresolved: %q resolves", name))
		}
	}
	if e.Missing != nil {
		got := slices.Sorted(slices.Values(project.MissingHashes(final)))
		want := slices.Sorted(slices.Values(e.Missing))
		if !slices.Equal(got, want) {
			r.AddError(fmt.Sprintf("missing: got %v, want %v", got, want))
		}
	}
	if e.StoreSize != nil && final.Store.Len() != *e.StoreSize {
		r.AddError(fmt.Sprintf("store_size: got %d, want %d", final.Store.Len(), *e.StoreSize))
	}
	if e.Errors != nil && r.RejectedSteps() != *e.Errors {
		r.AddError(fmt.Sprintf("errors: got %d, want %d", r.RejectedSteps(), *e.Errors))
	}
}

// Snapshot renders the trace and final state as canonical JSON.
func Snapshot(name string, r *Result) ([]byte, error) {
	trace := make([]any, len(r.Trace))
	for i, entry := range r.Trace {
		events := make([]any, len(entry.Events))
		for j, ev := range entry.Events {
			events[j] = eventToMap(ev)
		}
		m := map[string]any{
			"seq":    entry.Seq,
			"action": entry.Action,
			"events": events,
		}
		if entry.Error != "" {
			m["error"] = entry.Error
		}
		trace[i] = m
	}

	final := map[string]any{
		"project_hash":  string(r.Final.ProjectHash),
		"bindings":      ir.CloneBindings(r.Final.Bindings),
		"type_bindings": ir.CloneBindings(r.Final.TypeBindings),
		"store":         hashList(r.Final.Store.Hashes()),
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario": name,
		"trace":    trace,
		"final":    final,
	})
}
