package harness

import (
	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
)

// TraceEntry is one applied step.
type TraceEntry struct {
	Seq    int64
	Action string
	Events []project.Event
	// Error is the rejected step's error code, empty when applied.
	Error string
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool

	Trace []TraceEntry

	// Errors lists failed expectations. Reducer rejections are recorded on
	// the trace, not here.
	Errors []string

	// Final is the state after the last step.
	Final project.State
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError records a failed expectation.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// RejectedSteps counts trace entries the reducer rejected.
func (r *Result) RejectedSteps() int {
	n := 0
	for _, e := range r.Trace {
		if e.Error != "" {
			n++
		}
	}
	return n
}

// eventToMap renders an event for canonical JSON.
func eventToMap(ev project.Event) map[string]any {
	m := map[string]any{"type": ev.EventType()}
	switch ev := ev.(type) {
	case project.ListBindings:
		m["hash"] = string(ev.Hash)
	case project.FetchExpressions:
		m["hashes"] = hashList(ev.Hashes)
		m["project_hash"] = string(ev.ProjectHash)
	case project.SaveToSessionStorage:
		m["hash"] = string(ev.Hash)
	}
	return m
}

func hashList(hashes []ir.ExprHash) []any {
	out := make([]any, len(hashes))
	for i, h := range hashes {
		out[i] = string(h)
	}
	return out
}
