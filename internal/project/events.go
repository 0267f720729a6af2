package project

import "github.com/roach88/exprstate/internal/ir"

// Event type names.
const (
	EventListBindings         = "ListBindings"
	EventCreateProject        = "CreateProject"
	EventFetchExpressions     = "FetchExpressions"
	EventSaveToSessionStorage = "SaveToSessionStorage"
)

// Event is a side-effecting intent the reducer asks the effect runner to
// perform. Events carry everything the runner needs; the runner never reads
// reducer state to interpret them.
type Event interface {
	EventType() string
	isEvent()
}

// ListBindings fetches the bindings of a project.
type ListBindings struct {
	Hash ir.ExprHash
}

// CreateProjectEvent creates a new project on the backend.
type CreateProjectEvent struct{}

// FetchExpressions resolves a batch of hashes in a single backend call.
// ProjectHash tags the results so stale responses can be discarded.
type FetchExpressions struct {
	Hashes      []ir.ExprHash
	ProjectHash ir.ExprHash
}

// SaveToSessionStorage persists the current project identity.
type SaveToSessionStorage struct {
	Hash ir.ExprHash
}

func (ListBindings) EventType() string         { return EventListBindings }
func (CreateProjectEvent) EventType() string   { return EventCreateProject }
func (FetchExpressions) EventType() string     { return EventFetchExpressions }
func (SaveToSessionStorage) EventType() string { return EventSaveToSessionStorage }

func (ListBindings) isEvent()         {}
func (CreateProjectEvent) isEvent()   {}
func (FetchExpressions) isEvent()     {}
func (SaveToSessionStorage) isEvent() {}
