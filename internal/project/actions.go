package project

import "github.com/roach88/exprstate/internal/ir"

// Action type names. These are also the tags used by scenario files and
// transition logs.
const (
	ActionInitialise                = "Initialise"
	ActionCreateProject             = "CreateProject"
	ActionStoreProjectData          = "StoreProjectData"
	ActionFetchExpressionsForHashes = "FetchExpressionsForHashes"
	ActionStoreProjectHash          = "StoreProjectHash"
	ActionFetchExpressionSuccess    = "FetchExpressionSuccess"
)

// Action is a user or system intent dispatched into the reducer.
// Actions from other reducers may flow through the same queue; Reduce leaves
// the state unchanged for any action type it does not recognise.
type Action interface {
	ActionType() string
}

// Initialise asks for the current project's bindings to be listed.
type Initialise struct{}

// CreateProject asks the backend for a new, empty project.
type CreateProject struct{}

// StoreProjectData installs a backend project snapshot. ExtraHashes are
// fetched in the same batch as the snapshot's bindings.
type StoreProjectData struct {
	Data        ir.ProjectData
	ExtraHashes []ir.ExprHash
}

// FetchExpressionsForHashes fetches expressions that may have no top-level
// binding, such as transient results shown in a panel.
type FetchExpressionsForHashes struct {
	Hashes []ir.ExprHash
}

// StoreProjectHash switches to a project by hash, triggering a bindings fetch.
type StoreProjectHash struct {
	Hash ir.ExprHash
}

// FetchExpressionSuccess stores one fetched expression. ProjectHash is the
// project the fetch was issued under; empty means untagged.
type FetchExpressionSuccess struct {
	Hash        ir.ExprHash
	Data        ir.ExpressionData
	ProjectHash ir.ExprHash
}

func (Initialise) ActionType() string                { return ActionInitialise }
func (CreateProject) ActionType() string             { return ActionCreateProject }
func (StoreProjectData) ActionType() string          { return ActionStoreProjectData }
func (FetchExpressionsForHashes) ActionType() string { return ActionFetchExpressionsForHashes }
func (StoreProjectHash) ActionType() string          { return ActionStoreProjectHash }
func (FetchExpressionSuccess) ActionType() string    { return ActionFetchExpressionSuccess }

// NewStoreProjectData builds a StoreProjectData action.
func NewStoreProjectData(data ir.ProjectData, extraHashes ...ir.ExprHash) StoreProjectData {
	return StoreProjectData{Data: data, ExtraHashes: extraHashes}
}

// NewFetchExpressionsForHashes builds a FetchExpressionsForHashes action.
func NewFetchExpressionsForHashes(hashes ...ir.ExprHash) FetchExpressionsForHashes {
	return FetchExpressionsForHashes{Hashes: hashes}
}
