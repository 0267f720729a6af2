package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/store"
)

// Local is a Client served from a durable store instead of a remote service.
// Every mutation produces a new project hash whose parent is the old one.
type Local struct {
	mu    sync.Mutex
	store *store.Store
}

// NewLocal returns a Local backend over s.
func NewLocal(s *store.Store) *Local {
	return &Local{store: s}
}

// CreateProject stores and returns an empty project.
func (l *Local) CreateProject(ctx context.Context) (ir.ProjectData, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeProject(ctx, "", nil, nil)
}

// ListBindings returns a stored project, or NOT_FOUND.
func (l *Local) ListBindings(ctx context.Context, projectHash ir.ExprHash) (ir.ProjectData, error) {
	got, err := l.store.ReadProject(ctx, projectHash)
	if err != nil {
		return ir.ProjectData{}, err
	}
	rec, ok := got.Get()
	if !ok {
		return ir.ProjectData{}, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("project %s not found", projectHash)}
	}
	return rec.Data, nil
}

// FetchExpressions returns the stored expressions among hashes. Unknown
// hashes are omitted from the result.
func (l *Local) FetchExpressions(ctx context.Context, hashes []ir.ExprHash, _ ir.ExprHash) (map[ir.ExprHash]ir.ExpressionData, error) {
	return l.store.ReadExpressions(ctx, hashes)
}

// AddBinding stores data and binds it to name in a new project derived from
// projectHash.
func (l *Local) AddBinding(ctx context.Context, projectHash ir.ExprHash, name string, data ir.ExpressionData) (ir.ProjectData, error) {
	return l.bind(ctx, projectHash, name, data, false)
}

// AddTypeBinding is AddBinding for the type namespace.
func (l *Local) AddTypeBinding(ctx context.Context, projectHash ir.ExprHash, name string, data ir.ExpressionData) (ir.ProjectData, error) {
	return l.bind(ctx, projectHash, name, data, true)
}

func (l *Local) bind(ctx context.Context, projectHash ir.ExprHash, name string, data ir.ExpressionData, typeBinding bool) (ir.ProjectData, error) {
	if name == "" {
		return ir.ProjectData{}, fmt.Errorf("bind: empty name")
	}
	hash, err := ir.ContentHash(data)
	if err != nil {
		return ir.ProjectData{}, fmt.Errorf("bind %s: %w", name, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.ListBindings(ctx, projectHash)
	if err != nil {
		return ir.ProjectData{}, fmt.Errorf("bind %s: %w", name, err)
	}
	if err := l.store.WriteExpression(ctx, hash, data); err != nil {
		return ir.ProjectData{}, fmt.Errorf("bind %s: %w", name, err)
	}

	bindings := ir.CloneBindings(current.Bindings)
	typeBindings := ir.CloneBindings(current.TypeBindings)
	if typeBinding {
		typeBindings[name] = hash
	} else {
		bindings[name] = hash
	}
	return l.writeProject(ctx, current.Hash, bindings, typeBindings)
}

// writeProject must be called with l.mu held.
func (l *Local) writeProject(ctx context.Context, parent ir.ExprHash, bindings, typeBindings map[string]ir.ExprHash) (ir.ProjectData, error) {
	hash, err := ir.ProjectHash(parent, bindings, typeBindings)
	if err != nil {
		return ir.ProjectData{}, err
	}
	data := ir.ProjectData{
		Hash:         hash,
		Bindings:     ir.CloneBindings(bindings),
		TypeBindings: ir.CloneBindings(typeBindings),
	}
	if _, err := l.store.WriteProject(ctx, data, parent); err != nil {
		return ir.ProjectData{}, err
	}
	return data, nil
}
