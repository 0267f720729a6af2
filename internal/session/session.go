// Package session persists the minimum state needed to resume a project.
//
// The current project hash is written under ProjectKey as a small JSON
// object, and the screen stack under ScreenKey. Reads never fail loudly: a
// missing key, a storage error or a malformed value all mean "nothing
// saved".
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/opt"
	"github.com/roach88/exprstate/internal/store"
	"github.com/roach88/exprstate/internal/view"
)

// Storage keys.
const (
	ProjectKey = "project"
	ScreenKey  = "screen"
)

// KV is a string key/value store scoped to one session.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ProjectSet writes the project under ProjectKey. Last write wins.
func ProjectSet(ctx context.Context, kv KV, project ir.Project) error {
	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := kv.Set(ctx, ProjectKey, string(data)); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// ProjectGet reads the project under ProjectKey.
func ProjectGet(ctx context.Context, kv KV) opt.Option[ir.Project] {
	raw, ok, err := kv.Get(ctx, ProjectKey)
	if err != nil || !ok {
		return opt.None[ir.Project]()
	}
	var project ir.Project
	if err := json.Unmarshal([]byte(raw), &project); err != nil {
		return opt.None[ir.Project]()
	}
	if project.Hash == "" {
		return opt.None[ir.Project]()
	}
	return opt.Some(project)
}

// ScreensSet writes the screen stack under ScreenKey.
func ScreensSet(ctx context.Context, kv KV, s view.State) error {
	data, err := json.Marshal(s.Stack())
	if err != nil {
		return fmt.Errorf("encode screens: %w", err)
	}
	if err := kv.Set(ctx, ScreenKey, string(data)); err != nil {
		return fmt.Errorf("save screens: %w", err)
	}
	return nil
}

// ScreensGet reads the screen stack. Nothing saved yields a scratch screen.
func ScreensGet(ctx context.Context, kv KV) view.State {
	raw, ok, err := kv.Get(ctx, ScreenKey)
	if err != nil || !ok {
		return view.Restore(nil)
	}
	var stack []view.Screen
	if err := json.Unmarshal([]byte(raw), &stack); err != nil {
		return view.Restore(nil)
	}
	for _, sc := range stack {
		if _, ok := view.ParseScreenKind(string(sc.Kind)); !ok {
			return view.Restore(nil)
		}
	}
	return view.Restore(stack)
}

// MemoryKV is an in-process KV.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

// SQLiteKV stores values in the session_kv table of a durable store.
type SQLiteKV struct {
	store *store.Store
	id    string
}

// NewSQLiteKV returns a KV for sessionID. An empty sessionID gets a fresh
// UUIDv7 so values from unrelated runs never collide.
func NewSQLiteKV(s *store.Store, sessionID string) (*SQLiteKV, error) {
	if sessionID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate session id: %w", err)
		}
		sessionID = id.String()
	}
	return &SQLiteKV{store: s, id: sessionID}, nil
}

// ID returns the session identifier.
func (k *SQLiteKV) ID() string { return k.id }

func (k *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	return k.store.GetSessionValue(ctx, k.id, key)
}

func (k *SQLiteKV) Set(ctx context.Context, key, value string) error {
	return k.store.PutSessionValue(ctx, k.id, key, value)
}
