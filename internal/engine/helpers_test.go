package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/exprstate/internal/ir"
)

// fakeClient is an in-memory backend.Client that records calls.
type fakeClient struct {
	mu       sync.Mutex
	projects map[ir.ExprHash]ir.ProjectData
	exprs    map[ir.ExprHash]ir.ExpressionData
	created  ir.ProjectData
	fetchErr error

	// gate, when set, blocks every call until it is closed.
	gate    chan struct{}
	started chan string

	listCalls   int
	createCalls int
	fetchCalls  [][]ir.ExprHash
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		projects: map[ir.ExprHash]ir.ProjectData{},
		exprs:    map[ir.ExprHash]ir.ExpressionData{},
		started:  make(chan string, 64),
	}
}

func (f *fakeClient) wait(ctx context.Context, op string) error {
	f.started <- op
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeClient) ListBindings(ctx context.Context, hash ir.ExprHash) (ir.ProjectData, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if err := f.wait(ctx, "list"); err != nil {
		return ir.ProjectData{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[hash]
	if !ok {
		return ir.ProjectData{}, errors.New("project not found")
	}
	return p, nil
}

func (f *fakeClient) CreateProject(ctx context.Context) (ir.ProjectData, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	if err := f.wait(ctx, "create"); err != nil {
		return ir.ProjectData{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, nil
}

func (f *fakeClient) FetchExpressions(ctx context.Context, hashes []ir.ExprHash, _ ir.ExprHash) (map[ir.ExprHash]ir.ExpressionData, error) {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, slices.Clone(hashes))
	f.mu.Unlock()
	if err := f.wait(ctx, "fetch"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := map[ir.ExprHash]ir.ExpressionData{}
	for _, h := range hashes {
		if d, ok := f.exprs[h]; ok {
			out[h] = d
		}
	}
	return out, nil
}

func (f *fakeClient) calls() (list, create int, fetch [][]ir.ExprHash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.createCalls, slices.Clone(f.fetchCalls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startEngine runs e until the test ends.
func startEngine(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func settle(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Settle(ctx))
}

// transitions collects every transition on a buffered channel.
func transitions(e *Engine) <-chan Transition {
	ch := make(chan Transition, 256)
	e.Subscribe(func(t Transition) { ch <- t })
	return ch
}

func nextTransition(t *testing.T, ch <-chan Transition) Transition {
	t.Helper()
	select {
	case tr := <-ch:
		return tr
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for transition")
		return Transition{}
	}
}

func waitStarted(t *testing.T, f *fakeClient, op string) {
	t.Helper()
	select {
	case got := <-f.started:
		require.Equal(t, op, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s call", op)
	}
}
