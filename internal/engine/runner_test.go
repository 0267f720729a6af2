package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprstate/internal/contentstore"
	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
	"github.com/roach88/exprstate/internal/remote"
	"github.com/roach88/exprstate/internal/session"
)

var (
	exprID    = ir.ExpressionData{Source: "\\a -> a", Type: "a -> a"}
	exprConst = ir.ExpressionData{Source: "\\a b -> a", Type: "a -> b -> a"}
)

func newRunnerEngine(t *testing.T, client *fakeClient, kv session.KV, opts ...EngineOption) (*Engine, *Runner) {
	t.Helper()
	e := New(append([]EngineOption{WithLogger(discardLogger())}, opts...)...)
	r := NewRunner(e, client, kv, WithRequestTimeout(5*time.Second))
	return e, r
}

func TestRunner_BootstrapResumesPersistedProject(t *testing.T) {
	ctx := t.Context()
	client := newFakeClient()
	client.projects["Hp"] = ir.ProjectData{
		Hash:         "Hp",
		Bindings:     map[string]ir.ExprHash{"id": "H1"},
		TypeBindings: map[string]ir.ExprHash{},
	}
	client.exprs["H1"] = exprID

	kv := session.NewMemoryKV()
	require.NoError(t, session.ProjectSet(ctx, kv, ir.Project{Hash: "Hp"}))

	e, r := newRunnerEngine(t, client, kv)
	startEngine(t, e)

	hash, resumed := Bootstrap(ctx, e, kv)
	assert.True(t, resumed)
	assert.Equal(t, ir.ExprHash("Hp"), hash)
	settle(t, e)

	state := e.State()
	assert.Equal(t, ir.ExprHash("Hp"), state.ProjectHash)
	got, ok := project.FindExpressionForBinding("id", state).Get()
	require.True(t, ok)
	assert.True(t, got.Equal(exprID))
	assert.Equal(t, remote.Success, r.Status("H1").Kind)
	assert.Equal(t, remote.Success, r.RequestStatus(RequestListBindings).Kind)

	saved, ok := session.ProjectGet(ctx, kv).Get()
	require.True(t, ok)
	assert.Equal(t, ir.ExprHash("Hp"), saved.Hash)
}

func TestRunner_BootstrapCreatesProjectWhenNoneSaved(t *testing.T) {
	ctx := t.Context()
	client := newFakeClient()
	client.created = ir.ProjectData{Hash: "new", Bindings: map[string]ir.ExprHash{}, TypeBindings: map[string]ir.ExprHash{}}
	kv := session.NewMemoryKV()

	e, r := newRunnerEngine(t, client, kv)
	startEngine(t, e)

	_, resumed := Bootstrap(ctx, e, kv)
	assert.False(t, resumed)
	settle(t, e)

	assert.Equal(t, ir.ExprHash("new"), e.State().ProjectHash)
	assert.Equal(t, remote.Success, r.RequestStatus(RequestCreateProject).Kind)

	saved, ok := session.ProjectGet(ctx, kv).Get()
	require.True(t, ok)
	assert.Equal(t, ir.ExprHash("new"), saved.Hash)

	_, creates, fetches := client.calls()
	assert.Equal(t, 1, creates)
	assert.Empty(t, fetches, "empty project needs no fetch")
}

func TestRunner_SkipsStoredHashes(t *testing.T) {
	client := newFakeClient()
	client.exprs["H2"] = exprConst

	store, err := contentstore.New().Put("H1", exprID)
	require.NoError(t, err)

	e, _ := newRunnerEngine(t, client, nil,
		WithInitialState(project.NewState().WithStore(store)))
	startEngine(t, e)

	e.Dispatch(project.NewFetchExpressionsForHashes("H1", "H2", "H2"))
	settle(t, e)

	_, _, fetches := client.calls()
	require.Len(t, fetches, 1)
	assert.Equal(t, []ir.ExprHash{"H2"}, fetches[0])
	assert.Equal(t, 2, e.State().Store.Len())
}

func TestRunner_SkipsInFlightHashes(t *testing.T) {
	client := newFakeClient()
	client.exprs["H1"] = exprID
	client.gate = make(chan struct{})

	e, r := newRunnerEngine(t, client, nil)
	ch := transitions(e)
	startEngine(t, e)

	e.Dispatch(project.NewFetchExpressionsForHashes("H1"))
	waitStarted(t, client, "fetch")
	assert.True(t, r.InFlight("H1"))
	assert.Equal(t, remote.Loading, r.Status("H1").Kind)

	e.Dispatch(project.NewFetchExpressionsForHashes("H1"))
	nextTransition(t, ch)
	nextTransition(t, ch)

	close(client.gate)
	settle(t, e)

	_, _, fetches := client.calls()
	assert.Len(t, fetches, 1, "in-flight hash must not be fetched twice")
	assert.False(t, r.InFlight("H1"))
	assert.True(t, e.State().Store.Has("H1"))
}

func TestRunner_FetchFailureMarksStatus(t *testing.T) {
	client := newFakeClient()
	client.fetchErr = errors.New("backend unavailable")

	e, r := newRunnerEngine(t, client, nil)
	startEngine(t, e)

	e.Dispatch(project.NewFetchExpressionsForHashes("H1"))
	settle(t, e)

	st := r.Status("H1")
	assert.Equal(t, remote.Failure, st.Kind)
	assert.Contains(t, st.Message, "backend unavailable")
	assert.False(t, r.InFlight("H1"))
	assert.Equal(t, 0, e.State().Store.Len())

	// A failed hash may be requested again.
	client.mu.Lock()
	client.fetchErr = nil
	client.exprs["H1"] = exprID
	client.mu.Unlock()

	e.Dispatch(project.NewFetchExpressionsForHashes("H1"))
	settle(t, e)
	assert.Equal(t, remote.Success, r.Status("H1").Kind)
	assert.True(t, e.State().Store.Has("H1"))
}

func TestRunner_MissingFromResponseIsFailure(t *testing.T) {
	client := newFakeClient()
	e, r := newRunnerEngine(t, client, nil)
	startEngine(t, e)

	e.Dispatch(project.NewFetchExpressionsForHashes("nope"))
	settle(t, e)

	assert.Equal(t, remote.Failure, r.Status("nope").Kind)
	assert.NotEqual(t, remote.Loading, r.Status("nope").Kind)
}

func TestRunner_ListBindingsSharedAcrossCallers(t *testing.T) {
	client := newFakeClient()
	client.projects["Hp"] = ir.ProjectData{Hash: "Hp", Bindings: map[string]ir.ExprHash{}, TypeBindings: map[string]ir.ExprHash{}}
	client.gate = make(chan struct{})

	e, _ := newRunnerEngine(t, client, nil,
		WithInitialState(project.NewState().WithProjectHash("Hp")))
	ch := transitions(e)
	startEngine(t, e)

	e.Dispatch(project.Initialise{})
	e.Dispatch(project.Initialise{})
	nextTransition(t, ch)
	nextTransition(t, ch)
	waitStarted(t, client, "list")

	// Give the second goroutine time to join the in-progress call.
	time.Sleep(50 * time.Millisecond)
	close(client.gate)
	settle(t, e)

	lists, _, _ := client.calls()
	assert.Equal(t, 1, lists)

	var stored int
	for {
		select {
		case tr := <-ch:
			if _, ok := tr.Action.(project.StoreProjectData); ok {
				stored++
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, 1, stored, "result dispatched once")
}

func TestRunner_ListBindingsFailure(t *testing.T) {
	client := newFakeClient()
	e, r := newRunnerEngine(t, client, nil,
		WithInitialState(project.NewState().WithProjectHash("missing")))
	startEngine(t, e)

	e.Dispatch(project.Initialise{})
	settle(t, e)

	st := r.RequestStatus(RequestListBindings)
	assert.Equal(t, remote.Failure, st.Kind)
	assert.Contains(t, st.Message, string(ErrCodeEffectFailed))
}

func TestRunner_StaleFetchDiscarded(t *testing.T) {
	client := newFakeClient()
	client.exprs["H1"] = exprID
	client.gate = make(chan struct{})

	e, r := newRunnerEngine(t, client, nil,
		WithInitialState(project.NewState().WithProjectHash("P1")))
	ch := transitions(e)
	startEngine(t, e)

	e.Dispatch(project.NewFetchExpressionsForHashes("H1"))
	waitStarted(t, client, "fetch")

	// Switch projects while the fetch is in flight. The project switch is
	// reduced before the fetch result, so the result is stale.
	e.Dispatch(project.StoreProjectData{Data: ir.ProjectData{Hash: "P2"}})
	nextTransition(t, ch)
	nextTransition(t, ch)

	close(client.gate)
	settle(t, e)

	assert.Equal(t, ir.ExprHash("P2"), e.State().ProjectHash)
	assert.False(t, e.State().Store.Has("H1"))
	assert.Equal(t, remote.NotAsked, r.Status("H1").Kind, "discarded result is not a success")
	assert.False(t, r.InFlight("H1"))
}

func TestRunner_SwitchToProjectBindingInFlightHash(t *testing.T) {
	client := newFakeClient()
	client.exprs["H1"] = exprID
	client.gate = make(chan struct{})

	e, r := newRunnerEngine(t, client, nil,
		WithInitialState(project.NewState().WithProjectHash("P1")))
	ch := transitions(e)
	startEngine(t, e)

	e.Dispatch(project.NewFetchExpressionsForHashes("H1"))
	waitStarted(t, client, "fetch")

	// The new project binds the hash still being fetched for the old one.
	e.Dispatch(project.StoreProjectData{Data: ir.ProjectData{
		Hash:     "P2",
		Bindings: map[string]ir.ExprHash{"x": "H1"},
	}})
	nextTransition(t, ch)
	nextTransition(t, ch)
	waitStarted(t, client, "fetch")

	close(client.gate)
	settle(t, e)

	_, _, fetches := client.calls()
	assert.Equal(t, [][]ir.ExprHash{{"H1"}, {"H1"}}, fetches)

	state := e.State()
	assert.Equal(t, ir.ExprHash("P2"), state.ProjectHash)
	assert.True(t, state.Store.Has("H1"))
	assert.Empty(t, project.MissingHashes(state))
	got, ok := project.FindExpressionForBinding("x", state).Get()
	require.True(t, ok)
	assert.True(t, got.Equal(exprID))
	assert.Equal(t, remote.Success, r.Status("H1").Kind)
	assert.False(t, r.InFlight("H1"))
}

func TestRunner_NilKVSkipsSave(t *testing.T) {
	client := newFakeClient()
	e, r := newRunnerEngine(t, client, nil)
	startEngine(t, e)

	e.Dispatch(project.StoreProjectData{Data: ir.ProjectData{Hash: "P"}})
	settle(t, e)
	assert.Equal(t, remote.NotAsked, r.RequestStatus(RequestSaveSession).Kind)
	r.Wait()
}
