package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprstate/internal/contentstore"
	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
)

func TestEngine_DispatchAppliesReducerInOrder(t *testing.T) {
	e := New(WithLogger(discardLogger()))
	ch := transitions(e)
	startEngine(t, e)

	require.True(t, e.Dispatch(project.StoreProjectHash{Hash: "a"}))
	require.True(t, e.Dispatch(project.StoreProjectHash{Hash: "b"}))
	settle(t, e)

	t1 := nextTransition(t, ch)
	t2 := nextTransition(t, ch)
	assert.Equal(t, int64(1), t1.Seq)
	assert.Equal(t, int64(2), t2.Seq)
	assert.Equal(t, []project.Event{project.ListBindings{Hash: "a"}}, t1.Events)
	assert.Equal(t, ir.ExprHash("b"), e.State().ProjectHash)
	assert.Equal(t, int64(2), e.Clock().Current())
}

func TestEngine_ReduceErrorKeepsStateAndContinues(t *testing.T) {
	e1 := ir.ExpressionData{Source: "1", Type: "Int"}
	store, err := contentstore.New().Put("h1", e1)
	require.NoError(t, err)

	e := New(
		WithLogger(discardLogger()),
		WithInitialState(project.NewState().WithStore(store)),
	)
	ch := transitions(e)
	startEngine(t, e)

	e.Dispatch(project.FetchExpressionSuccess{Hash: "h1", Data: ir.ExpressionData{Source: "2", Type: "Int"}})
	e.Dispatch(project.StoreProjectHash{Hash: "p"})
	settle(t, e)

	failed := nextTransition(t, ch)
	require.Error(t, failed.Err)
	assert.True(t, IsReduceError(failed.Err))
	assert.True(t, contentstore.IsConflict(failed.Err))
	assert.Nil(t, failed.Events)

	ok := nextTransition(t, ch)
	assert.NoError(t, ok.Err)

	got, present := e.State().Store.Get("h1").Get()
	require.True(t, present)
	assert.Equal(t, "1", got.Source)
	assert.Equal(t, ir.ExprHash("p"), e.State().ProjectHash)
}

func TestEngine_StopRejectsDispatch(t *testing.T) {
	e := New(WithLogger(discardLogger()))

	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(context.Background()) }()

	e.Stop()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
	assert.False(t, e.Dispatch(project.Initialise{}))
}

func TestEngine_RunStopsOnContext(t *testing.T) {
	e := New(WithLogger(discardLogger()))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop on context cancellation")
	}

	settleCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	assert.NoError(t, e.Settle(settleCtx), "no pending work after stop")
}

func TestEngine_SettleTimesOutWithoutRun(t *testing.T) {
	e := New(WithLogger(discardLogger()))
	e.Dispatch(project.Initialise{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Settle(ctx), context.DeadlineExceeded)
	assert.Equal(t, 1, e.QueueLen())
}

type unknownAction struct{}

func (unknownAction) ActionType() string { return "SetScreen" }

func TestEngine_UnknownActionIsNoop(t *testing.T) {
	e := New(WithLogger(discardLogger()))
	ch := transitions(e)
	startEngine(t, e)

	before := e.State()
	e.Dispatch(unknownAction{})
	settle(t, e)

	tr := nextTransition(t, ch)
	assert.NoError(t, tr.Err)
	assert.Empty(t, tr.Events)
	assert.Equal(t, before.ProjectHash, e.State().ProjectHash)
}
