package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
)

func TestActionQueue_FIFO(t *testing.T) {
	q := newActionQueue()

	for _, h := range []ir.ExprHash{"A", "B", "C"} {
		require.True(t, q.Enqueue(project.StoreProjectHash{Hash: h}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []ir.ExprHash{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, project.StoreProjectHash{Hash: want}, got)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestActionQueue_SignalCoalesces(t *testing.T) {
	q := newActionQueue()
	q.Enqueue(project.Initialise{})
	q.Enqueue(project.Initialise{})

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending signal")
	}
	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce")
	default:
	}
}

func TestActionQueue_Close(t *testing.T) {
	q := newActionQueue()
	q.Enqueue(project.Initialise{})
	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(project.Initialise{}), "enqueue after close")

	_, ok := q.TryDequeue()
	assert.True(t, ok, "queued actions survive close")

	select {
	case <-q.Wait():
	default:
		t.Fatal("closed queue should wake waiters")
	}
}

func TestActionQueue_ConcurrentEnqueue(t *testing.T) {
	q := newActionQueue()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(project.Initialise{})
		}()
	}
	wg.Wait()
	assert.Equal(t, n, q.Len())
}
