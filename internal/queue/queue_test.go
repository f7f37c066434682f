package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrder(t *testing.T) {
	set := NewSet()
	q := NewQueue[int](set)

	for i := 1; i <= 5; i++ {
		q.Put(i)
	}
	assert.Equal(t, 5, q.Len())

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		got, err := q.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueueGetBlocksUntilPut(t *testing.T) {
	set := NewSet()
	q := NewQueue[string](set)

	done := make(chan string, 1)
	go func() {
		item, err := q.Get(context.Background())
		if err == nil {
			done <- item
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Put("hello")

	select {
	case got := <-done:
		assert.Equal(t, "hello", got)
	case <-time.After(time.Second):
		t.Fatal("Get did not return after Put")
	}
}

func TestQueueGetHonoursContextCancel(t *testing.T) {
	set := NewSet()
	q := NewQueue[int](set)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueueWakesAllConcurrentGetters(t *testing.T) {
	set := NewSet()
	q := NewQueue[int](set)

	const n = 3
	results := make(chan int, n)
	for range n {
		go func() {
			item, err := q.Get(context.Background())
			if err == nil {
				results <- item
			}
		}()
	}

	for i := range n {
		q.Put(i)
	}

	for range n {
		select {
		case <-results:
		case <-time.After(time.Second):
			t.Fatal("a getter was not woken")
		}
	}
}

func TestSetJoinWaitsForCompletion(t *testing.T) {
	set := NewSet()
	q := NewQueue[int](set)

	q.Put(1)
	q.Put(2)
	assert.Equal(t, 2, set.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, set.Join(ctx), context.DeadlineExceeded)

	ctxGet := context.Background()
	for range 2 {
		_, err := q.Get(ctxGet)
		require.NoError(t, err)
		q.TaskDone()
	}

	require.NoError(t, set.Join(context.Background()))
	assert.Equal(t, 0, set.Pending())
}

func TestSetJoinOnEmptySetReturnsImmediately(t *testing.T) {
	require.NoError(t, NewSet().Join(context.Background()))
}

func TestEventLevelTriggered(t *testing.T) {
	e := NewEvent()
	assert.False(t, e.IsSet())

	e.Set()
	e.Set() // coalesces

	// Already raised: Wait must not block.
	require.NoError(t, e.Wait(context.Background()))
	assert.True(t, e.IsSet())

	e.Clear()
	assert.False(t, e.IsSet())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Wait(ctx), context.DeadlineExceeded)
}

func TestEventWakesWaiter(t *testing.T) {
	e := NewEvent()

	done := make(chan struct{})
	go func() {
		if err := e.Wait(context.Background()); err == nil {
			close(done)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	e.Set()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Set")
	}
}
