// Package queue provides the in-process primitives connecting the pipeline
// stages: an unbounded typed FIFO with completion tracking and a
// level-triggered event.
package queue

import (
	"context"
	"sync"

	"media-observer/internal/observability/metrics"
)

// Queue is an unbounded FIFO. Put never blocks; Get blocks until an item is
// available or the context is done. All items put on a queue belong to one
// Set, which tracks completion across the whole pipeline.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
	set    *Set
}

// NewQueue creates an empty queue whose items are tracked by set.
func NewQueue[T any](set *Set) *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}, 1),
		set:    set,
	}
}

// Put appends an item and accounts for it in the set. It never blocks.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.set.add()
	metrics.JobsInFlight.Inc()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Get removes and returns the oldest item, blocking until one is available.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items) > 0
			q.mu.Unlock()
			if remaining {
				// Wake the next waiter; the notify channel holds at
				// most one token.
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// TaskDone marks one previously gotten item as fully processed.
func (q *Queue[T]) TaskDone() {
	q.set.done()
	metrics.JobsInFlight.Dec()
}

// Set counts items across the queues of one pipeline. Join blocks until every
// item ever put has been marked done.
type Set struct {
	mu      sync.Mutex
	pending int
	idle    chan struct{}
}

func NewSet() *Set {
	return &Set{idle: make(chan struct{}, 1)}
}

func (s *Set) add() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

func (s *Set) done() {
	s.mu.Lock()
	s.pending--
	drained := s.pending == 0
	s.mu.Unlock()
	if drained {
		select {
		case s.idle <- struct{}{}:
		default:
		}
	}
}

// Pending returns the number of items put but not yet done.
func (s *Set) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Join blocks until the set drains or the context is done. A set that is
// already empty returns immediately.
func (s *Set) Join(ctx context.Context) error {
	for {
		if s.Pending() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.idle:
		}
	}
}
