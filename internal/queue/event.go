package queue

import (
	"context"
	"sync"
)

// Event is a level-triggered flag. Set leaves it raised until Clear; Wait
// blocks until the flag is raised. Waking consumers coalesce any number of
// Set calls into one observation.
type Event struct {
	mu     sync.Mutex
	raised bool
	wake   chan struct{}
}

func NewEvent() *Event {
	return &Event{wake: make(chan struct{}, 1)}
}

// Set raises the flag and wakes one waiter.
func (e *Event) Set() {
	e.mu.Lock()
	e.raised = true
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Clear lowers the flag.
func (e *Event) Clear() {
	e.mu.Lock()
	e.raised = false
	e.mu.Unlock()
}

// IsSet reports whether the flag is raised.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.raised
}

// Wait blocks until the flag is raised or the context is done. The flag is
// left raised; callers Clear it once they have acted on it.
func (e *Event) Wait(ctx context.Context) error {
	for {
		if e.IsSet() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.wake:
		}
	}
}
