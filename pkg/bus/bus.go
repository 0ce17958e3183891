// Package bus decouples the session controller from whatever renders its
// output. The controller publishes SessionEvents; the UI loop consumes them
// on its own goroutine so rendering never runs inside transport callbacks.
package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed EventBus.
var ErrBusClosed = errors.New("event bus closed")

// ErrBusFull is returned by TryPublish when the buffer is saturated.
var ErrBusFull = errors.New("event bus full")

type EventBus struct {
	events chan SessionEvent
	done   chan struct{}
	closed atomic.Bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		events: make(chan SessionEvent, 100),
		done:   make(chan struct{}),
	}
}

func (eb *EventBus) Publish(ctx context.Context, ev SessionEvent) error {
	if eb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case eb.events <- ev:
		return nil
	case <-eb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume blocks until an event is available, the bus is closed, or the
// context is cancelled. The second return value reports whether an event
// was delivered.
func (eb *EventBus) Consume(ctx context.Context) (SessionEvent, bool) {
	select {
	case ev, ok := <-eb.events:
		return ev, ok
	case <-eb.done:
		return SessionEvent{}, false
	case <-ctx.Done():
		return SessionEvent{}, false
	}
}

// TryPublish enqueues an event without blocking so callers holding locks
// never stall on a slow consumer. Returns ErrBusClosed after Close and
// ErrBusFull when the buffer is saturated.
func (eb *EventBus) TryPublish(ev SessionEvent) error {
	if eb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case eb.events <- ev:
		return nil
	case <-eb.done:
		return ErrBusClosed
	default:
		return ErrBusFull
	}
}

func (eb *EventBus) Close() {
	if eb.closed.CompareAndSwap(false, true) {
		close(eb.done)
	}
}
