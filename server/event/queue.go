// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultMaxQueueSize is the default maximum size for event queues.
const DefaultMaxQueueSize = 1024

// Queue is the write side of an event stream. Events are delivered in the
// order EnqueueEvent is called.
type Queue interface {
	EnqueueEvent(ctx context.Context, event Event) error
}

type discard struct{}

func (discard) EnqueueEvent(context.Context, Event) error { return nil }

// Discard is a Queue that drops every event.
var Discard Queue = discard{}

// EventQueue is a bounded queue for A2A events.
// It supports tapping to create child queues that receive the same events.
type EventQueue struct {
	mu           sync.RWMutex
	queue        chan Event
	done         chan struct{}
	closeOnce    sync.Once
	children     []*EventQueue
	closed       bool
	maxQueueSize int
	dropped      atomic.Int64
}

var _ Queue = (*EventQueue)(nil)

// NewEventQueue creates a new EventQueue with the specified maximum size.
func NewEventQueue(maxQueueSize int) *EventQueue {
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	}
	return &EventQueue{
		queue:        make(chan Event, maxQueueSize),
		done:         make(chan struct{}),
		maxQueueSize: maxQueueSize,
	}
}

// EnqueueEvent adds an event to this queue and offers it to all children.
//
// It blocks while the queue is full, until a consumer makes room, the queue
// is closed or ctx is done. Children never block the producer: a child that
// is full drops the event.
func (eq *EventQueue) EnqueueEvent(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if err := event.Validate(); err != nil {
		return &InvalidEventError{Event: event, Err: err}
	}

	eq.mu.RLock()
	defer eq.mu.RUnlock()

	if eq.closed {
		return ErrQueueClosed
	}

	select {
	case eq.queue <- event:
	case <-eq.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, child := range eq.children {
		child.offer(event)
	}

	return nil
}

func (eq *EventQueue) offer(event Event) {
	eq.mu.RLock()
	defer eq.mu.RUnlock()

	if eq.closed {
		return
	}
	select {
	case eq.queue <- event:
	default:
		eq.dropped.Add(1)
	}
}

// DequeueEvent retrieves an event from the queue.
// If noWait is true, it returns immediately with ErrQueueEmpty if no event is available.
// Once the queue is closed and drained it returns ErrQueueClosed.
func (eq *EventQueue) DequeueEvent(ctx context.Context, noWait bool) (Event, error) {
	if noWait {
		select {
		case event, ok := <-eq.queue:
			if !ok {
				return nil, ErrQueueClosed
			}
			return event, nil
		default:
			return nil, ErrQueueEmpty
		}
	}

	select {
	case event, ok := <-eq.queue:
		if !ok {
			return nil, ErrQueueClosed
		}
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Tap creates a new child EventQueue that receives all future events.
// The child queue has the same maximum size as the parent.
func (eq *EventQueue) Tap() *EventQueue {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	child := NewEventQueue(eq.maxQueueSize)
	if eq.closed {
		child.Close()
		return child
	}
	eq.children = append(eq.children, child)
	return child
}

// Close closes the queue for future events and propagates the close signal
// to all child queues. Events already queued can still be dequeued.
func (eq *EventQueue) Close() error {
	// Unblock producers waiting on a full queue before taking the write lock.
	eq.closeOnce.Do(func() { close(eq.done) })

	eq.mu.Lock()
	defer eq.mu.Unlock()

	if eq.closed {
		return nil
	}
	eq.closed = true
	close(eq.queue)

	for _, child := range eq.children {
		child.Close()
	}
	return nil
}

// IsClosed checks if the queue is closed.
func (eq *EventQueue) IsClosed() bool {
	eq.mu.RLock()
	defer eq.mu.RUnlock()
	return eq.closed
}

// Len returns the current number of events in the queue.
func (eq *EventQueue) Len() int {
	return len(eq.queue)
}

// Dropped returns the number of events this queue dropped as a full child.
func (eq *EventQueue) Dropped() int64 {
	return eq.dropped.Load()
}

// String returns a string representation of the EventQueue.
func (eq *EventQueue) String() string {
	eq.mu.RLock()
	defer eq.mu.RUnlock()

	return fmt.Sprintf("EventQueue{len: %d, cap: %d, children: %d, closed: %t}",
		len(eq.queue), eq.maxQueueSize, len(eq.children), eq.closed)
}
