// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueClosed is returned by EventQueue once Close has been called.
	// Producers whose consumer is gone, such as a detached request handler
	// producer, treat it as the end of delivery rather than a failure.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueEmpty is returned by a non-blocking DequeueEvent on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")
)

// NoTaskQueueError is returned by a QueueManager asked to close a task that
// has no queue. Releasing a producer twice hits it; callers match it with
// errors.Is and ignore it.
type NoTaskQueueError struct {
	TaskID string
}

func (e *NoTaskQueueError) Error() string {
	return fmt.Sprintf("no event queue for task %s", e.TaskID)
}

// Is matches any NoTaskQueueError.
func (e *NoTaskQueueError) Is(target error) bool {
	_, ok := target.(*NoTaskQueueError)
	return ok
}

// TaskQueueExistsError is returned by QueueManager.Add when the task already
// has a queue. CreateOrTap taps the existing queue instead.
type TaskQueueExistsError struct {
	TaskID string
}

func (e *TaskQueueExistsError) Error() string {
	return fmt.Sprintf("task %s already has an event queue", e.TaskID)
}

// Is matches any TaskQueueExistsError.
func (e *TaskQueueExistsError) Is(target error) bool {
	_, ok := target.(*TaskQueueExistsError)
	return ok
}

// InvalidEventError is returned by EnqueueEvent for an update that fails
// validation, for example one without a task or context ID. The event is not
// delivered.
type InvalidEventError struct {
	Event Event
	Err   error
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid %s event: %v", e.Event.EventType(), e.Err)
}

func (e *InvalidEventError) Unwrap() error { return e.Err }
