// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package task provides task persistence: the TaskStore abstraction with
// in-memory, relational and Redis implementations, the persisting event
// queue that mirrors update events into a store, and the task updater used
// to emit those events.
package task

import (
	"context"
	"errors"

	a2a "github.com/go-a2a/kagent-a2a"
)

// TaskStore defines the interface for task persistence operations.
// Implementations must be safe for concurrent use.
type TaskStore interface {
	// Save persists a task to the storage backend.
	// If the task already exists, it will be replaced.
	Save(ctx context.Context, task *a2a.Task) error

	// Get retrieves a task by its ID from the storage backend.
	// Returns TaskNotFoundError if the task doesn't exist.
	Get(ctx context.Context, taskID string) (*a2a.Task, error)

	// Delete removes a task from the storage backend.
	// Returns TaskNotFoundError if the task doesn't exist.
	Delete(ctx context.Context, taskID string) error
}

// StateLister is implemented by stores that can query tasks by state.
// Crash recovery is only possible for stores implementing it.
type StateLister interface {
	ListByState(ctx context.Context, state a2a.TaskState) ([]*a2a.Task, error)
}

// Lifecycle is implemented by stores that need setup and teardown.
type Lifecycle interface {
	// Initialize prepares the storage backend for use.
	Initialize(ctx context.Context) error

	// Close cleanly shuts down the storage backend.
	Close(ctx context.Context) error
}

// Load returns the task with taskID, or nil when the store has no such task.
func Load(ctx context.Context, store TaskStore, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, nil
	}
	t, err := store.Get(ctx, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		return nil, nil
	}
	return t, err
}
