// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/internal/logger"
)

// InMemoryTaskStore is an in-memory implementation of TaskStore.
// Tasks are deep-copied on the way in and out.
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*a2a.Task
}

var (
	_ TaskStore   = (*InMemoryTaskStore)(nil)
	_ StateLister = (*InMemoryTaskStore)(nil)
)

// NewInMemoryTaskStore creates a new InMemoryTaskStore.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*a2a.Task),
	}
}

// Save persists a copy of task.
func (s *InMemoryTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return NewTaskValidationError(task.ID, err)
	}

	stored, err := task.Clone()
	if err != nil {
		return NewTaskStoreError("save", task.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = stored
	return nil
}

// Get retrieves a copy of the task with taskID.
func (s *InMemoryTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	s.mu.RLock()
	task, ok := s.tasks[taskID]
	s.mu.RUnlock()

	if !ok {
		return nil, TaskNotFoundError{TaskID: taskID}
	}
	clone, err := task.Clone()
	if err != nil {
		return nil, NewTaskStoreError("get", taskID, err)
	}
	return clone, nil
}

// Delete removes the task with taskID.
func (s *InMemoryTaskStore) Delete(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return TaskNotFoundError{TaskID: taskID}
	}
	delete(s.tasks, taskID)
	return nil
}

// ListByState returns copies of every task in state, ordered by task ID.
// A task that cannot be copied is logged and left out.
func (s *InMemoryTaskStore) ListByState(ctx context.Context, state a2a.TaskState) ([]*a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*a2a.Task
	for _, task := range s.tasks {
		if task.Status.State != state {
			continue
		}
		clone, err := task.Clone()
		if err != nil {
			logger.FromContext(ctx).Warn("skipping task that cannot be copied", "task_id", task.ID, "error", err)
			continue
		}
		tasks = append(tasks, clone)
	}
	slices.SortFunc(tasks, func(a, b *a2a.Task) int { return cmp.Compare(a.ID, b.ID) })
	return tasks, nil
}

// Size returns the number of stored tasks.
func (s *InMemoryTaskStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
