// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound matches every TaskNotFoundError.
var ErrTaskNotFound = errors.New("task not found")

// TaskNotFoundError is returned when a task does not exist in the store.
type TaskNotFoundError struct {
	TaskID string
}

func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// Is reports whether target is ErrTaskNotFound.
func (e TaskNotFoundError) Is(target error) bool {
	return target == ErrTaskNotFound
}

// TaskStoreError represents an error in task store operations.
// A failed save surfaced through the persisting queue is a TaskStoreError
// with Operation "save".
type TaskStoreError struct {
	Operation string
	TaskID    string
	Err       error
}

func (e TaskStoreError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("task store %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("task store %s failed for task %s: %v", e.Operation, e.TaskID, e.Err)
}

func (e TaskStoreError) Unwrap() error {
	return e.Err
}

// TaskValidationError represents a validation error for tasks.
type TaskValidationError struct {
	TaskID string
	Err    error
}

func (e TaskValidationError) Error() string {
	return fmt.Sprintf("task validation failed for task %s: %v", e.TaskID, e.Err)
}

func (e TaskValidationError) Unwrap() error {
	return e.Err
}

// NewTaskStoreError creates a new TaskStoreError.
func NewTaskStoreError(operation, taskID string, err error) TaskStoreError {
	return TaskStoreError{
		Operation: operation,
		TaskID:    taskID,
		Err:       err,
	}
}

// NewTaskValidationError creates a new TaskValidationError.
func NewTaskValidationError(taskID string, err error) TaskValidationError {
	return TaskValidationError{
		TaskID: taskID,
		Err:    err,
	}
}
