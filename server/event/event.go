// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package event provides the protocol update events emitted during task
// execution, the queues that carry them and the per-task queue manager.
package event

import (
	"fmt"

	a2a "github.com/go-a2a/kagent-a2a"
)

// Event represents a unified interface for all event types in the A2A system.
type Event interface {
	// EventType returns the wire kind of the event.
	EventType() string

	// Validate ensures the event is in a valid state.
	Validate() error

	// String returns a string representation of the event.
	String() string
}

// TaskStatusUpdateEvent represents a task status update event.
type TaskStatusUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Kind      string         `json:"kind"`
	Status    a2a.TaskStatus `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

var _ Event = (*TaskStatusUpdateEvent)(nil)

// EventType returns the event type for TaskStatusUpdateEvent.
func (e *TaskStatusUpdateEvent) EventType() string {
	return a2a.KindStatusUpdate
}

// Validate ensures the TaskStatusUpdateEvent is valid.
func (e *TaskStatusUpdateEvent) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("task status update event task ID cannot be empty")
	}
	return e.Status.Validate()
}

// String returns a string representation of the TaskStatusUpdateEvent.
func (e *TaskStatusUpdateEvent) String() string {
	return fmt.Sprintf("TaskStatusUpdateEvent{TaskID: %s, Status: %s, Final: %t}",
		e.TaskID, e.Status.State, e.Final)
}

// TaskArtifactUpdateEvent represents a task artifact update event.
type TaskArtifactUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Kind      string         `json:"kind"`
	Artifact  *a2a.Artifact  `json:"artifact"`
	Append    bool           `json:"append,omitzero"`
	LastChunk bool           `json:"lastChunk,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

var _ Event = (*TaskArtifactUpdateEvent)(nil)

// EventType returns the event type for TaskArtifactUpdateEvent.
func (e *TaskArtifactUpdateEvent) EventType() string {
	return a2a.KindArtifactUpdate
}

// Validate ensures the TaskArtifactUpdateEvent is valid.
func (e *TaskArtifactUpdateEvent) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("task artifact update event task ID cannot be empty")
	}
	if e.Artifact == nil {
		return fmt.Errorf("task artifact update event artifact cannot be nil")
	}
	return e.Artifact.Validate()
}

// String returns a string representation of the TaskArtifactUpdateEvent.
func (e *TaskArtifactUpdateEvent) String() string {
	artifactID := "nil"
	if e.Artifact != nil {
		artifactID = e.Artifact.ArtifactID
	}
	return fmt.Sprintf("TaskArtifactUpdateEvent{TaskID: %s, Artifact: %s, LastChunk: %t}",
		e.TaskID, artifactID, e.LastChunk)
}

// NewTaskStatusUpdateEvent creates a new TaskStatusUpdateEvent stamped with
// the current time.
func NewTaskStatusUpdateEvent(taskID, contextID string, state a2a.TaskState, message *a2a.Message, final bool) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      a2a.KindStatusUpdate,
		Status: a2a.TaskStatus{
			State:     state,
			Message:   message,
			Timestamp: a2a.Now(),
		},
		Final: final,
	}
}

// NewTaskArtifactUpdateEvent creates a new TaskArtifactUpdateEvent.
func NewTaskArtifactUpdateEvent(taskID, contextID string, artifact *a2a.Artifact, lastChunk bool) *TaskArtifactUpdateEvent {
	return &TaskArtifactUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      a2a.KindArtifactUpdate,
		Artifact:  artifact,
		LastChunk: lastChunk,
	}
}

// IsFinalEvent reports whether event ends an execution attempt.
func IsFinalEvent(event Event) bool {
	e, ok := event.(*TaskStatusUpdateEvent)
	return ok && e.Final
}
