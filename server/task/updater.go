// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/server/event"
)

// ErrFinalEventSent is returned by Updater once a final status update has
// been published for the current attempt.
var ErrFinalEventSent = errors.New("final status update already sent")

// Updater publishes the update events of one execution attempt of a task.
//
// At most one final status update is published; every update after it is
// rejected with ErrFinalEventSent.
type Updater struct {
	taskID    string
	contextID string
	queue     event.Queue

	mu    sync.Mutex
	final bool
}

// NewUpdater creates an Updater publishing to queue.
func NewUpdater(queue event.Queue, taskID, contextID string) (*Updater, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}
	if contextID == "" {
		return nil, fmt.Errorf("context ID cannot be empty")
	}
	if queue == nil {
		return nil, fmt.Errorf("event queue cannot be nil")
	}

	return &Updater{
		taskID:    taskID,
		contextID: contextID,
		queue:     queue,
	}, nil
}

// UpdateStatus publishes a status update carrying message.
func (u *Updater) UpdateStatus(ctx context.Context, state a2a.TaskState, message *a2a.Message, final bool) error {
	ev := event.NewTaskStatusUpdateEvent(u.taskID, u.contextID, state, message, final)
	return u.Publish(ctx, ev)
}

// Publish enqueues a prepared event, enforcing the single final update rule.
func (u *Updater) Publish(ctx context.Context, ev event.Event) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.final {
		return ErrFinalEventSent
	}
	if event.IsFinalEvent(ev) {
		u.final = true
	}

	if err := u.queue.EnqueueEvent(ctx, ev); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.EventType(), err)
	}
	return nil
}

// AddArtifact publishes an artifact update.
func (u *Updater) AddArtifact(ctx context.Context, artifact *a2a.Artifact, lastChunk bool) error {
	if artifact == nil {
		return fmt.Errorf("artifact cannot be nil")
	}
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("artifact validation failed: %w", err)
	}
	return u.Publish(ctx, event.NewTaskArtifactUpdateEvent(u.taskID, u.contextID, artifact, lastChunk))
}

// Submit marks the task as submitted.
func (u *Updater) Submit(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateSubmitted, message, false)
}

// StartWork marks the task as working.
func (u *Updater) StartWork(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateWorking, message, false)
}

// Complete marks the task as completed.
func (u *Updater) Complete(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCompleted, message, true)
}

// Failed marks the task as failed with text as the status message.
func (u *Updater) Failed(ctx context.Context, text string) error {
	return u.UpdateStatus(ctx, a2a.TaskStateFailed, u.NewAgentMessage(text), true)
}

// Cancel marks the task as canceled.
func (u *Updater) Cancel(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCanceled, message, true)
}

// RequiresInput pauses the task until the user answers message.
func (u *Updater) RequiresInput(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateInputRequired, message, true)
}

// NewAgentMessage returns an agent text message scoped to the task, or nil
// when text is empty.
func (u *Updater) NewAgentMessage(text string) *a2a.Message {
	if text == "" {
		return nil
	}
	return a2a.NewAgentTextMessage(text, u.contextID, u.taskID)
}

// TaskID returns the task ID this updater publishes for.
func (u *Updater) TaskID() string { return u.taskID }

// ContextID returns the context ID this updater publishes for.
func (u *Updater) ContextID() string { return u.contextID }

// IsFinal reports whether a final update has been published.
func (u *Updater) IsFinal() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.final
}
