// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
)

// Now returns the current time formatted as an A2A status timestamp.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// NewTask creates a new submitted task for message.
//
// Task and context IDs are taken from the message when present and generated
// otherwise. The message is recorded as the first history entry.
func NewTask(message *Message) (*Task, error) {
	if message == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}
	if err := message.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	taskID := message.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	contextID := message.ContextID
	if contextID == "" {
		contextID = uuid.NewString()
	}

	return &Task{
		ID:        taskID,
		ContextID: contextID,
		Kind:      KindTask,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: Now(),
		},
		History: []*Message{message},
	}, nil
}

// Clone returns a deep copy of t.
func (t *Task) Clone() (*Task, error) {
	if t == nil {
		return nil, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	var clone Task
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &clone, nil
}

// AppendHistory records message in the task history. A message whose ID is
// already present replaces the earlier entry, so partial chunks of one turn
// occupy a single slot.
func (t *Task) AppendHistory(message *Message) {
	if message == nil {
		return
	}
	for i, existing := range t.History {
		if existing != nil && existing.MessageID == message.MessageID {
			t.History[i] = message
			return
		}
	}
	t.History = append(t.History, message)
}

// TrimHistory keeps only the latest n history entries.
func (t *Task) TrimHistory(n int) {
	if n < 0 || len(t.History) <= n {
		return
	}
	t.History = t.History[len(t.History)-n:]
}

// LastUserMessage returns the most recent user message in the task history.
func (t *Task) LastUserMessage() *Message {
	for i := len(t.History) - 1; i >= 0; i-- {
		if m := t.History[i]; m != nil && m.Role == RoleUser {
			return m
		}
	}
	return nil
}

// UserID returns the caller identity recorded on the task, looking at the
// task metadata first and the status message metadata second.
func (t *Task) UserID() string {
	if id, ok := t.Metadata[MetadataKeyUserID].(string); ok && id != "" {
		return id
	}
	if t.Status.Message != nil {
		if id, ok := t.Status.Message.Metadata[MetadataKeyUserID].(string); ok && id != "" {
			return id
		}
	}
	return ""
}
