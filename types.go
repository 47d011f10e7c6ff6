// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a provides Go types for the Agent-to-Agent (A2A) protocol as used
// by the kagent executor core.
package a2a

import (
	"fmt"
	"slices"
)

// TaskState represents the state of a task.
type TaskState string

// Task states.
const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateRejected      TaskState = "rejected"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateUnknown       TaskState = "unknown"
)

// TaskStates lists every known task state.
var TaskStates = []TaskState{
	TaskStateSubmitted,
	TaskStateWorking,
	TaskStateInputRequired,
	TaskStateCompleted,
	TaskStateCanceled,
	TaskStateFailed,
	TaskStateRejected,
	TaskStateAuthRequired,
	TaskStateUnknown,
}

// IsTerminal reports whether no further transitions are possible from s.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected:
		return true
	default:
		return false
	}
}

// IsFinal reports whether s ends a single execution attempt.
//
// input-required is final for the attempt but not for the task.
func (s TaskState) IsFinal() bool {
	return s == TaskStateInputRequired || s.IsTerminal()
}

// Validate ensures the TaskState is a known value.
func (s TaskState) Validate() error {
	if !slices.Contains(TaskStates, s) {
		return fmt.Errorf("invalid task state: %q", s)
	}
	return nil
}

// TaskStatus represents the status of a task at a point in time.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitzero"`
	Timestamp string    `json:"timestamp,omitzero"`
}

// Validate ensures the TaskStatus is valid.
func (ts TaskStatus) Validate() error {
	if err := ts.State.Validate(); err != nil {
		return err
	}
	if ts.Message != nil {
		if err := ts.Message.Validate(); err != nil {
			return fmt.Errorf("invalid status message: %w", err)
		}
	}
	return nil
}

// Task represents a unit of conversational work.
type Task struct {
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Kind      string         `json:"kind"`
	Status    TaskStatus     `json:"status"`
	Artifacts []*Artifact    `json:"artifacts,omitzero"`
	History   []*Message     `json:"history,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Task is valid.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if t.ContextID == "" {
		return fmt.Errorf("task context ID cannot be empty")
	}
	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("invalid task status: %w", err)
	}
	for i, artifact := range t.Artifacts {
		if artifact == nil {
			return fmt.Errorf("artifact at index %d cannot be nil", i)
		}
		if err := artifact.Validate(); err != nil {
			return fmt.Errorf("artifact at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// AgentCapabilities defines optional capabilities supported by an agent.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming,omitzero"`
	PushNotifications      bool `json:"pushNotifications,omitzero"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitzero"`
}

// AgentSkill represents a unit of capability that an agent can perform.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Examples    []string `json:"examples,omitzero"`
}

// AgentCard conveys key information about an agent.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	ProtocolVersion    string            `json:"protocolVersion,omitzero"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes"`
	DefaultOutputModes []string          `json:"defaultOutputModes"`
	Skills             []AgentSkill      `json:"skills"`
}

// Validate ensures the AgentCard is valid.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("agent card name cannot be empty")
	}
	if c.URL == "" {
		return fmt.Errorf("agent card URL cannot be empty")
	}
	if c.Version == "" {
		return fmt.Errorf("agent card version cannot be empty")
	}
	return nil
}

// MessageSendConfiguration configures a message/send request.
type MessageSendConfiguration struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitzero"`
	Blocking            bool     `json:"blocking,omitzero"`
	HistoryLength       *int     `json:"historyLength,omitzero"`
}

// MessageSendParams holds the parameters of message/send and message/stream.
type MessageSendParams struct {
	Message       *Message                  `json:"message"`
	Configuration *MessageSendConfiguration `json:"configuration,omitzero"`
	Metadata      map[string]any            `json:"metadata,omitzero"`
}

// Validate ensures the MessageSendParams is valid.
func (p *MessageSendParams) Validate() error {
	if p.Message == nil {
		return fmt.Errorf("message cannot be nil")
	}
	return p.Message.Validate()
}

// TaskIDParams identifies a task.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the TaskIDParams is valid.
func (p *TaskIDParams) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	return nil
}

// TaskQueryParams identifies a task and limits the returned history.
type TaskQueryParams struct {
	ID            string         `json:"id"`
	HistoryLength *int           `json:"historyLength,omitzero"`
	Metadata      map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the TaskQueryParams is valid.
func (p *TaskQueryParams) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if p.HistoryLength != nil && *p.HistoryLength < 0 {
		return fmt.Errorf("history length cannot be negative")
	}
	return nil
}
