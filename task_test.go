// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTaskStateIsFinal(t *testing.T) {
	final := map[TaskState]bool{
		TaskStateSubmitted:     false,
		TaskStateWorking:       false,
		TaskStateInputRequired: true,
		TaskStateCompleted:     true,
		TaskStateCanceled:      true,
		TaskStateFailed:        true,
		TaskStateRejected:      true,
		TaskStateAuthRequired:  false,
	}
	for state, want := range final {
		if got := state.IsFinal(); got != want {
			t.Errorf("%s.IsFinal() = %v, want %v", state, got, want)
		}
	}
	if TaskStateInputRequired.IsTerminal() {
		t.Error("input-required must not be terminal")
	}
	if err := TaskState("bogus").Validate(); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestNewTask(t *testing.T) {
	msg := NewUserMessage(Parts{NewTextPart("Hi")}, "ctx-1", "")

	task, err := NewTask(msg)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if task.ContextID != "ctx-1" {
		t.Errorf("ContextID = %q, want %q", task.ContextID, "ctx-1")
	}
	if task.ID == "" {
		t.Error("expected generated task ID")
	}
	if task.Status.State != TaskStateSubmitted {
		t.Errorf("State = %q, want %q", task.Status.State, TaskStateSubmitted)
	}
	if diff := cmp.Diff([]*Message{msg}, task.History); diff != "" {
		t.Errorf("History mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewTask(nil); err == nil {
		t.Error("expected error for nil message")
	}
}

func TestTaskCloneIsDeep(t *testing.T) {
	task := &Task{
		ID:        "t1",
		ContextID: "c1",
		Kind:      KindTask,
		Status:    TaskStatus{State: TaskStateWorking},
		Metadata:  map[string]any{MetadataKeyUserID: "alice"},
	}

	clone, err := task.Clone()
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	clone.Metadata[MetadataKeyUserID] = "bob"
	clone.Status.State = TaskStateCompleted

	if task.Metadata[MetadataKeyUserID] != "alice" {
		t.Error("Clone() shares metadata with the original")
	}
	if task.Status.State != TaskStateWorking {
		t.Error("Clone() shares status with the original")
	}
}

func TestTaskAppendHistoryReplacesByMessageID(t *testing.T) {
	task := &Task{}
	first := &Message{MessageID: "m1", Role: RoleAgent, Parts: Parts{NewTextPart("He")}}
	second := &Message{MessageID: "m1", Role: RoleAgent, Parts: Parts{NewTextPart("Hello")}}
	other := &Message{MessageID: "m2", Role: RoleUser, Parts: Parts{NewTextPart("Hi")}}

	task.AppendHistory(first)
	task.AppendHistory(other)
	task.AppendHistory(second)

	want := []*Message{second, other}
	if diff := cmp.Diff(want, task.History); diff != "" {
		t.Errorf("History mismatch (-want +got):\n%s", diff)
	}
	if got := task.LastUserMessage(); got != other {
		t.Errorf("LastUserMessage() = %v, want %v", got, other)
	}

	task.TrimHistory(1)
	if len(task.History) != 1 || task.History[0] != other {
		t.Errorf("TrimHistory(1) = %v", task.History)
	}
}

func TestTaskUserID(t *testing.T) {
	tests := []struct {
		name string
		task *Task
		want string
	}{
		{
			name: "task metadata",
			task: &Task{Metadata: map[string]any{MetadataKeyUserID: "alice"}},
			want: "alice",
		},
		{
			name: "status message metadata",
			task: &Task{Status: TaskStatus{Message: &Message{Metadata: map[string]any{MetadataKeyUserID: "bob"}}}},
			want: "bob",
		},
		{
			name: "none",
			task: &Task{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.UserID(); got != tt.want {
				t.Errorf("UserID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpsertArtifact(t *testing.T) {
	a1 := &Artifact{ArtifactID: "a", Parts: Parts{NewTextPart("one")}}
	a2 := &Artifact{ArtifactID: "a", Parts: Parts{NewTextPart("two")}}
	b := &Artifact{ArtifactID: "b", Parts: Parts{NewTextPart("b")}}

	var artifacts []*Artifact
	artifacts = UpsertArtifact(artifacts, a1)
	artifacts = UpsertArtifact(artifacts, b)
	artifacts = UpsertArtifact(artifacts, a2)

	want := []*Artifact{a2, b}
	if diff := cmp.Diff(want, artifacts); diff != "" {
		t.Errorf("UpsertArtifact() mismatch (-want +got):\n%s", diff)
	}
}

func TestAsJSONRPCError(t *testing.T) {
	if got := AsJSONRPCError(nil); got != nil {
		t.Errorf("AsJSONRPCError(nil) = %v, want nil", got)
	}

	notFound := NewTaskNotFoundError()
	if got := AsJSONRPCError(notFound); got != notFound {
		t.Errorf("AsJSONRPCError() = %v, want %v", got, notFound)
	}

	got := AsJSONRPCError(errors.New("boom"))
	if got.Code != InternalErrorCode {
		t.Errorf("Code = %d, want %d", got.Code, InternalErrorCode)
	}
	if got.Data != "boom" {
		t.Errorf("Data = %v, want %q", got.Data, "boom")
	}
}
