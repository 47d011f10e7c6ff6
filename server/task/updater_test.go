// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"errors"
	"testing"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/server/event"
)

func TestNewUpdater(t *testing.T) {
	tests := []struct {
		name      string
		queue     event.Queue
		taskID    string
		contextID string
		wantErr   bool
	}{
		{name: "valid", queue: event.Discard, taskID: "t", contextID: "c"},
		{name: "empty task ID", queue: event.Discard, contextID: "c", wantErr: true},
		{name: "empty context ID", queue: event.Discard, taskID: "t", wantErr: true},
		{name: "nil queue", taskID: "t", contextID: "c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUpdater(tt.queue, tt.taskID, tt.contextID)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewUpdater() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdater_SingleFinalUpdate(t *testing.T) {
	ctx := t.Context()
	q := &recordingQueue{}
	u, err := NewUpdater(q, "t1", "c1")
	if err != nil {
		t.Fatal(err)
	}

	if err := u.Submit(ctx, nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := u.StartWork(ctx, nil); err != nil {
		t.Fatalf("StartWork() error = %v", err)
	}
	artifact, _ := a2a.NewTextArtifact("out", "result", "")
	if err := u.AddArtifact(ctx, artifact, true); err != nil {
		t.Fatalf("AddArtifact() error = %v", err)
	}
	if u.IsFinal() {
		t.Fatal("IsFinal() = true before a final update")
	}
	if err := u.Complete(ctx, u.NewAgentMessage("done")); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !u.IsFinal() {
		t.Fatal("IsFinal() = false after Complete()")
	}

	if err := u.Failed(ctx, "late"); !errors.Is(err, ErrFinalEventSent) {
		t.Errorf("Failed() after Complete() error = %v, want ErrFinalEventSent", err)
	}
	if err := u.AddArtifact(ctx, artifact, true); !errors.Is(err, ErrFinalEventSent) {
		t.Errorf("AddArtifact() after Complete() error = %v, want ErrFinalEventSent", err)
	}

	var finals int
	for _, ev := range q.events {
		if event.IsFinalEvent(ev) {
			finals++
		}
	}
	if len(q.events) != 4 || finals != 1 {
		t.Errorf("published %d events with %d final, want 4 with 1 final", len(q.events), finals)
	}
}

func TestUpdater_RequiresInputIsFinal(t *testing.T) {
	q := &recordingQueue{}
	u, _ := NewUpdater(q, "t1", "c1")

	if err := u.RequiresInput(t.Context(), u.NewAgentMessage("approve?")); err != nil {
		t.Fatal(err)
	}
	ev, ok := q.events[0].(*event.TaskStatusUpdateEvent)
	if !ok || !ev.Final || ev.Status.State != a2a.TaskStateInputRequired {
		t.Errorf("event = %v, want final input-required status", q.events[0])
	}
	if ev.Status.Message == nil || ev.Status.Message.TaskID != "t1" || ev.Status.Message.ContextID != "c1" {
		t.Errorf("status message = %+v, want message scoped to t1/c1", ev.Status.Message)
	}
}

func TestUpdater_NewAgentMessageEmpty(t *testing.T) {
	u, _ := NewUpdater(event.Discard, "t1", "c1")
	if m := u.NewAgentMessage(""); m != nil {
		t.Errorf("NewAgentMessage(\"\") = %v, want nil", m)
	}
}
