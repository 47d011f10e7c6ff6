// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"testing"
	"time"

	a2a "github.com/go-a2a/kagent-a2a"
)

func statusEvent(taskID string, state a2a.TaskState, final bool) *TaskStatusUpdateEvent {
	return NewTaskStatusUpdateEvent(taskID, "ctx-1", state, nil, final)
}

func TestEventQueueEnqueueDequeue(t *testing.T) {
	queue := NewEventQueue(2)
	ctx := t.Context()

	first := statusEvent("t1", a2a.TaskStateSubmitted, false)
	second := statusEvent("t1", a2a.TaskStateWorking, false)

	if err := queue.EnqueueEvent(ctx, first); err != nil {
		t.Fatalf("EnqueueEvent() error = %v", err)
	}
	if err := queue.EnqueueEvent(ctx, second); err != nil {
		t.Fatalf("EnqueueEvent() error = %v", err)
	}
	if queue.Len() != 2 {
		t.Errorf("Expected length 2, got %d", queue.Len())
	}

	for _, want := range []Event{first, second} {
		got, err := queue.DequeueEvent(ctx, true)
		if err != nil {
			t.Fatalf("DequeueEvent() error = %v", err)
		}
		if got != want {
			t.Errorf("DequeueEvent() = %v, want %v", got, want)
		}
	}

	if _, err := queue.DequeueEvent(ctx, true); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Expected ErrQueueEmpty, got %v", err)
	}
}

func TestEventQueueRejectsInvalidEvent(t *testing.T) {
	queue := NewEventQueue(1)

	err := queue.EnqueueEvent(t.Context(), &TaskStatusUpdateEvent{Status: a2a.TaskStatus{State: a2a.TaskStateWorking}})
	var invalid *InvalidEventError
	if !errors.As(err, &invalid) {
		t.Errorf("Expected InvalidEventError, got %v", err)
	}
	if err := queue.EnqueueEvent(t.Context(), nil); err == nil {
		t.Error("Expected error for nil event")
	}
}

func TestEventQueueBlocksUntilConsumed(t *testing.T) {
	queue := NewEventQueue(1)
	ctx := t.Context()

	if err := queue.EnqueueEvent(ctx, statusEvent("t1", a2a.TaskStateWorking, false)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- queue.EnqueueEvent(ctx, statusEvent("t1", a2a.TaskStateCompleted, true))
	}()

	select {
	case err := <-done:
		t.Fatalf("EnqueueEvent() returned %v on a full queue", err)
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := queue.DequeueEvent(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Errorf("EnqueueEvent() error = %v", err)
	}
}

func TestEventQueueCloseUnblocksProducer(t *testing.T) {
	queue := NewEventQueue(1)
	ctx := t.Context()

	if err := queue.EnqueueEvent(ctx, statusEvent("t1", a2a.TaskStateWorking, false)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- queue.EnqueueEvent(ctx, statusEvent("t1", a2a.TaskStateCompleted, true))
	}()
	time.Sleep(10 * time.Millisecond)

	if err := queue.Close(); err != nil {
		t.Fatal(err)
	}
	if err := <-done; !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}

	// Events queued before Close are still delivered.
	if _, err := queue.DequeueEvent(ctx, false); err != nil {
		t.Errorf("DequeueEvent() error = %v", err)
	}
	if _, err := queue.DequeueEvent(ctx, false); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed after drain, got %v", err)
	}
	if err := queue.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestEventQueueDequeueHonorsContext(t *testing.T) {
	queue := NewEventQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := queue.DequeueEvent(ctx, false); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestEventQueueTap(t *testing.T) {
	parent := NewEventQueue(4)
	child := parent.Tap()
	ctx := t.Context()

	ev := statusEvent("t1", a2a.TaskStateWorking, false)
	if err := parent.EnqueueEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}

	got, err := child.DequeueEvent(ctx, true)
	if err != nil {
		t.Fatalf("child DequeueEvent() error = %v", err)
	}
	if got != ev {
		t.Errorf("child received %v, want %v", got, ev)
	}

	parent.Close()
	if !child.IsClosed() {
		t.Error("Expected child to be closed with its parent")
	}
	if late := parent.Tap(); !late.IsClosed() {
		t.Error("Expected tap of a closed queue to be closed")
	}
}

func TestEventQueueFullChildDropsWithoutBlocking(t *testing.T) {
	parent := NewEventQueue(4)
	child := parent.Tap()
	ctx := t.Context()

	// Fill the child past its capacity; the parent keeps accepting.
	for range 4 {
		if err := parent.EnqueueEvent(ctx, statusEvent("t1", a2a.TaskStateWorking, false)); err != nil {
			t.Fatal(err)
		}
		if _, err := parent.DequeueEvent(ctx, true); err != nil {
			t.Fatal(err)
		}
	}
	if err := parent.EnqueueEvent(ctx, statusEvent("t1", a2a.TaskStateWorking, false)); err != nil {
		t.Fatalf("EnqueueEvent() blocked on a full child: %v", err)
	}
	if got := child.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
}

func TestIsFinalEvent(t *testing.T) {
	if IsFinalEvent(statusEvent("t1", a2a.TaskStateWorking, false)) {
		t.Error("non-final status reported final")
	}
	if !IsFinalEvent(statusEvent("t1", a2a.TaskStateCompleted, true)) {
		t.Error("final status not reported final")
	}
	artifact := NewTaskArtifactUpdateEvent("t1", "ctx-1", &a2a.Artifact{ArtifactID: "a", Parts: a2a.Parts{a2a.NewTextPart("x")}}, true)
	if IsFinalEvent(artifact) {
		t.Error("artifact update reported final")
	}
}
