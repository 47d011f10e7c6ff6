// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/auth"
	"github.com/go-a2a/kagent-a2a/internal/logger"
	"github.com/go-a2a/kagent-a2a/server/agent_execution"
	"github.com/go-a2a/kagent-a2a/server/event"
	"github.com/go-a2a/kagent-a2a/server/executor"
	"github.com/go-a2a/kagent-a2a/server/task"
)

const testTimeout = 5 * time.Second

// funcExecutor publishes through a task.Updater built for each attempt.
type funcExecutor struct {
	execute func(ctx context.Context, reqCtx *agent_execution.RequestContext, u *task.Updater) error
	cancels atomic.Int32
}

func (f *funcExecutor) Execute(ctx context.Context, reqCtx *agent_execution.RequestContext, queue event.Queue) error {
	u, err := task.NewUpdater(queue, reqCtx.TaskID(), reqCtx.ContextID())
	if err != nil {
		return err
	}
	return f.execute(ctx, reqCtx, u)
}

func (f *funcExecutor) Cancel(ctx context.Context, reqCtx *agent_execution.RequestContext, queue event.Queue) error {
	f.cancels.Add(1)
	u, err := task.NewUpdater(queue, reqCtx.TaskID(), reqCtx.ContextID())
	if err != nil {
		return err
	}
	return u.Cancel(ctx, u.NewAgentMessage("Task was canceled."))
}

func completing(text string) *funcExecutor {
	return &funcExecutor{execute: func(ctx context.Context, reqCtx *agent_execution.RequestContext, u *task.Updater) error {
		if reqCtx.CurrentTask() == nil {
			if err := u.Submit(ctx, nil); err != nil {
				return err
			}
		}
		if err := u.StartWork(ctx, nil); err != nil {
			return err
		}
		return u.Complete(ctx, u.NewAgentMessage(text))
	}}
}

// blocking submits, then waits for release or cancellation.
func blocking(release <-chan struct{}) *funcExecutor {
	return &funcExecutor{execute: func(ctx context.Context, _ *agent_execution.RequestContext, u *task.Updater) error {
		if err := u.Submit(ctx, nil); err != nil {
			return err
		}
		select {
		case <-release:
			return u.Complete(ctx, u.NewAgentMessage("done"))
		case <-ctx.Done():
			return ctx.Err()
		}
	}}
}

// countingQueueManager counts Close calls per task.
type countingQueueManager struct {
	*event.InMemoryQueueManager

	mu     sync.Mutex
	closes map[string]int
}

func newCountingQueueManager() *countingQueueManager {
	return &countingQueueManager{
		InMemoryQueueManager: event.NewInMemoryQueueManager(event.DefaultMaxQueueSize),
		closes:               make(map[string]int),
	}
}

func (m *countingQueueManager) Close(taskID string) error {
	m.mu.Lock()
	m.closes[taskID]++
	m.mu.Unlock()
	return m.InMemoryQueueManager.Close(taskID)
}

func (m *countingQueueManager) closeCount(taskID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes[taskID]
}

func newTestHandler(t *testing.T, exec agent_execution.AgentExecutor, store task.TaskStore, opts ...Option) *DefaultRequestHandler {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	h, err := NewDefaultRequestHandler(exec, store, opts...)
	if err != nil {
		t.Fatalf("NewDefaultRequestHandler() error = %v", err)
	}
	return h
}

func sendParams(text, taskID string) *a2a.MessageSendParams {
	return &a2a.MessageSendParams{
		Message: a2a.NewUserMessage(a2a.Parts{a2a.NewTextPart(text)}, "", taskID),
	}
}

func rpcCode(err error) int {
	var rpcErr *a2a.JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}

// eventually polls cond until it holds or the test times out.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func storedState(store task.TaskStore, taskID string) a2a.TaskState {
	t, err := store.Get(context.Background(), taskID)
	if err != nil {
		return ""
	}
	return t.Status.State
}

func TestNewDefaultRequestHandler(t *testing.T) {
	store := task.NewInMemoryTaskStore()
	if _, err := NewDefaultRequestHandler(nil, store); err == nil {
		t.Error("expected error for nil executor")
	}
	if _, err := NewDefaultRequestHandler(completing("x"), nil); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestOnMessageSend_Blocking(t *testing.T) {
	ctx := auth.WithUser(t.Context(), auth.AuthenticatedUser{Name: "alice"})
	store := task.NewInMemoryTaskStore()
	qm := newCountingQueueManager()
	h := newTestHandler(t, completing("hello back"), store, WithQueueManager(qm))

	got, err := h.OnMessageSend(ctx, sendParams("hello", ""))
	if err != nil {
		t.Fatalf("OnMessageSend() error = %v", err)
	}
	if got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %s, want %s", got.Status.State, a2a.TaskStateCompleted)
	}
	if diff := cmp.Diff("alice", got.UserID()); diff != "" {
		t.Errorf("UserID() mismatch (-want +got):\n%s", diff)
	}
	if user := got.LastUserMessage(); user == nil || a2a.GetMessageText(user, "") != "hello" {
		t.Errorf("LastUserMessage() = %v, want the sent message", user)
	}

	stored, err := store.Get(ctx, got.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status.State != a2a.TaskStateCompleted {
		t.Errorf("stored state = %s, want completed", stored.Status.State)
	}
	if n := h.RunningTasks(); n != 0 {
		t.Errorf("RunningTasks() = %d, want 0", n)
	}
	if n := qm.closeCount(got.ID); n != 1 {
		t.Errorf("queue Close calls = %d, want 1", n)
	}
}

func TestOnMessageSend_NonBlocking(t *testing.T) {
	store := task.NewInMemoryTaskStore()
	release := make(chan struct{})
	h := newTestHandler(t, blocking(release), store)

	params := sendParams("hello", "")
	params.Configuration = &a2a.MessageSendConfiguration{Blocking: false}
	got, err := h.OnMessageSend(t.Context(), params)
	if err != nil {
		t.Fatalf("OnMessageSend() error = %v", err)
	}
	if got.Status.State != a2a.TaskStateSubmitted {
		t.Errorf("state = %s, want submitted", got.Status.State)
	}

	close(release)
	eventually(t, func() bool { return storedState(store, got.ID) == a2a.TaskStateCompleted })
	eventually(t, func() bool { return h.RunningTasks() == 0 })
}

func TestOnMessageSend_ExistingTask(t *testing.T) {
	ctx := t.Context()
	store := task.NewInMemoryTaskStore()
	h := newTestHandler(t, completing("again"), store)

	existing := &a2a.Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Kind:      a2a.KindTask,
		Status:    a2a.TaskStatus{State: a2a.TaskStateInputRequired},
	}
	if err := store.Save(ctx, existing); err != nil {
		t.Fatal(err)
	}

	got, err := h.OnMessageSend(ctx, sendParams("yes", "task-1"))
	if err != nil {
		t.Fatalf("OnMessageSend() error = %v", err)
	}
	if got.ID != "task-1" || got.ContextID != "ctx-1" {
		t.Errorf("task = %s/%s, want task-1/ctx-1", got.ID, got.ContextID)
	}
	if got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %s, want completed", got.Status.State)
	}
}

func TestOnMessageSend_Errors(t *testing.T) {
	ctx := t.Context()
	store := task.NewInMemoryTaskStore()
	if err := store.Save(ctx, &a2a.Task{
		ID:        "done",
		ContextID: "ctx-1",
		Kind:      a2a.KindTask,
		Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted},
	}); err != nil {
		t.Fatal(err)
	}
	h := newTestHandler(t, completing("x"), store)

	tests := map[string]struct {
		params *a2a.MessageSendParams
		want   int
	}{
		"nil params":    {params: nil, want: a2a.InvalidParamsErrorCode},
		"no message":    {params: &a2a.MessageSendParams{}, want: a2a.InvalidParamsErrorCode},
		"unknown task":  {params: sendParams("hi", "missing"), want: a2a.TaskNotFoundErrorCode},
		"terminal task": {params: sendParams("hi", "done"), want: a2a.InvalidParamsErrorCode},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := h.OnMessageSend(ctx, tt.params)
			if got := rpcCode(err); got != tt.want {
				t.Errorf("error code = %d, want %d (err = %v)", got, tt.want, err)
			}
		})
	}
}

func TestOnMessageSend_AlreadyRunning(t *testing.T) {
	ctx := t.Context()
	store := task.NewInMemoryTaskStore()
	release := make(chan struct{})
	h := newTestHandler(t, blocking(release), store)

	params := sendParams("hello", "")
	params.Configuration = &a2a.MessageSendConfiguration{Blocking: false}
	first, err := h.OnMessageSend(ctx, params)
	if err != nil {
		t.Fatalf("OnMessageSend() error = %v", err)
	}

	_, err = h.OnMessageSend(ctx, sendParams("again", first.ID))
	if got := rpcCode(err); got != a2a.InvalidRequestErrorCode {
		t.Errorf("error code = %d, want %d (err = %v)", got, a2a.InvalidRequestErrorCode, err)
	}

	close(release)
	eventually(t, func() bool { return h.RunningTasks() == 0 })
}

func TestOnMessageSendStream(t *testing.T) {
	store := task.NewInMemoryTaskStore()
	h := newTestHandler(t, completing("streamed"), store)

	var states []string
	for ev, err := range h.OnMessageSendStream(t.Context(), sendParams("hello", "")) {
		if err != nil {
			t.Fatalf("stream error = %v", err)
		}
		if su, ok := ev.(*event.TaskStatusUpdateEvent); ok {
			s := string(su.Status.State)
			if su.Final {
				s += "!"
			}
			states = append(states, s)
		}
	}

	want := []string{"submitted", "working", "completed!"}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
	if n := h.RunningTasks(); n != 0 {
		t.Errorf("RunningTasks() = %d, want 0", n)
	}
}

func TestOnMessageSendStream_ConsumerLeaves(t *testing.T) {
	store := task.NewInMemoryTaskStore()
	release := make(chan struct{})
	h := newTestHandler(t, blocking(release), store)

	var taskID string
	for ev, err := range h.OnMessageSendStream(t.Context(), sendParams("hello", "")) {
		if err != nil {
			t.Fatalf("stream error = %v", err)
		}
		taskID = ev.(*event.TaskStatusUpdateEvent).TaskID
		break
	}

	close(release)
	eventually(t, func() bool { return storedState(store, taskID) == a2a.TaskStateCompleted })
	eventually(t, func() bool { return h.RunningTasks() == 0 })
}

func TestOnMessageSendStream_Error(t *testing.T) {
	h := newTestHandler(t, completing("x"), task.NewInMemoryTaskStore())

	var errs []error
	for _, err := range h.OnMessageSendStream(t.Context(), sendParams("hi", "missing")) {
		errs = append(errs, err)
	}
	if len(errs) != 1 || rpcCode(errs[0]) != a2a.TaskNotFoundErrorCode {
		t.Errorf("errors = %v, want one task-not-found error", errs)
	}
}

func TestOnGetTask(t *testing.T) {
	ctx := t.Context()
	store := task.NewInMemoryTaskStore()
	h := newTestHandler(t, completing("x"), store)

	stored := &a2a.Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Kind:      a2a.KindTask,
		Status:    a2a.TaskStatus{State: a2a.TaskStateWorking},
	}
	for _, text := range []string{"one", "two", "three"} {
		stored.AppendHistory(a2a.NewUserMessage(a2a.Parts{a2a.NewTextPart(text)}, "ctx-1", "task-1"))
	}
	if err := store.Save(ctx, stored); err != nil {
		t.Fatal(err)
	}

	one := 1
	got, err := h.OnGetTask(ctx, &a2a.TaskQueryParams{ID: "task-1", HistoryLength: &one})
	if err != nil {
		t.Fatalf("OnGetTask() error = %v", err)
	}
	if len(got.History) != 1 || a2a.GetMessageText(got.History[0], "") != "three" {
		t.Errorf("history = %v, want only the latest message", got.History)
	}

	if _, err := h.OnGetTask(ctx, &a2a.TaskQueryParams{ID: "missing"}); rpcCode(err) != a2a.TaskNotFoundErrorCode {
		t.Errorf("OnGetTask(missing) error = %v, want task not found", err)
	}
}

func TestOnCancelTask_Running(t *testing.T) {
	ctx := t.Context()
	store := task.NewInMemoryTaskStore()
	exec := blocking(make(chan struct{}))
	h := newTestHandler(t, exec, store)

	params := sendParams("hello", "")
	params.Configuration = &a2a.MessageSendConfiguration{Blocking: false}
	started, err := h.OnMessageSend(ctx, params)
	if err != nil {
		t.Fatalf("OnMessageSend() error = %v", err)
	}

	got, err := h.OnCancelTask(ctx, &a2a.TaskIDParams{ID: started.ID})
	if err != nil {
		t.Fatalf("OnCancelTask() error = %v", err)
	}
	if got.Status.State != a2a.TaskStateCanceled {
		t.Errorf("state = %s, want canceled", got.Status.State)
	}
	if n := exec.cancels.Load(); n != 1 {
		t.Errorf("Cancel calls = %d, want 1", n)
	}
	if s := storedState(store, started.ID); s != a2a.TaskStateCanceled {
		t.Errorf("stored state = %s, want canceled", s)
	}
	eventually(t, func() bool { return h.RunningTasks() == 0 })
}

func TestOnCancelTask_Stream(t *testing.T) {
	ctx := t.Context()
	store := task.NewInMemoryTaskStore()
	h := newTestHandler(t, blocking(make(chan struct{})), store)

	type streamed struct {
		ev  event.Event
		err error
	}
	events := make(chan streamed, 16)
	go func() {
		defer close(events)
		for ev, err := range h.OnMessageSendStream(ctx, sendParams("hello", "")) {
			events <- streamed{ev, err}
		}
	}()

	first := <-events
	if first.err != nil {
		t.Fatalf("stream error = %v", first.err)
	}
	taskID := first.ev.(*event.TaskStatusUpdateEvent).TaskID

	if _, err := h.OnCancelTask(ctx, &a2a.TaskIDParams{ID: taskID}); err != nil {
		t.Fatalf("OnCancelTask() error = %v", err)
	}

	var last *event.TaskStatusUpdateEvent
	timeout := time.After(testTimeout)
	for done := false; !done; {
		select {
		case got, ok := <-events:
			if !ok {
				done = true
				break
			}
			if got.err != nil {
				t.Fatalf("stream error = %v", got.err)
			}
			if su, ok := got.ev.(*event.TaskStatusUpdateEvent); ok {
				last = su
			}
		case <-timeout:
			t.Fatal("stream did not end after cancellation")
		}
	}
	if last == nil || last.Status.State != a2a.TaskStateCanceled || !last.Final {
		t.Errorf("last streamed status = %+v, want final canceled", last)
	}
	eventually(t, func() bool { return h.RunningTasks() == 0 })
}

func TestResume_TracksAttempt(t *testing.T) {
	ctx := t.Context()
	store := task.NewInMemoryTaskStore()
	msg := a2a.NewUserMessage(a2a.Parts{a2a.NewTextPart("long job")}, "ctx-r", "task-r")
	if err := store.Save(ctx, &a2a.Task{
		ID:        "task-r",
		ContextID: "ctx-r",
		Kind:      a2a.KindTask,
		Status:    a2a.TaskStatus{State: a2a.TaskStateWorking},
		History:   []*a2a.Message{msg},
		Metadata:  map[string]any{a2a.MetadataKeyUserID: "dave"},
	}); err != nil {
		t.Fatal(err)
	}

	runCtxErr := make(chan error, 1)
	exec := &funcExecutor{execute: func(ctx context.Context, _ *agent_execution.RequestContext, u *task.Updater) error {
		if err := u.StartWork(ctx, nil); err != nil {
			return err
		}
		<-ctx.Done()
		runCtxErr <- ctx.Err()
		return ctx.Err()
	}}
	h := newTestHandler(t, exec, store)

	resumer := executor.NewResumeService(store, exec,
		executor.WithLauncher(h.Resume),
		executor.WithResumeLogger(logger.Discard()),
	)
	n, err := resumer.Resume(ctx)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Resume() = %d, want 1", n)
	}
	eventually(t, func() bool { return h.RunningTasks() == 1 })

	if _, err := h.OnMessageSend(ctx, sendParams("again", "task-r")); rpcCode(err) != a2a.InvalidRequestErrorCode {
		t.Errorf("OnMessageSend() to resumed task error = %v, want invalid request", err)
	}

	got, err := h.OnCancelTask(ctx, &a2a.TaskIDParams{ID: "task-r"})
	if err != nil {
		t.Fatalf("OnCancelTask() error = %v", err)
	}
	if got.Status.State != a2a.TaskStateCanceled {
		t.Errorf("OnCancelTask() state = %s, want canceled", got.Status.State)
	}

	select {
	case err := <-runCtxErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("resumed run context error = %v, want canceled", err)
		}
	case <-time.After(testTimeout):
		t.Fatal("resumed run was not canceled")
	}

	eventually(t, func() bool { return h.RunningTasks() == 0 })
	if s := storedState(store, "task-r"); s != a2a.TaskStateCanceled {
		t.Errorf("stored state = %s, want canceled", s)
	}
	if n := exec.cancels.Load(); n != 1 {
		t.Errorf("Cancel calls = %d, want 1", n)
	}
}

func TestResume_NilRequestContext(t *testing.T) {
	h := newTestHandler(t, completing("x"), task.NewInMemoryTaskStore())
	if err := h.Resume(t.Context(), nil); rpcCode(err) != a2a.InvalidParamsErrorCode {
		t.Errorf("Resume(nil) error = %v, want invalid params", err)
	}
}

func TestOnCancelTask_Errors(t *testing.T) {
	ctx := t.Context()
	store := task.NewInMemoryTaskStore()
	if err := store.Save(ctx, &a2a.Task{
		ID:        "done",
		ContextID: "ctx-1",
		Kind:      a2a.KindTask,
		Status:    a2a.TaskStatus{State: a2a.TaskStateFailed},
	}); err != nil {
		t.Fatal(err)
	}
	h := newTestHandler(t, completing("x"), store)

	if _, err := h.OnCancelTask(ctx, &a2a.TaskIDParams{ID: "missing"}); rpcCode(err) != a2a.TaskNotFoundErrorCode {
		t.Errorf("OnCancelTask(missing) error = %v, want task not found", err)
	}
	if _, err := h.OnCancelTask(ctx, &a2a.TaskIDParams{ID: "done"}); rpcCode(err) != a2a.TaskNotCancelableErrorCode {
		t.Errorf("OnCancelTask(done) error = %v, want not cancelable", err)
	}
}

func TestCleanupProducer(t *testing.T) {
	tests := map[string]struct {
		finished  bool
		cancelled bool
	}{
		"finished":                    {finished: true},
		"finished, cleanup cancelled": {finished: true, cancelled: true},
		"running, cleanup cancelled":  {cancelled: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			qm := newCountingQueueManager()
			h := newTestHandler(t, completing("x"), task.NewInMemoryTaskStore(), WithQueueManager(qm))

			done := make(chan struct{})
			if tt.finished {
				close(done)
			}
			_, cancelProducer := context.WithCancel(context.Background())
			defer cancelProducer()
			h.runningAgents["task-1"] = &producer{cancel: cancelProducer, done: done}
			qm.CreateOrTap("task-1")

			ctx, cancel := context.WithCancel(t.Context())
			if tt.cancelled {
				cancel()
			}
			defer cancel()

			if err := h.cleanupProducer(ctx, done, "task-1"); err != nil {
				t.Errorf("cleanupProducer() error = %v, want nil", err)
			}
			if n := h.RunningTasks(); n != 0 {
				t.Errorf("RunningTasks() = %d, want 0", n)
			}
			if n := qm.closeCount("task-1"); n != 1 {
				t.Errorf("queue Close calls = %d, want 1", n)
			}
			if q := qm.Get("task-1"); q != nil {
				t.Errorf("queue still registered: %v", q)
			}
		})
	}
}

// failingQueueManager fails every Close after releasing the queue.
type failingQueueManager struct {
	*event.InMemoryQueueManager
}

var errQueueClose = errors.New("queue close failed")

func (m failingQueueManager) Close(taskID string) error {
	_ = m.InMemoryQueueManager.Close(taskID)
	return errQueueClose
}

func TestCleanupProducer_ReleaseError(t *testing.T) {
	for _, cancelled := range []bool{false, true} {
		name := "finished"
		if cancelled {
			name = "cleanup cancelled"
		}
		t.Run(name, func(t *testing.T) {
			qm := failingQueueManager{event.NewInMemoryQueueManager(event.DefaultMaxQueueSize)}
			h := newTestHandler(t, completing("x"), task.NewInMemoryTaskStore(), WithQueueManager(qm))

			done := make(chan struct{})
			if !cancelled {
				close(done)
			}
			h.runningAgents["task-1"] = &producer{cancel: func() {}, done: done}
			qm.CreateOrTap("task-1")

			ctx, cancel := context.WithCancel(t.Context())
			if cancelled {
				cancel()
			}
			defer cancel()

			if err := h.cleanupProducer(ctx, done, "task-1"); !errors.Is(err, errQueueClose) {
				t.Errorf("cleanupProducer() error = %v, want %v", err, errQueueClose)
			}
			if n := h.RunningTasks(); n != 0 {
				t.Errorf("RunningTasks() = %d, want 0", n)
			}
		})
	}
}

func TestReleaseProducer_NoQueue(t *testing.T) {
	h := newTestHandler(t, completing("x"), task.NewInMemoryTaskStore())
	if err := h.releaseProducer("never-started"); err != nil {
		t.Errorf("releaseProducer() error = %v, want nil", err)
	}
}

func TestDetachedQueue(t *testing.T) {
	q := event.NewEventQueue(4)
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	ev := event.NewTaskStatusUpdateEvent("t", "c", a2a.TaskStateWorking, nil, false)
	if err := (detachedQueue{q}).EnqueueEvent(t.Context(), ev); err != nil {
		t.Errorf("EnqueueEvent() on closed queue error = %v, want nil", err)
	}
}
