// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"fmt"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/server"
	"github.com/go-a2a/kagent-a2a/server/agent_execution"
	"github.com/go-a2a/kagent-a2a/server/event"
	"github.com/go-a2a/kagent-a2a/server/executor"
	"github.com/go-a2a/kagent-a2a/server/task"
)

// run is an execution attempt started by the handler.
type run struct {
	taskID string
	queue  *event.EventQueue
	pq     *task.PersistingEventQueue
	done   <-chan struct{}
}

// detachedQueue forwards to an EventQueue and ignores its closure, so a
// producer keeps persisting after its consumer is gone.
type detachedQueue struct {
	q *event.EventQueue
}

func (d detachedQueue) EnqueueEvent(ctx context.Context, ev event.Event) error {
	if err := d.q.EnqueueEvent(ctx, ev); err != nil && !errors.Is(err, event.ErrQueueClosed) {
		return err
	}
	return nil
}

// startProducer validates params and launches an execution attempt for the
// message.
func (h *DefaultRequestHandler) startProducer(ctx context.Context, params *a2a.MessageSendParams, streaming bool) (*run, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError().WithData("params cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, a2a.NewInvalidParamsError().WithData(err.Error())
	}
	msg := params.Message

	current, err := task.Load(ctx, h.store, msg.TaskID)
	if err != nil {
		return nil, a2a.NewInternalError().WithData(err.Error())
	}
	if msg.TaskID != "" && current == nil {
		return nil, a2a.NewTaskNotFoundError().WithData(msg.TaskID)
	}
	if current != nil {
		if current.Status.State.IsTerminal() {
			return nil, a2a.NewInvalidParamsError().WithData(fmt.Sprintf("task %s is in terminal state %s", current.ID, current.Status.State))
		}
		if msg.ContextID != "" && msg.ContextID != current.ContextID {
			return nil, a2a.NewInvalidParamsError().WithData("message context ID does not match the task")
		}
	}

	callCtx := server.CallContextFromContext(ctx)
	callCtx.SetState(server.StateKeyStreaming, streaming)
	reqCtx, err := h.contextBuilder.Build(ctx, params, "", "", current, callCtx)
	if err != nil {
		return nil, a2a.NewInvalidParamsError().WithData(err.Error())
	}

	return h.launch(ctx, reqCtx,
		task.WithTaskMetadata(map[string]any{a2a.MetadataKeyUserID: reqCtx.UserID()}),
		task.WithUserMessage(msg),
	)
}

// Resume starts an execution attempt for a stored task and returns once it
// is registered. The attempt is tracked like any other producer: it can be
// canceled, and a new message for the task is rejected while it runs.
func (h *DefaultRequestHandler) Resume(ctx context.Context, reqCtx *agent_execution.RequestContext) error {
	if reqCtx == nil {
		return a2a.NewInvalidParamsError().WithData("request context cannot be nil")
	}
	r, err := h.launch(ctx, reqCtx)
	if err != nil {
		return err
	}
	go h.drain(r)
	return nil
}

// launch registers the producer of reqCtx's task and starts the executor in
// the background. The producer is detached from ctx cancellation; it stops
// when the attempt ends or the task is canceled.
func (h *DefaultRequestHandler) launch(ctx context.Context, reqCtx *agent_execution.RequestContext, opts ...task.PersistingOption) (*run, error) {
	taskID, contextID := reqCtx.TaskID(), reqCtx.ContextID()

	h.mu.Lock()
	if _, running := h.runningAgents[taskID]; running {
		h.mu.Unlock()
		return nil, a2a.NewInvalidRequestError().WithData(fmt.Sprintf("task %s is already running", taskID))
	}
	queue := h.queueManager.CreateOrTap(taskID)
	producerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	p := &producer{cancel: cancel, done: done}
	h.runningAgents[taskID] = p
	h.mu.Unlock()

	log := h.log(ctx).With("task_id", taskID, "context_id", contextID)
	opts = append([]task.PersistingOption{task.WithLogger(log), task.WithMetrics(h.metrics)}, opts...)
	pq := task.NewPersistingEventQueue(ctx, h.store, detachedQueue{queue}, taskID, contextID, opts...)
	p.pq = pq

	go func() {
		defer close(done)
		defer cancel()
		defer queue.Close()

		err := h.executor.Execute(producerCtx, reqCtx, pq)
		if p.cancelRequested.Load() {
			// The canceled status goes out before the queue closes so that
			// consumers of this attempt see it.
			p.cancelHandled = true
			p.cancelErr = h.cancelAttempt(context.WithoutCancel(ctx), reqCtx, pq)
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("execution failed", "error", err)
		}
	}()

	return &run{taskID: taskID, queue: queue, pq: pq, done: done}, nil
}

// cancelAttempt publishes the canceled status of an attempt stopped by
// OnCancelTask, unless the attempt reached a terminal state first.
func (h *DefaultRequestHandler) cancelAttempt(ctx context.Context, reqCtx *agent_execution.RequestContext, pq *task.PersistingEventQueue) error {
	if t := pq.Task(); t != nil && t.Status.State.IsTerminal() {
		return fmt.Errorf("task %s is already %s", t.ID, t.Status.State)
	}
	return h.executor.Cancel(ctx, reqCtx, pq)
}

// drain consumes the remaining events of r after its caller has gone, then
// cleans up.
func (h *DefaultRequestHandler) drain(r *run) {
	ctx := context.Background()
	for {
		if _, err := r.queue.DequeueEvent(ctx, false); err != nil {
			break
		}
	}
	if err := h.cleanupProducer(ctx, r.done, r.taskID); err != nil {
		h.log(ctx).Error("failed to clean up producer", "task_id", r.taskID, "error", err)
	}
}

// cleanupProducer waits for the producer of taskID to finish and releases
// its queue and registry entry.
//
// If ctx is done first, the resources are released anyway and the
// cancellation is absorbed: the caller only sees an error raised while
// releasing them.
func (h *DefaultRequestHandler) cleanupProducer(ctx context.Context, done <-chan struct{}, taskID string) error {
	select {
	case <-done:
		return h.releaseProducer(taskID)
	case <-ctx.Done():
		h.log(ctx).Debug("producer cleanup interrupted, releasing resources",
			"task_id", taskID,
			"error", fmt.Errorf("%w: %w", executor.ErrCleanupCancelled, ctx.Err()),
		)
		return h.releaseProducer(taskID)
	}
}

// releaseProducer closes the task's queue and forgets its producer.
func (h *DefaultRequestHandler) releaseProducer(taskID string) error {
	h.mu.Lock()
	delete(h.runningAgents, taskID)
	h.mu.Unlock()

	err := h.queueManager.Close(taskID)
	if errors.Is(err, &event.NoTaskQueueError{}) {
		return nil
	}
	return err
}

// RunningTasks returns the number of tasks with an in-flight producer.
func (h *DefaultRequestHandler) RunningTasks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runningAgents)
}
