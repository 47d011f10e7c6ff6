// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/internal/logger"
	"github.com/go-a2a/kagent-a2a/internal/metrics"
	"github.com/go-a2a/kagent-a2a/server"
	"github.com/go-a2a/kagent-a2a/server/agent_execution"
	"github.com/go-a2a/kagent-a2a/server/event"
	"github.com/go-a2a/kagent-a2a/server/task"
)

// DefaultRequestHandler is the default RequestHandler. It coordinates the
// task store, the per-task event queues and the agent executor.
type DefaultRequestHandler struct {
	executor       agent_execution.AgentExecutor
	store          task.TaskStore
	queueManager   event.QueueManager
	contextBuilder agent_execution.RequestContextBuilder
	logger         logger.Logger
	metrics        *metrics.Metrics

	// runningAgents tracks the in-flight producer of each task.
	runningAgents map[string]*producer
	mu            sync.Mutex
}

var _ RequestHandler = (*DefaultRequestHandler)(nil)

// producer is one execution attempt running in the background.
type producer struct {
	cancel context.CancelFunc
	done   <-chan struct{}
	pq     *task.PersistingEventQueue

	// cancelRequested is set by OnCancelTask before it cancels the attempt.
	cancelRequested atomic.Bool
	// Written by the producer goroutine before done is closed.
	cancelHandled bool
	cancelErr     error
}

// Option configures a DefaultRequestHandler.
type Option func(*DefaultRequestHandler)

// WithQueueManager sets the queue manager. Defaults to an in-memory manager.
func WithQueueManager(qm event.QueueManager) Option {
	return func(h *DefaultRequestHandler) { h.queueManager = qm }
}

// WithRequestContextBuilder sets the request context builder.
func WithRequestContextBuilder(b agent_execution.RequestContextBuilder) Option {
	return func(h *DefaultRequestHandler) { h.contextBuilder = b }
}

// WithLogger sets the logger. Defaults to the logger carried by the context.
func WithLogger(l logger.Logger) Option {
	return func(h *DefaultRequestHandler) { h.logger = l }
}

// WithMetrics records persistence and event metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *DefaultRequestHandler) { h.metrics = m }
}

// NewDefaultRequestHandler creates a new DefaultRequestHandler.
func NewDefaultRequestHandler(executor agent_execution.AgentExecutor, store task.TaskStore, opts ...Option) (*DefaultRequestHandler, error) {
	if executor == nil {
		return nil, errors.New("agent executor cannot be nil")
	}
	if store == nil {
		return nil, errors.New("task store cannot be nil")
	}

	h := &DefaultRequestHandler{
		executor:      executor,
		store:         store,
		runningAgents: make(map[string]*producer),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.queueManager == nil {
		h.queueManager = event.NewInMemoryQueueManager(event.DefaultMaxQueueSize)
	}
	if h.contextBuilder == nil {
		h.contextBuilder = agent_execution.NewSimpleRequestContextBuilder(store, true)
	}
	return h, nil
}

func (h *DefaultRequestHandler) log(ctx context.Context) logger.Logger {
	if h.logger != nil {
		return h.logger
	}
	return logger.FromContext(ctx)
}

// OnGetTask returns the stored task, trimmed to the requested history length.
func (h *DefaultRequestHandler) OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError().WithData("params cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, a2a.NewInvalidParamsError().WithData(err.Error())
	}

	t, err := h.loadTask(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if params.HistoryLength != nil {
		t.TrimHistory(*params.HistoryLength)
	}
	return t, nil
}

// OnCancelTask stops the running producer of the task, if any, and records a
// final canceled status. A running producer publishes that status itself, so
// the consumers of its attempt receive it.
func (h *DefaultRequestHandler) OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError().WithData("params cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, a2a.NewInvalidParamsError().WithData(err.Error())
	}

	t, err := h.loadTask(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if t.Status.State.IsTerminal() {
		return nil, a2a.NewTaskNotCancelableError().WithData(fmt.Sprintf("task %s is %s", t.ID, t.Status.State))
	}

	h.mu.Lock()
	p := h.runningAgents[t.ID]
	h.mu.Unlock()
	if p != nil {
		p.cancelRequested.Store(true)
		p.cancel()
		select {
		case <-p.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if p.cancelHandled {
			if p.cancelErr != nil {
				return nil, a2a.NewTaskNotCancelableError().WithData(p.cancelErr.Error())
			}
			return p.pq.Task(), nil
		}

		// The attempt ended on its own before it saw the cancellation.
		if t, err = h.loadTask(ctx, t.ID); err != nil {
			return nil, err
		}
		if t.Status.State.IsTerminal() {
			return nil, a2a.NewTaskNotCancelableError().WithData(fmt.Sprintf("task %s is %s", t.ID, t.Status.State))
		}
	}

	var downstream event.Queue = event.Discard
	if q := h.queueManager.Get(t.ID); q != nil {
		downstream = detachedQueue{q}
	}
	pq := task.NewPersistingEventQueue(ctx, h.store, downstream, t.ID, t.ContextID,
		task.WithLogger(h.log(ctx).With("task_id", t.ID)),
		task.WithMetrics(h.metrics),
	)
	reqCtx := agent_execution.NewRequestContext(nil, t.ID, t.ContextID, t, server.CallContextFromContext(ctx))
	if err := h.executor.Cancel(ctx, reqCtx, pq); err != nil {
		return nil, a2a.NewTaskNotCancelableError().WithData(err.Error())
	}
	return pq.Task(), nil
}

// OnMessageSend starts an execution attempt and waits for its final event,
// unless the request asks for a non-blocking send.
func (h *DefaultRequestHandler) OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error) {
	run, err := h.startProducer(ctx, params, false)
	if err != nil {
		return nil, err
	}

	blocking := params.Configuration == nil || params.Configuration.Blocking
	for {
		ev, err := run.queue.DequeueEvent(ctx, false)
		if err != nil {
			if errors.Is(err, event.ErrQueueClosed) {
				break
			}
			// The caller went away; the attempt keeps running.
			go h.drain(run)
			return nil, err
		}
		if event.IsFinalEvent(ev) {
			break
		}
		if !blocking {
			go h.drain(run)
			return run.pq.Task(), nil
		}
	}

	if err := h.cleanupProducer(ctx, run.done, run.taskID); err != nil {
		h.log(ctx).Error("failed to clean up producer", "task_id", run.taskID, "error", err)
	}
	return run.pq.Task(), nil
}

// OnMessageSendStream starts an execution attempt and yields its events. If
// the consumer stops early, the attempt keeps running in the background.
func (h *DefaultRequestHandler) OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams) iter.Seq2[event.Event, error] {
	return func(yield func(event.Event, error) bool) {
		run, err := h.startProducer(ctx, params, true)
		if err != nil {
			yield(nil, err)
			return
		}

		for {
			ev, err := run.queue.DequeueEvent(ctx, false)
			if err != nil {
				if !errors.Is(err, event.ErrQueueClosed) {
					go h.drain(run)
					yield(nil, err)
					return
				}
				break
			}
			if !yield(ev, nil) {
				go h.drain(run)
				return
			}
			if event.IsFinalEvent(ev) {
				break
			}
		}

		if err := h.cleanupProducer(ctx, run.done, run.taskID); err != nil {
			h.log(ctx).Error("failed to clean up producer", "task_id", run.taskID, "error", err)
		}
	}
}

// loadTask returns the stored task or a task-not-found protocol error.
func (h *DefaultRequestHandler) loadTask(ctx context.Context, taskID string) (*a2a.Task, error) {
	t, err := task.Load(ctx, h.store, taskID)
	if err != nil {
		return nil, a2a.NewInternalError().WithData(err.Error())
	}
	if t == nil {
		return nil, a2a.NewTaskNotFoundError().WithData(taskID)
	}
	return t, nil
}
