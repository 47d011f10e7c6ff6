// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"sync"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/auth"
	"github.com/go-a2a/kagent-a2a/internal/logger"
	"github.com/go-a2a/kagent-a2a/internal/metrics"
	"github.com/go-a2a/kagent-a2a/server"
	"github.com/go-a2a/kagent-a2a/server/agent_execution"
	"github.com/go-a2a/kagent-a2a/server/event"
	"github.com/go-a2a/kagent-a2a/server/task"
)

// QueueFactory returns the downstream queue a resumed attempt publishes to.
type QueueFactory func(taskID string) event.Queue

// Launcher starts an execution attempt for a resumed task and returns once
// the attempt is scheduled.
type Launcher func(ctx context.Context, reqCtx *agent_execution.RequestContext) error

// ResumeService re-runs tasks that a previous process left in the working
// state. Recovery is best-effort: a resumed task re-enters at working and the
// agent decides whether to replay or continue.
type ResumeService struct {
	store        task.TaskStore
	executor     agent_execution.AgentExecutor
	queueFactory QueueFactory
	launcher     Launcher
	logger       logger.Logger
	metrics      *metrics.Metrics

	wg sync.WaitGroup
}

// ResumeOption configures a ResumeService.
type ResumeOption func(*ResumeService)

// WithQueueFactory sets the downstream queue of resumed attempts. Defaults to
// event.Discard. It is not used when a Launcher is set.
func WithQueueFactory(f QueueFactory) ResumeOption {
	return func(s *ResumeService) { s.queueFactory = f }
}

// WithLauncher hands resumed attempts to l instead of running them on the
// service's own goroutines. Pass the request handler's Resume so that resumed
// tasks are registered with it like any other running task.
func WithLauncher(l Launcher) ResumeOption {
	return func(s *ResumeService) { s.launcher = l }
}

// WithResumeLogger sets the logger. Defaults to the logger carried by the context.
func WithResumeLogger(l logger.Logger) ResumeOption {
	return func(s *ResumeService) { s.logger = l }
}

// WithResumeMetrics counts resumed tasks and persistence failures on m.
func WithResumeMetrics(m *metrics.Metrics) ResumeOption {
	return func(s *ResumeService) { s.metrics = m }
}

// NewResumeService returns a ResumeService.
func NewResumeService(store task.TaskStore, executor agent_execution.AgentExecutor, opts ...ResumeOption) *ResumeService {
	s := &ResumeService{
		store:    store,
		executor: executor,
		queueFactory: func(string) event.Queue {
			return event.Discard
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Resume schedules an execution attempt for every working task in the store
// and returns the number of attempts scheduled. Attempts run concurrently
// with ctx; use Wait to wait for them.
//
// Resume is a no-op when the store cannot list tasks by state. A task
// without a user message to replay is skipped.
func (s *ResumeService) Resume(ctx context.Context) (int, error) {
	log := s.logger
	if log == nil {
		log = logger.FromContext(ctx)
	}

	lister, ok := s.store.(task.StateLister)
	if !ok {
		log.Info("task store cannot list tasks by state, skipping resumption")
		return 0, nil
	}

	tasks, err := lister.ListByState(ctx, a2a.TaskStateWorking)
	if err != nil {
		return 0, err
	}

	var scheduled int
	for _, t := range tasks {
		tlog := log.With("task_id", t.ID, "context_id", t.ContextID)

		message := t.LastUserMessage()
		if message == nil {
			tlog.Warn("skipping resumption of task without a user message")
			continue
		}

		userID := t.UserID()
		if userID == "" {
			userID = a2a.UnknownUserID
		}
		user := auth.AuthenticatedUser{Name: userID}
		reqCtx := agent_execution.NewRequestContext(
			&a2a.MessageSendParams{Message: message},
			t.ID, t.ContextID, t, server.NewServerCallContext(user),
		)
		userCtx := auth.WithUser(ctx, user)

		if s.launcher != nil {
			if err := s.launcher(userCtx, reqCtx); err != nil {
				tlog.Error("failed to resume task", "error", err)
				continue
			}
			tlog.Info("resumed interrupted task", "user_id", userID)
			s.metrics.IncResumedTasks()
			scheduled++
			continue
		}

		queue := task.NewPersistingEventQueue(ctx, s.store, s.queueFactory(t.ID), t.ID, t.ContextID,
			task.WithLogger(tlog),
			task.WithMetrics(s.metrics),
		)

		tlog.Info("resuming interrupted task", "user_id", userID)
		s.metrics.IncResumedTasks()
		scheduled++

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					tlog.Error("resumed execution panicked", "panic", r)
				}
			}()
			if err := s.executor.Execute(userCtx, reqCtx, queue); err != nil {
				tlog.Error("resumed execution failed", "error", err)
			}
		}()
	}
	return scheduled, nil
}

// Wait blocks until every attempt Resume ran on its own goroutines has
// returned. Attempts handed to a Launcher are not waited for.
func (s *ResumeService) Wait() {
	s.wg.Wait()
}

// ResumeTasks schedules an execution attempt for every working task in store.
// It does not wait for the attempts.
func ResumeTasks(ctx context.Context, store task.TaskStore, executor agent_execution.AgentExecutor, opts ...ResumeOption) (int, error) {
	return NewResumeService(store, executor, opts...).Resume(ctx)
}
