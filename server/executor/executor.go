// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package executor runs agent invocations against A2A tasks.
//
// An Executor drives one execution attempt: it resolves a Runner, converts
// the runner's native events into task update events, handles the
// human-in-the-loop confirmation round trip and guarantees that every attempt
// ends with exactly one final status update. ResumeService re-runs tasks a
// previous process left in the working state.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/auth"
	"github.com/go-a2a/kagent-a2a/internal/logger"
	"github.com/go-a2a/kagent-a2a/internal/metrics"
	"github.com/go-a2a/kagent-a2a/server"
	"github.com/go-a2a/kagent-a2a/server/agent_execution"
	"github.com/go-a2a/kagent-a2a/server/event"
	"github.com/go-a2a/kagent-a2a/server/task"
)

// Executor is an agent_execution.AgentExecutor backed by a Runner with native
// message type M and native event type E.
type Executor[M, E any] struct {
	runnerFactory    RunnerFactory[M, E]
	requestConverter RequestConverter[M]
	eventConverter   EventConverter[E]
	opts             options
}

var _ agent_execution.AgentExecutor = (*Executor[any, any])(nil)

// New returns an Executor.
func New[M, E any](runnerFactory RunnerFactory[M, E], requestConverter RequestConverter[M], eventConverter EventConverter[E], opts ...Option) (*Executor[M, E], error) {
	if runnerFactory == nil {
		return nil, errors.New("runner factory cannot be nil")
	}
	if requestConverter == nil {
		return nil, errors.New("request converter cannot be nil")
	}
	if eventConverter == nil {
		return nil, errors.New("event converter cannot be nil")
	}

	o := options{streaming: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &Executor[M, E]{
		runnerFactory:    runnerFactory,
		requestConverter: requestConverter,
		eventConverter:   eventConverter,
		opts:             o,
	}, nil
}

func (e *Executor[M, E]) logger(ctx context.Context) logger.Logger {
	if e.opts.logger != nil {
		return e.opts.logger
	}
	return logger.FromContext(ctx)
}

// Execute runs one execution attempt for the task of reqCtx.
//
// A new task first gets a submitted update, then a working update once the
// runner is resolved. A message answering a pending confirmation skips
// submitted and is handed to the runner as a function response. The attempt
// ends with a single final update: input-required as soon as the runner asks
// for input, failed when the runner could not be resolved or ended with an
// error, and completed otherwise.
//
// Execute returns nil once the final update is published. It returns the
// context error when ctx is done first, and the queue error when an update
// cannot be published.
func (e *Executor[M, E]) Execute(ctx context.Context, reqCtx *agent_execution.RequestContext, queue event.Queue) (err error) {
	if reqCtx == nil || reqCtx.Message() == nil {
		return &InvalidRequestError{Reason: "message cannot be nil"}
	}
	updater, err := task.NewUpdater(queue, reqCtx.TaskID(), reqCtx.ContextID())
	if err != nil {
		return &InvalidRequestError{Reason: err.Error()}
	}

	log := e.logger(ctx).With("task_id", reqCtx.TaskID(), "context_id", reqCtx.ContextID())
	start := time.Now()
	outcome := metrics.OutcomeFailed
	done := e.opts.metrics.TrackInflight()
	defer func() {
		done()
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCanceled
		}
		e.opts.metrics.ObserveExecution(outcome, time.Since(start))
	}()

	// continuation is recorded with the working update so that the task
	// history ends with the message the runner actually received.
	var continuation *a2a.Message
	current := reqCtx.CurrentTask()
	if message, req, ok := confirmationResume(current, reqCtx.Message()); ok {
		log.Info("resuming task from confirmation decision", "function_call_id", req.FunctionCallID)
		continuation = message
		reqCtx = agent_execution.NewRequestContext(
			&a2a.MessageSendParams{Message: message, Metadata: reqCtx.Metadata()},
			reqCtx.TaskID(), reqCtx.ContextID(), current, reqCtx.CallContext(),
		)
	} else if current == nil {
		if err := updater.Submit(ctx, reqCtx.Message()); err != nil {
			return publishError(ctx, err)
		}
	}

	runner, err := e.runnerFactory(ctx)
	if err != nil {
		rerr := &RunnerResolutionError{Err: err}
		log.Error("runner resolution failed", "error", rerr)
		return publishError(ctx, updater.Failed(ctx, rerr.Error()))
	}
	defer func() {
		cerr := runner.Close(context.WithoutCancel(ctx))
		switch {
		case cerr == nil:
		case IsBenignCloseError(cerr):
			log.Debug("ignoring runner close error after cancellation", "error", cerr)
		default:
			log.Error("failed to close runner", "error", cerr)
			err = errors.Join(err, fmt.Errorf("failed to close runner: %w", cerr))
		}
	}()

	req, err := e.requestConverter(reqCtx, e.runConfig(reqCtx))
	if err != nil {
		log.Error("request conversion failed", "error", err)
		return publishError(ctx, updater.Failed(ctx, fmt.Sprintf("failed to convert request: %v", err)))
	}

	if err := updater.StartWork(ctx, continuation); err != nil {
		return publishError(ctx, err)
	}

	runCtx := auth.WithUser(ctx, auth.AuthenticatedUser{Name: req.UserID})
	cc := NewConvertContext(reqCtx.TaskID(), reqCtx.ContextID(), e.opts.appName)
	var (
		agg           resultAggregator
		runErr        error
		inputRequired bool
	)
	for ev, rerr := range runner.Run(runCtx, req) {
		if rerr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			runErr = rerr
			break
		}

		updates, cerr := e.eventConverter.Convert(ev, cc)
		if cerr != nil {
			log.Warn("dropping runner event", "error", &ConversionError{Err: cerr})
			continue
		}
		for _, u := range updates {
			if st, ok := u.(*event.TaskStatusUpdateEvent); ok && st.Status.State == a2a.TaskStateInputRequired {
				st.Final = true
				inputRequired = true
				if err := updater.Publish(ctx, st); err != nil {
					return publishError(ctx, err)
				}
				break
			}
			agg.process(u)
			if err := updater.Publish(ctx, u); err != nil {
				return publishError(ctx, err)
			}
		}
		if inputRequired {
			break
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	switch {
	case inputRequired:
		outcome = metrics.OutcomeInputRequired
		return nil
	case runErr != nil:
		log.Error("runner failed", "error", runErr)
		return publishError(ctx, updater.Failed(ctx, runErr.Error()))
	case agg.failed:
		return publishError(ctx, updater.UpdateStatus(ctx, a2a.TaskStateFailed, agg.message, true))
	}

	if agg.message != nil && len(agg.message.Parts) > 0 {
		artifact := &a2a.Artifact{ArtifactID: uuid.NewString(), Parts: agg.message.Parts}
		if err := updater.AddArtifact(ctx, artifact, true); err != nil {
			return publishError(ctx, err)
		}
	}
	if err := updater.Complete(ctx, agg.message); err != nil {
		return publishError(ctx, err)
	}
	outcome = metrics.OutcomeCompleted
	return nil
}

// Cancel publishes a final canceled status for the task of reqCtx.
func (e *Executor[M, E]) Cancel(ctx context.Context, reqCtx *agent_execution.RequestContext, queue event.Queue) error {
	if reqCtx == nil {
		return &InvalidRequestError{Reason: "request context cannot be nil"}
	}
	updater, err := task.NewUpdater(queue, reqCtx.TaskID(), reqCtx.ContextID())
	if err != nil {
		return &InvalidRequestError{Reason: err.Error()}
	}
	return updater.Cancel(ctx, updater.NewAgentMessage("Task was canceled."))
}

// runConfig returns the run configuration for reqCtx. The transport may
// record the caller's streaming preference in the call context.
func (e *Executor[M, E]) runConfig(reqCtx *agent_execution.RequestContext) RunConfig {
	cfg := RunConfig{Streaming: e.opts.streaming}
	if v, ok := reqCtx.CallContext().GetState(server.StateKeyStreaming); ok {
		if streaming, ok := v.(bool); ok {
			cfg.Streaming = streaming
		}
	}
	return cfg
}

// publishError prefers the context error over a publish failure it caused.
func publishError(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
