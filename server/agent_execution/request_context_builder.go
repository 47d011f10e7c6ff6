// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"
	"errors"
	"fmt"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/server"
	"github.com/go-a2a/kagent-a2a/server/task"
)

// RequestContextBuilder builds the RequestContext supplied to the AgentExecutor.
type RequestContextBuilder interface {
	// Build creates a RequestContext for params. taskID and contextID may be
	// empty, in which case they are taken from currentTask or the message,
	// or generated.
	Build(ctx context.Context, params *a2a.MessageSendParams, taskID, contextID string, currentTask *a2a.Task, callContext *server.ServerCallContext) (*RequestContext, error)
}

// SimpleRequestContextBuilder is the default RequestContextBuilder. When
// configured with a store it attaches the tasks named by the message's
// reference task IDs as related tasks.
type SimpleRequestContextBuilder struct {
	store                task.TaskStore
	populateRelatedTasks bool
}

var _ RequestContextBuilder = (*SimpleRequestContextBuilder)(nil)

// NewSimpleRequestContextBuilder creates a new SimpleRequestContextBuilder.
// Related tasks are populated only when populateRelatedTasks is set and
// store is not nil.
func NewSimpleRequestContextBuilder(store task.TaskStore, populateRelatedTasks bool) *SimpleRequestContextBuilder {
	return &SimpleRequestContextBuilder{
		store:                store,
		populateRelatedTasks: populateRelatedTasks,
	}
}

// Build creates a RequestContext from the provided parameters.
func (b *SimpleRequestContextBuilder) Build(ctx context.Context, params *a2a.MessageSendParams, taskID, contextID string, currentTask *a2a.Task, callContext *server.ServerCallContext) (*RequestContext, error) {
	if params == nil {
		return nil, errors.New("message send params cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message send params: %w", err)
	}

	rc := NewRequestContext(params, taskID, contextID, currentTask, callContext)
	rc.checkOrGenerateIDs()

	if b.populateRelatedTasks && b.store != nil {
		for _, id := range params.Message.ReferenceTaskIDs {
			t, err := task.Load(ctx, b.store, id)
			if err != nil {
				return nil, fmt.Errorf("failed to load related task %s: %w", id, err)
			}
			if t == nil {
				continue
			}
			if err := rc.AttachRelatedTask(t); err != nil {
				return nil, fmt.Errorf("failed to attach related task %s: %w", id, err)
			}
		}
	}

	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("built request context is invalid: %w", err)
	}
	return rc, nil
}
