// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/server"
)

// anonymousUserPrefix prefixes the context ID to form the user ID of
// unauthenticated callers.
const anonymousUserPrefix = "A2A_USER_"

// RequestContext holds information about the current request being processed by the server.
//
// This includes the incoming message, task and context identifiers, and related tasks.
// RequestContext is safe for concurrent use.
type RequestContext struct {
	params       *a2a.MessageSendParams
	taskID       string
	contextID    string
	currentTask  *a2a.Task
	relatedTasks []*a2a.Task
	callContext  *server.ServerCallContext
	mu           sync.RWMutex
}

// NewRequestContext creates a new RequestContext with the provided parameters.
// A nil callContext is replaced by an unauthenticated one.
func NewRequestContext(params *a2a.MessageSendParams, taskID, contextID string, currentTask *a2a.Task, callContext *server.ServerCallContext) *RequestContext {
	if callContext == nil {
		callContext = server.NewServerCallContext(nil)
	}
	return &RequestContext{
		params:      params,
		taskID:      taskID,
		contextID:   contextID,
		currentTask: currentTask,
		callContext: callContext,
	}
}

// Params returns the incoming MessageSendParams request payload.
func (rc *RequestContext) Params() *a2a.MessageSendParams {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.params
}

// Message returns the inbound message, or nil when the request has none.
func (rc *RequestContext) Message() *a2a.Message {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if rc.params == nil {
		return nil
	}
	return rc.params.Message
}

// Metadata returns the request metadata.
func (rc *RequestContext) Metadata() map[string]any {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if rc.params == nil {
		return nil
	}
	return rc.params.Metadata
}

// TaskID returns the ID of the task.
func (rc *RequestContext) TaskID() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.taskID
}

// ContextID returns the ID of the conversation context.
func (rc *RequestContext) ContextID() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.contextID
}

// CurrentTask returns the stored task this request continues, or nil for a new task.
func (rc *RequestContext) CurrentTask() *a2a.Task {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.currentTask
}

// RelatedTasks returns a copy of the list of other tasks related to the current request.
func (rc *RequestContext) RelatedTasks() []*a2a.Task {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	tasks := make([]*a2a.Task, len(rc.relatedTasks))
	copy(tasks, rc.relatedTasks)
	return tasks
}

// CallContext returns the server call context associated with this request.
func (rc *RequestContext) CallContext() *server.ServerCallContext {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.callContext
}

// UserID returns the name of the authenticated caller. Anonymous callers are
// identified by the conversation context.
func (rc *RequestContext) UserID() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if u := rc.callContext.User(); u.IsAuthenticated() {
		return u.UserName()
	}
	return anonymousUserPrefix + rc.contextID
}

// GetUserInput joins the text parts of the inbound message with delimiter,
// which defaults to a newline.
func (rc *RequestContext) GetUserInput(delimiter string) string {
	if delimiter == "" {
		delimiter = "\n"
	}
	return a2a.GetMessageText(rc.Message(), delimiter)
}

// AttachRelatedTask attaches a related task to the context.
func (rc *RequestContext) AttachRelatedTask(task *a2a.Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.relatedTasks = append(rc.relatedTasks, task)
	return nil
}

// checkOrGenerateIDs fills in missing task and context IDs, preferring those
// of the current task, then those of the message.
func (rc *RequestContext) checkOrGenerateIDs() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.taskID == "" && rc.currentTask != nil {
		rc.taskID = rc.currentTask.ID
	}
	if rc.contextID == "" && rc.currentTask != nil {
		rc.contextID = rc.currentTask.ContextID
	}
	if rc.params != nil && rc.params.Message != nil {
		if rc.taskID == "" {
			rc.taskID = rc.params.Message.TaskID
		}
		if rc.contextID == "" {
			rc.contextID = rc.params.Message.ContextID
		}
	}
	if rc.taskID == "" {
		rc.taskID = uuid.NewString()
	}
	if rc.contextID == "" {
		rc.contextID = uuid.NewString()
	}
}

// Validate ensures the RequestContext is in a valid state.
func (rc *RequestContext) Validate() error {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if rc.params == nil {
		return errors.New("request context params cannot be nil")
	}
	if err := rc.params.Validate(); err != nil {
		return fmt.Errorf("request context params are invalid: %w", err)
	}
	if rc.taskID == "" {
		return errors.New("request context task ID cannot be empty")
	}
	if rc.contextID == "" {
		return errors.New("request context context ID cannot be empty")
	}
	if rc.currentTask != nil {
		if err := rc.currentTask.Validate(); err != nil {
			return fmt.Errorf("request context current task is invalid: %w", err)
		}
	}
	return nil
}

// String returns a string representation of the RequestContext for debugging.
func (rc *RequestContext) String() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	return fmt.Sprintf("RequestContext{taskID: %s, contextID: %s, relatedTasks: %d}",
		rc.taskID, rc.contextID, len(rc.relatedTasks))
}
