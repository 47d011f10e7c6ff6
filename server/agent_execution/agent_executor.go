// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"

	"github.com/go-a2a/kagent-a2a/server/event"
)

// AgentExecutor defines the interface for executing agent logic within the A2A server.
type AgentExecutor interface {
	// Execute runs one execution attempt for the task described by
	// requestContext, publishing TaskStatusUpdateEvent and
	// TaskArtifactUpdateEvent values to queue. An attempt publishes at most
	// one final status update.
	Execute(ctx context.Context, requestContext *RequestContext, queue event.Queue) error

	// Cancel requests the agent to cancel an ongoing task. It publishes a
	// final canceled status update to queue.
	Cancel(ctx context.Context, requestContext *RequestContext, queue event.Queue) error
}
