// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler provides request handlers for the A2A protocol server.
// The handler runs each execution attempt as a background producer that
// publishes into a per-task event queue, and consumes that queue on behalf
// of the caller.
package handler

import (
	"context"
	"iter"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/server/event"
)

// RequestHandler defines the interface for handling A2A protocol requests.
// It abstracts the request processing logic from transport concerns.
//
// Errors returned to callers are *a2a.JSONRPCError values where the cause is
// a protocol error.
type RequestHandler interface {
	// OnGetTask returns the task named by params.
	OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)

	// OnCancelTask cancels the task named by params and returns its final state.
	OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)

	// OnMessageSend starts an execution attempt for params and returns the
	// task once the attempt has ended, or after its first event when the
	// caller asked for a non-blocking send.
	OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error)

	// OnMessageSendStream starts an execution attempt for params and yields
	// its update events until the final one.
	OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams) iter.Seq2[event.Event, error]
}
