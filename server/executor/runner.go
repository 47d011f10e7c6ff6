// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"iter"

	"github.com/go-a2a/kagent-a2a/server/agent_execution"
)

// RunConfig configures one runner invocation.
type RunConfig struct {
	// Streaming requests incremental, partial events from the runner.
	Streaming bool
}

// RunRequest is the input of one runner invocation. M is the runner's native
// message type.
type RunRequest[M any] struct {
	UserID     string
	SessionID  string
	NewMessage M
	RunConfig  RunConfig
}

// Runner executes agent logic and yields framework-native events of type E.
type Runner[M, E any] interface {
	// Run returns the event sequence of one invocation. The sequence may
	// block indefinitely between events; it stops when ctx is done or when
	// the consumer stops ranging over it. A non-nil error ends the sequence.
	Run(ctx context.Context, req *RunRequest[M]) iter.Seq2[E, error]

	// Close releases the runner's resources.
	Close(ctx context.Context) error
}

// RunnerFactory resolves the Runner for one execution attempt.
type RunnerFactory[M, E any] func(ctx context.Context) (Runner[M, E], error)

// RequestConverter builds the RunRequest for an inbound request. It must not block.
type RequestConverter[M any] func(reqCtx *agent_execution.RequestContext, cfg RunConfig) (*RunRequest[M], error)
