// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server provides server-side abstractions for the A2A protocol.
package server

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/go-a2a/kagent-a2a/auth"
)

// StateKeyStreaming is the call state key under which the transport records
// whether the caller consumes incremental updates.
const StateKeyStreaming = "streaming"

// ServerCallContext represents the context for a server call in the A2A protocol.
// It contains the caller and any additional state gathered by the transport.
// It is safe for concurrent use.
type ServerCallContext struct {
	user  auth.User
	state map[string]any
	mu    sync.RWMutex
}

// NewServerCallContext creates a new ServerCallContext with the provided user.
// If user is nil, an UnauthenticatedUser will be used.
func NewServerCallContext(user auth.User) *ServerCallContext {
	return NewServerCallContextWithState(user, nil)
}

// NewServerCallContextWithState creates a new ServerCallContext with the provided
// user and a copy of state.
func NewServerCallContextWithState(user auth.User, state map[string]any) *ServerCallContext {
	if user == nil {
		user = auth.UnauthenticatedUser{}
	}
	scc := &ServerCallContext{
		user:  user,
		state: make(map[string]any, len(state)),
	}
	maps.Copy(scc.state, state)
	return scc
}

// CallContextFromContext builds a ServerCallContext from the identity stored
// in ctx by [auth.WithUser].
func CallContextFromContext(ctx context.Context) *ServerCallContext {
	return NewServerCallContext(auth.UserFromContext(ctx))
}

// User returns the user associated with this call context.
func (scc *ServerCallContext) User() auth.User {
	scc.mu.RLock()
	defer scc.mu.RUnlock()
	return scc.user
}

// State returns a copy of the current state map.
func (scc *ServerCallContext) State() map[string]any {
	scc.mu.RLock()
	defer scc.mu.RUnlock()
	return maps.Clone(scc.state)
}

// SetState sets a value in the context state.
func (scc *ServerCallContext) SetState(key string, value any) {
	scc.mu.Lock()
	defer scc.mu.Unlock()
	scc.state[key] = value
}

// GetState retrieves a value from the context state.
func (scc *ServerCallContext) GetState(key string) (any, bool) {
	scc.mu.RLock()
	defer scc.mu.RUnlock()
	value, ok := scc.state[key]
	return value, ok
}

// String returns a string representation of the ServerCallContext for debugging.
func (scc *ServerCallContext) String() string {
	scc.mu.RLock()
	defer scc.mu.RUnlock()

	return fmt.Sprintf("ServerCallContext{user: %s, authenticated: %t, state_keys: %d}",
		scc.user.UserName(),
		scc.user.IsAuthenticated(),
		len(scc.state))
}
