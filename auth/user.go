// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth provides caller identity for A2A requests: the user model, its
// propagation through [context.Context], extraction from inbound HTTP
// requests and stamping onto outbound ones.
package auth

// User represents an authenticated or unauthenticated user in the A2A system.
type User interface {
	// IsAuthenticated returns true if the user is authenticated, false otherwise.
	IsAuthenticated() bool

	// UserName returns the username of the user. For unauthenticated users,
	// this returns an empty string.
	UserName() string
}

// UnauthenticatedUser represents an unauthenticated user in the A2A system.
//
// UnauthenticatedUser is safe to use as a zero value and is immutable.
type UnauthenticatedUser struct{}

var _ User = UnauthenticatedUser{}

// IsAuthenticated always returns false for unauthenticated users.
func (u UnauthenticatedUser) IsAuthenticated() bool {
	return false
}

// UserName always returns an empty string for unauthenticated users.
func (u UnauthenticatedUser) UserName() string {
	return ""
}

// AuthenticatedUser is a user identified by name.
type AuthenticatedUser struct {
	Name string
}

var _ User = AuthenticatedUser{}

// IsAuthenticated reports whether the user carries a name.
func (u AuthenticatedUser) IsAuthenticated() bool {
	return u.Name != ""
}

// UserName returns the user name.
func (u AuthenticatedUser) UserName() string {
	return u.Name
}
