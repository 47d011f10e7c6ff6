// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import "context"

type userKey struct{}

// WithUser returns a copy of ctx carrying user. Every call made with the
// returned context, however deeply nested, observes the same identity.
func WithUser(ctx context.Context, user User) context.Context {
	if user == nil {
		user = UnauthenticatedUser{}
	}
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user stored in ctx, or [UnauthenticatedUser].
func UserFromContext(ctx context.Context) User {
	if u, ok := ctx.Value(userKey{}).(User); ok && u != nil {
		return u
	}
	return UnauthenticatedUser{}
}

// UserIDFromContext returns the name of the authenticated user in ctx, or
// fallback when there is none.
func UserIDFromContext(ctx context.Context, fallback string) string {
	if u := UserFromContext(ctx); u.IsAuthenticated() {
		return u.UserName()
	}
	return fallback
}
