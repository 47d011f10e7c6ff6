// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

// HeaderUserID carries the caller identity between services.
const HeaderUserID = "X-User-ID"

// UserFromBearer extracts the subject of an unverified JWT bearer token.
//
// Signature verification is the responsibility of the ingress in front of
// the agent; the token is only used to recover the caller name.
func UserFromBearer(token string) (User, error) {
	tok, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bearer token: %w", err)
	}
	sub, ok := tok.Subject()
	if !ok || sub == "" {
		return nil, fmt.Errorf("bearer token has no subject")
	}
	return AuthenticatedUser{Name: sub}, nil
}

// UserFromRequest resolves the caller of r. An explicit X-User-ID header
// wins over the bearer token; requests carrying neither are unauthenticated.
func UserFromRequest(r *http.Request) User {
	if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
		return AuthenticatedUser{Name: id}
	}
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if u, err := UserFromBearer(strings.TrimSpace(token)); err == nil {
				return u
			}
		}
	}
	return UnauthenticatedUser{}
}

// HeaderTransport is an [http.RoundTripper] that stamps the user found in the
// request context onto outgoing requests.
type HeaderTransport struct {
	// Base is the underlying transport. [http.DefaultTransport] is used when nil.
	Base http.RoundTripper
}

var _ http.RoundTripper = (*HeaderTransport)(nil)

// RoundTrip implements [http.RoundTripper].
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	u := UserFromContext(req.Context())
	if !u.IsAuthenticated() || req.Header.Get(HeaderUserID) != "" {
		return base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set(HeaderUserID, u.UserName())
	return base.RoundTrip(clone)
}
