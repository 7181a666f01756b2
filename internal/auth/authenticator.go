// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Header names inspected by Authenticate.
const (
	AuthorizationHeader = "Authorization"
	APIKeyHeader        = "X-API-Key"
)

// Errors returned by Authenticate.
var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type contextKey struct{}

// Principal is the authenticated caller.
type Principal struct {
	Operator string
	Method   string
}

// Authenticator accepts a bearer token or an API key.
type Authenticator struct {
	jwt  *JWTManager
	keys *APIKeyVerifier
}

// NewAuthenticator combines the configured credential checks. Either may
// be nil.
func NewAuthenticator(jwt *JWTManager, keys *APIKeyVerifier) *Authenticator {
	return &Authenticator{jwt: jwt, keys: keys}
}

// Enabled reports whether any credential is required.
func (a *Authenticator) Enabled() bool {
	return a != nil && (a.jwt != nil || a.keys != nil)
}

// Authenticate inspects r and returns the caller. A disabled authenticator
// returns an anonymous principal.
func (a *Authenticator) Authenticate(r *http.Request) (*Principal, error) {
	if !a.Enabled() {
		return &Principal{Operator: "anonymous", Method: "none"}, nil
	}

	if key := r.Header.Get(APIKeyHeader); key != "" && a.keys != nil {
		if !a.keys.Verify(key) {
			return nil, ErrInvalidCredentials
		}
		return &Principal{Operator: "api-key", Method: "api_key"}, nil
	}

	header := r.Header.Get(AuthorizationHeader)
	if header == "" {
		return nil, ErrMissingCredentials
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || a.jwt == nil {
		return nil, ErrInvalidCredentials
	}
	claims, err := a.jwt.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		return nil, errors.Join(ErrInvalidCredentials, err)
	}
	return &Principal{Operator: claims.Operator, Method: "jwt"}, nil
}

// ContextWithPrincipal stores p in ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFromContext returns the caller stored by ContextWithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok
}
