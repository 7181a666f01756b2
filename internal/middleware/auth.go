// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package middleware

import (
	"net/http"

	"github.com/tomtom215/killfeed/internal/auth"
	"github.com/tomtom215/killfeed/internal/logging"
)

// DenyFunc writes the response for a request that failed authentication.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// Authenticate rejects requests the authenticator does not accept and
// stores the caller in the request context otherwise.
func Authenticate(a *auth.Authenticator, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := a.Authenticate(r)
			if err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).
					Str("remote_addr", r.RemoteAddr).
					Str("path", r.URL.Path).
					Msg("Rejected unauthenticated request")
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}
