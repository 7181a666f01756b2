// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package middleware holds the net/http middleware shared by the command API.

Every middleware has the chi signature func(http.Handler) http.Handler so it
can be passed to chi.Router.Use directly:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.SecurityHeaders)
	r.With(middleware.Authenticate(authn, deny)).Route("/api/v1", ...)

RequestID runs first so the correlation id it stores is available to the
logger of every later layer and of the handler itself.
*/
package middleware
