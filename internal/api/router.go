// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/killfeed/internal/auth"
	"github.com/tomtom215/killfeed/internal/middleware"
)

// RouterConfig configures the cross-cutting middleware.
type RouterConfig struct {
	// CORSOrigins lists allowed origins; empty disables CORS headers.
	CORSOrigins []string

	// RateLimitRPS is the per-IP request rate on /api/v1; 0 disables it.
	RateLimitRPS int

	// Auth guards /api/v1. A nil or disabled authenticator leaves it open.
	Auth *auth.Authenticator
}

// NewRouter builds the chi router for h.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.SecurityHeaders)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", auth.AuthorizationHeader, auth.APIKeyHeader, middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         86400,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/health", h.Health)
	r.Get("/health/live", h.HealthLive)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(httprate.Limit(
				cfg.RateLimitRPS,
				time.Second,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					respondError(w, r, http.StatusTooManyRequests, CodeRateLimited, "Too many requests", nil)
				}),
			))
		}
		if cfg.Auth.Enabled() {
			r.Use(middleware.Authenticate(cfg.Auth, deny))
		}

		r.Delete("/guilds/{guild}", h.RemoveGuild)
		r.Route("/guilds/{guild}/channels/{channel}/subscriptions", func(r chi.Router) {
			r.Get("/", h.ListSubscriptions)
			r.Post("/", h.Subscribe)
			r.Delete("/", h.UnsubscribeAll)
			r.Post("/link", h.SubscribeLink)
			r.Delete("/link", h.UnsubscribeLink)
			r.Delete("/{type}", h.Unsubscribe)
			r.Delete("/{type}/{id}", h.Unsubscribe)
		})
	})

	return r
}

func deny(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="killfeed"`)
	respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Authentication required", err)
}
