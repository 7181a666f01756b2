// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	killIDKey        contextKey = "kill_id"
)

// GenerateCorrelationID returns a short random id for following one kill
// through ingestion, matching and delivery.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a copy of ctx carrying id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a copy of ctx carrying a fresh correlation id.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation id or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithKillID tags ctx with the killmail being processed.
func ContextWithKillID(ctx context.Context, killID int64) context.Context {
	return context.WithValue(ctx, killIDKey, killID)
}

// KillIDFromContext returns the killmail id stored in ctx, or 0.
func KillIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(killIDKey).(int64); ok {
		return id
	}
	return 0
}

// Ctx returns the global logger enriched with the correlation and kill ids
// found in ctx.
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("Reference lookup failed")
func Ctx(ctx context.Context) *zerolog.Logger {
	zctx := With()
	if id := CorrelationIDFromContext(ctx); id != "" {
		zctx = zctx.Str("correlation_id", id)
	}
	if id := KillIDFromContext(ctx); id != 0 {
		zctx = zctx.Int64("kill_id", id)
	}
	l := zctx.Logger()
	return &l
}
