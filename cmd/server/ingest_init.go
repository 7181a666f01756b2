// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package main

import (
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/ingest"
	"github.com/tomtom215/killfeed/internal/logging"
)

// newKillSource picks the configured zKillboard feed. Validate has already
// rejected unknown sources.
func newKillSource(cfg *config.Config, sink ingest.Sink) suture.Service {
	if cfg.ZKill.Source == config.SourceWebsocket {
		logging.Info().Str("url", cfg.ZKill.WebsocketURL).Msg("Using zKillboard websocket feed")
		return ingest.NewStream(ingest.StreamConfig{
			URL:        cfg.ZKill.WebsocketURL,
			MinBackoff: time.Second,
			MaxBackoff: 32 * time.Second,
		}, sink)
	}

	logging.Info().
		Str("url", cfg.ZKill.RedisQURL).
		Str("queue_id", cfg.ZKill.QueueID).
		Msg("Using zKillboard RedisQ feed")
	return ingest.NewRedisQ(ingest.RedisQConfig{
		URL:        cfg.ZKill.RedisQURL,
		QueueID:    cfg.ZKill.QueueID,
		TimeToWait: cfg.ZKill.TimeToWait,
		UserAgent:  cfg.ESI.UserAgent,
		MinBackoff: time.Second,
		MaxBackoff: 5 * time.Minute,
	}, nil, sink)
}
