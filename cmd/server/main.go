// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Command server runs the kill feed service.

	zKillboard (RedisQ or websocket)
	    -> ingest       dedup by kill id, publish kills.raw
	    -> router       normalize, enrich, match subscriptions
	    -> kills.deliver.<shard>
	    -> delivery     lock, dedup, post to Discord, retract on 403/404

Configuration is read by internal/config from defaults, an optional
config.yaml (CONFIG_PATH) and environment variables, in that order of
increasing priority. The important variables:

	DISCORD_TOKEN=<bot token>          # required
	ZKILL_SOURCE=redisq                # redisq or websocket
	ZKILL_QUEUE_ID=<unique id>         # required for redisq
	SUBSCRIPTIONS_BACKEND=file         # file, badger or postgres
	LEASE_BACKEND=memory               # memory or redis
	MESSAGING_TRANSPORT=gochannel      # gochannel or nats
	NATS_EMBEDDED=true                 # run JetStream in-process
	JWT_SECRET=<32+ chars>             # enables bearer auth on /api/v1

SIGINT and SIGTERM stop the supervisor tree, drain the router and flush
the reference data cache before exit.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		logging.Error().Err(err).Msg("Killfeed stopped with error")
		os.Exit(1)
	}
	logging.Info().Msg("Killfeed stopped gracefully")
}
