// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/lease"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/subscription"
)

// leaseKeyPrefix namespaces dedup markers in a shared Redis.
const leaseKeyPrefix = "killfeed:"

func openSubscriptionBackend(ctx context.Context, cfg config.SubscriptionsConfig) (subscription.Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendFile, "":
		b, err := subscription.NewFileBackend(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("dir", cfg.Dir).Msg("Using file subscription backend")
		return b, noop, nil

	case config.BackendBadger:
		b, err := subscription.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("path", cfg.BadgerPath).Msg("Using badger subscription backend")
		return b, b.Close, nil

	case config.BackendPostgres:
		b, err := subscription.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Msg("Using postgres subscription backend")
		return b, b.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown subscriptions backend %q", cfg.Backend)
	}
}

func openLocker(ctx context.Context, cfg config.LeaseConfig) (lease.Locker, func() error, error) {
	switch cfg.Backend {
	case config.LeaseMemory, "":
		m := lease.NewMemory(time.Minute)
		logging.Info().Msg("Using in-memory lease backend")
		return m, func() error { m.Close(); return nil }, nil

	case config.LeaseRedis:
		client, err := lease.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("addr", cfg.RedisAddr).Msg("Using redis lease backend")
		return lease.NewRedis(client, leaseKeyPrefix), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown lease backend %q", cfg.Backend)
	}
}
