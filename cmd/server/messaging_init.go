// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package main

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/eventprocessor"
	"github.com/tomtom215/killfeed/internal/logging"
)

// openTransport returns the in-process transport or a JetStream one,
// starting an embedded NATS server first when configured.
func openTransport(ctx context.Context, cfg config.MessagingConfig, logger watermill.LoggerAdapter) (*eventprocessor.Transport, error) {
	switch cfg.Transport {
	case config.TransportChannel, "":
		logging.Info().Int64("buffer", cfg.BufferSize).Msg("Using in-process message transport")
		return eventprocessor.NewChannelTransport(cfg.BufferSize, logger), nil

	case config.TransportNATS:
		return openNATSTransport(ctx, cfg, logger)

	default:
		return nil, fmt.Errorf("unknown messaging transport %q", cfg.Transport)
	}
}

func openNATSTransport(ctx context.Context, cfg config.MessagingConfig, logger watermill.LoggerAdapter) (*eventprocessor.Transport, error) {
	url := cfg.NATSURL

	var server *eventprocessor.EmbeddedServer
	if cfg.EmbeddedNATS {
		serverCfg := eventprocessor.DefaultServerConfig()
		if cfg.StoreDir != "" {
			serverCfg.StoreDir = cfg.StoreDir
		}
		var err error
		server, err = eventprocessor.NewEmbeddedServer(serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded nats: %w", err)
		}
		url = server.ClientURL()
		logging.Info().Str("url", url).Str("store_dir", serverCfg.StoreDir).Msg("Embedded NATS server started")
	}

	natsCfg := eventprocessor.DefaultNATSConfig(url)
	if cfg.CloseTimeout > 0 {
		natsCfg.CloseTimeout = cfg.CloseTimeout
	}

	t, err := eventprocessor.NewNATSTransport(ctx, natsCfg, eventprocessor.DefaultStreamConfig(), logger)
	if err != nil {
		if server != nil {
			_ = server.Close()
		}
		return nil, err
	}
	if server != nil {
		// Closers run last-added-first; the server must outlive its clients.
		t.AddCloser(server.Close)
	}
	logging.Info().Str("url", url).Msg("Using NATS JetStream message transport")
	return t, nil
}
