// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/killfeed/internal/logging"
)

// APIServer is the lifecycle subset of *http.Server.
type APIServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// APIServerConfig names the listener in logs and bounds its drain time.
type APIServerConfig struct {
	Name            string
	Addr            string
	ShutdownTimeout time.Duration
}

// APIServerService runs the command API listener under the api layer.
type APIServerService struct {
	server APIServer
	cfg    APIServerConfig
}

// NewAPIServerService wraps server. Name defaults to "command-api" and
// ShutdownTimeout to 10s.
func NewAPIServerService(server APIServer, cfg APIServerConfig) *APIServerService {
	if cfg.Name == "" {
		cfg.Name = "command-api"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &APIServerService{server: server, cfg: cfg}
}

// Serve implements suture.Service. A server that stops by itself was shut
// down elsewhere and cannot listen again, so it is not restarted.
func (s *APIServerService) Serve(ctx context.Context) error {
	log := logging.WithComponent(s.cfg.Name)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()
	log.Info().Str("addr", s.cfg.Addr).Msg("Command API listening")

	select {
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			log.Warn().Str("addr", s.cfg.Addr).Msg("Command API closed outside the supervisor")
			return suture.ErrDoNotRestart
		}
		return fmt.Errorf("%s on %s: %w", s.cfg.Name, s.cfg.Addr, err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		start := time.Now()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s shutdown: %w", s.cfg.Name, err)
		}
		<-errCh
		log.Info().Dur("drained_in", time.Since(start)).Msg("Command API stopped")
		return ctx.Err()
	}
}

func (s *APIServerService) String() string {
	return s.cfg.Name
}
