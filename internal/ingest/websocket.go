// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/normalizer"
)

// DefaultWebsocketURL is the zKillboard websocket endpoint.
const DefaultWebsocketURL = "wss://zkillboard.com/websocket/"

// subscribeRequest asks zKillboard for a channel.
type subscribeRequest struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// StreamConfig configures the websocket source.
type StreamConfig struct {
	URL         string
	Channel     string
	ReadTimeout time.Duration
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// Stream reads the websocket killstream and reconnects with capped backoff
// when the connection drops.
type Stream struct {
	cfg    StreamConfig
	dialer websocket.Dialer
	sink   Sink
	logger zerolog.Logger
}

// NewStream creates a websocket source.
func NewStream(cfg StreamConfig, sink Sink) *Stream {
	if cfg.URL == "" {
		cfg.URL = DefaultWebsocketURL
	}
	if cfg.Channel == "" {
		cfg.Channel = "killstream"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Minute
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 32 * time.Second
	}
	return &Stream{
		cfg: cfg,
		dialer: websocket.Dialer{
			HandshakeTimeout:  10 * time.Second,
			EnableCompression: true,
		},
		sink:   sink,
		logger: logging.WithComponent("killstream"),
	}
}

// Serve reads until ctx is cancelled.
func (s *Stream) Serve(ctx context.Context) error {
	bo := newBackoff(s.cfg.MinBackoff, s.cfg.MaxBackoff)
	for ctx.Err() == nil {
		received, err := s.session(ctx)
		if ctx.Err() != nil {
			break
		}
		if received > 0 {
			bo.Reset()
		}
		metrics.RecordIngestError(normalizer.SourceWebsocket)
		delay := bo.NextBackOff()
		s.logger.Warn().Err(err).Int("kills", received).Dur("retry_in", delay).Msg("Killstream disconnected, reconnecting")
		sleep(ctx, delay)
	}
	return ctx.Err()
}

// session runs one connection until it fails and returns how many kills it
// delivered.
func (s *Stream) session(ctx context.Context) (int, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return 0, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return 0, fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	if err := conn.WriteJSON(subscribeRequest{Action: "sub", Channel: s.cfg.Channel}); err != nil {
		return 0, fmt.Errorf("subscribe to %s: %w", s.cfg.Channel, err)
	}
	s.logger.Info().Str("url", s.cfg.URL).Str("channel", s.cfg.Channel).Msg("Killstream connected")

	received := 0
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return received, fmt.Errorf("read killstream: %w", err)
		}

		ev, err := normalizer.DecodeKillstream(data)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping unreadable killstream message")
			continue
		}
		if ev == nil {
			continue
		}
		if err := s.sink.Emit(ctx, ev); err != nil {
			return received, fmt.Errorf("emit kill %d: %w", ev.KillID, err)
		}
		received++
	}
}
