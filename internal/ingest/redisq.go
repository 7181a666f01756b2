// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/normalizer"
)

// DefaultRedisQURL is the zKillboard RedisQ listen endpoint.
const DefaultRedisQURL = "https://zkillredisq.stream/listen.php"

// RedisQConfig configures the RedisQ poller.
type RedisQConfig struct {
	URL     string
	QueueID string
	// TimeToWait is how many seconds the server may hold a poll open.
	TimeToWait int
	UserAgent  string
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// RedisQ long-polls the RedisQ endpoint. Each response carries at most one
// kill; an empty package means the wait elapsed without one.
type RedisQ struct {
	cfg    RedisQConfig
	client *http.Client
	sink   Sink
	logger zerolog.Logger
}

// NewRedisQ creates a poller. client may be nil.
func NewRedisQ(cfg RedisQConfig, client *http.Client, sink Sink) *RedisQ {
	if cfg.URL == "" {
		cfg.URL = DefaultRedisQURL
	}
	if cfg.TimeToWait <= 0 {
		cfg.TimeToWait = 10
	}
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.TimeToWait+10) * time.Second}
	}
	return &RedisQ{
		cfg:    cfg,
		client: client,
		sink:   sink,
		logger: logging.WithComponent("redisq"),
	}
}

// Serve polls until ctx is cancelled. Failures back off up to MaxBackoff.
func (r *RedisQ) Serve(ctx context.Context) error {
	r.logger.Info().Str("url", r.cfg.URL).Str("queue_id", r.cfg.QueueID).Msg("Polling RedisQ")
	bo := newBackoff(r.cfg.MinBackoff, r.cfg.MaxBackoff)

	for ctx.Err() == nil {
		ev, err := r.Poll(ctx)
		if err == nil && ev != nil {
			err = r.sink.Emit(ctx, ev)
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			metrics.RecordIngestError(normalizer.SourceRedisQ)
			delay := bo.NextBackOff()
			r.logger.Warn().Err(err).Dur("retry_in", delay).Msg("RedisQ poll failed")
			sleep(ctx, delay)
			continue
		}
		bo.Reset()
	}
	return ctx.Err()
}

// Poll performs one request. It returns nil and no error when the queue was
// empty.
func (r *RedisQ) Poll(ctx context.Context) (*normalizer.RawEvent, error) {
	u, err := url.Parse(r.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redisq url: %w", err)
	}
	q := u.Query()
	if r.cfg.QueueID != "" {
		q.Set("queueID", r.cfg.QueueID)
	}
	q.Set("ttw", strconv.Itoa(r.cfg.TimeToWait))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create redisq request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", r.cfg.UserAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redisq request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read redisq response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return normalizer.DecodeRedisQ(body)
}

// StatusError is a non-200 answer from a feed endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.StatusCode)
}

// IsStatus reports whether err is a StatusError with code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
