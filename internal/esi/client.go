// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package esi is a small client for the parts of the EVE Swagger Interface
// killfeed needs: universe lookups for systems, constellations, regions, types
// and entity names, and the authoritative killmail endpoint.
//
// Every request is rate limited, passes through a circuit breaker and is
// retried a bounded number of times on transient failures.
package esi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
)

// ErrNotFound is returned when ESI answers 404 for an id.
var ErrNotFound = errors.New("esi: not found")

// StatusError is a non-2xx ESI response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("esi %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Transient reports whether retrying the request may succeed. 420 is ESI's
// error-limit status.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == 420
}

// Config configures the client.
type Config struct {
	BaseURL       string
	UserAgent     string
	RatePerSecond float64
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
}

// Client talks to ESI.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	cb        *gobreaker.CircuitBreaker[[]byte]
	executor  failsafe.Executor[[]byte]
	name      string
}

// NewClient builds a client. Zero values in cfg fall back to defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://esi.evetech.net/latest"
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), int(cfg.RatePerSecond)+1),
		name:      "esi",
	}
	c.cb = newCircuitBreaker(c.name)

	retry := retrypolicy.NewBuilder[[]byte]().
		WithBackoff(cfg.RetryDelay, 10*cfg.RetryDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ []byte, err error) bool {
			return isRetryable(err)
		}).
		ReturnLastFailure().
		Build()
	c.executor = failsafe.With[[]byte](retry)
	return c
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	// network errors
	return true
}

// getJSON fetches path and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, endpoint, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint, path string, payload interface{}, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
	}

	data, err := c.executor.WithContext(ctx).Get(func() ([]byte, error) {
		return c.execute(func() ([]byte, error) {
			return c.roundTrip(ctx, method, endpoint, path, body)
		})
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordESIRequest(endpoint, "error", time.Since(start))
		return nil, fmt.Errorf("esi %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	metrics.RecordESIRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", endpoint, path, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg := string(data)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: msg}
	}
	return data, nil
}

// execute runs fn through the circuit breaker and records its outcome.
func (c *Client) execute(fn func() ([]byte, error)) ([]byte, error) {
	data, err := c.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		logging.Warn().Err(err).Str("breaker", c.name).Msg("ESI request rejected")
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
	}
	return data, err
}
