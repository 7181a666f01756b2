// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package discord is a minimal Discord REST API client for a bot user:
// post embeds, look up channels and guilds, and open direct messages.
package discord

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

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is the Discord REST API base.
const DefaultAPIURL = "https://discord.com/api/v10"

// Discord JSON error codes the client distinguishes.
const (
	CodeUnknownChannel     = 10003
	CodeUnknownGuild       = 10004
	CodeMissingAccess      = 50001
	CodeCannotSendToUser   = 50007
	CodeMissingPermissions = 50013
)

// APIError is a non-2xx response from Discord.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord %s %s: %d %s (code %d)", e.Method, e.Path, e.StatusCode, e.Message, e.Code)
}

// Forbidden reports whether the bot lacks access or permission.
func (e *APIError) Forbidden() bool {
	return e.StatusCode == http.StatusForbidden || e.Code == CodeMissingAccess || e.Code == CodeMissingPermissions
}

// NotFound reports whether the addressed channel or guild does not exist.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Code == CodeUnknownChannel || e.Code == CodeUnknownGuild
}

// Config configures a Client.
type Config struct {
	Token   string
	APIURL  string
	Timeout time.Duration
	// RatePerSecond caps requests across all routes. Discord's global
	// limit is 50 per second.
	RatePerSecond float64
}

// Client calls the Discord REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 45
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), int(cfg.RatePerSecond)),
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord rate limiter: %w", err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", "DiscordBot (https://github.com/tomtom215/killfeed, 1.0)")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read discord response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
		if jerr := json.Unmarshal(data, apiErr); jerr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, perr := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); perr == nil {
				apiErr.RetryAfter = time.Duration(secs * float64(time.Second))
			}
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode discord %s: %w", path, err)
		}
	}
	return nil
}

// CreateMessage posts a message to a channel.
func (c *Client) CreateMessage(ctx context.Context, channelID string, msg *MessageCreate) (*Message, error) {
	var out Message
	if err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Channel fetches a channel.
func (c *Client) Channel(ctx context.Context, channelID string) (*Channel, error) {
	var out Channel
	if err := c.do(ctx, http.MethodGet, "/channels/"+channelID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Guild fetches a guild.
func (c *Client) Guild(ctx context.Context, guildID string) (*Guild, error) {
	var out Guild
	if err := c.do(ctx, http.MethodGet, "/guilds/"+guildID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDM opens (or returns) the direct message channel with a user.
func (c *Client) CreateDM(ctx context.Context, userID string) (*Channel, error) {
	var out Channel
	payload := map[string]string{"recipient_id": userID}
	if err := c.do(ctx, http.MethodPost, "/users/@me/channels", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
