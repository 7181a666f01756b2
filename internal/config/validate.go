// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDiscord,
		c.validateESI,
		c.validateZKill,
		c.validateSubscriptions,
		c.validateLease,
		c.validateMessaging,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.API.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	return nil
}

func (c *Config) validateDiscord() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	return validateHTTPURL(c.Discord.APIURL, "DISCORD_API_URL")
}

func (c *Config) validateESI() error {
	if err := validateHTTPURL(c.ESI.BaseURL, "ESI_BASE_URL"); err != nil {
		return err
	}
	if c.ESI.RatePerSecond <= 0 {
		return fmt.Errorf("ESI_RATE_LIMIT must be positive")
	}
	if c.ESI.MaxRetries < 0 {
		return fmt.Errorf("ESI_MAX_RETRIES must not be negative")
	}
	return nil
}

func (c *Config) validateZKill() error {
	switch c.ZKill.Source {
	case SourceRedisQ:
		if c.ZKill.QueueID == "" {
			return fmt.Errorf("ZKILL_QUEUE_ID is required for the redisq source")
		}
		return validateHTTPURL(c.ZKill.RedisQURL, "ZKILL_REDISQ_URL")
	case SourceWebsocket:
		u, err := url.Parse(c.ZKill.WebsocketURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("ZKILL_WEBSOCKET_URL must be a ws:// or wss:// URL")
		}
		return nil
	default:
		return fmt.Errorf("ZKILL_SOURCE must be %q or %q, got %q", SourceRedisQ, SourceWebsocket, c.ZKill.Source)
	}
}

func (c *Config) validateSubscriptions() error {
	switch c.Subscriptions.Backend {
	case BackendFile:
		if c.Subscriptions.Dir == "" {
			return fmt.Errorf("SUBSCRIPTIONS_DIR is required for the file backend")
		}
	case BackendBadger:
		if c.Subscriptions.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required for the badger backend")
		}
	case BackendPostgres:
		if c.Subscriptions.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("SUBSCRIPTIONS_BACKEND must be one of file, badger, postgres; got %q", c.Subscriptions.Backend)
	}
	return nil
}

func (c *Config) validateLease() error {
	switch c.Lease.Backend {
	case LeaseMemory:
	case LeaseRedis:
		if c.Lease.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis lease backend")
		}
	default:
		return fmt.Errorf("LEASE_BACKEND must be memory or redis, got %q", c.Lease.Backend)
	}
	if c.Lease.DedupTTL <= 0 || c.Lease.LockTTL <= 0 {
		return fmt.Errorf("DEDUP_TTL and LOCK_TTL must be positive")
	}
	return nil
}

func (c *Config) validateMessaging() error {
	switch c.Messaging.Transport {
	case TransportChannel:
	case TransportNATS:
		if !c.Messaging.EmbeddedNATS && c.Messaging.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when NATS_EMBEDDED=false")
		}
	default:
		return fmt.Errorf("MESSAGING_TRANSPORT must be gochannel or nats, got %q", c.Messaging.Transport)
	}
	if c.Messaging.DeliveryShards < 1 {
		return fmt.Errorf("DELIVERY_SHARDS must be at least 1")
	}
	if c.Messaging.RetryMaxRetries < 0 {
		return fmt.Errorf("RETRY_MAX_RETRIES must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

func validateHTTPURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
