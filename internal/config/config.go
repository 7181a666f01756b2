// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package config loads killfeed configuration.
//
// Values are layered with koanf: struct defaults, then an optional YAML file
// (CONFIG_PATH or ./config.yaml), then environment variables. Only the
// environment variables listed in envMappings are read; anything else in the
// process environment is ignored.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	API           APIConfig           `koanf:"api"`
	Logging       LoggingConfig       `koanf:"logging"`
	Discord       DiscordConfig       `koanf:"discord"`
	ESI           ESIConfig           `koanf:"esi"`
	ZKill         ZKillConfig         `koanf:"zkill"`
	RefData       RefDataConfig       `koanf:"refdata"`
	Subscriptions SubscriptionsConfig `koanf:"subscriptions"`
	Lease         LeaseConfig         `koanf:"lease"`
	Messaging     MessagingConfig     `koanf:"messaging"`
}

// ServerConfig configures the HTTP listener for the command API and metrics.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// APIConfig configures the command API.
type APIConfig struct {
	// JWTSecret enables HS256 bearer authentication when non-empty.
	JWTSecret    string   `koanf:"jwt_secret"`
	// APIKeyHash is a bcrypt hash accepted in the X-API-Key header.
	APIKeyHash   string   `koanf:"api_key_hash"`
	RateLimitRPS int      `koanf:"rate_limit_rps"`
	CORSOrigins  []string `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DiscordConfig configures the bot REST client.
type DiscordConfig struct {
	Token   string        `koanf:"token"`
	APIURL  string        `koanf:"api_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// ESIConfig configures the EVE Swagger Interface client.
type ESIConfig struct {
	BaseURL       string        `koanf:"base_url"`
	UserAgent     string        `koanf:"user_agent"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	Timeout       time.Duration `koanf:"timeout"`
	MaxRetries    int           `koanf:"max_retries"`
}

// Kill feed sources.
const (
	SourceRedisQ    = "redisq"
	SourceWebsocket = "websocket"
)

// ZKillConfig selects and configures the kill feed source.
type ZKillConfig struct {
	Source       string `koanf:"source"`
	QueueID      string `koanf:"queue_id"`
	RedisQURL    string `koanf:"redisq_url"`
	WebsocketURL string `koanf:"websocket_url"`
	// TimeToWait is the RedisQ long-poll window in seconds.
	TimeToWait int `koanf:"ttw"`
}

// RefDataConfig configures the reference data cache.
type RefDataConfig struct {
	Dir           string        `koanf:"dir"`
	FlushInterval time.Duration `koanf:"flush_interval"`
}

// Subscription store backends.
const (
	BackendFile     = "file"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// SubscriptionsConfig selects the subscription persistence backend.
type SubscriptionsConfig struct {
	Backend     string `koanf:"backend"`
	Dir         string `koanf:"dir"`
	BadgerPath  string `koanf:"badger_path"`
	PostgresDSN string `koanf:"postgres_dsn"`
}

// Lease backends.
const (
	LeaseMemory = "memory"
	LeaseRedis  = "redis"
)

// LeaseConfig configures delivery dedup markers and locks.
type LeaseConfig struct {
	Backend       string        `koanf:"backend"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	DedupTTL      time.Duration `koanf:"dedup_ttl"`
	LockTTL       time.Duration `koanf:"lock_ttl"`
}

// Messaging transports.
const (
	TransportChannel = "gochannel"
	TransportNATS    = "nats"
)

// MessagingConfig configures the Watermill router and its transport.
type MessagingConfig struct {
	Transport       string        `koanf:"transport"`
	NATSURL         string        `koanf:"nats_url"`
	EmbeddedNATS    bool          `koanf:"embedded_nats"`
	StoreDir        string        `koanf:"store_dir"`
	DeliveryShards  int           `koanf:"delivery_shards"`
	RetryMaxRetries int           `koanf:"retry_max_retries"`
	RetryInterval   time.Duration `koanf:"retry_interval"`
	BufferSize      int64         `koanf:"buffer_size"`
	CloseTimeout    time.Duration `koanf:"close_timeout"`
}
