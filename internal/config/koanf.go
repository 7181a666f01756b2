// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/killfeed/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			RateLimitRPS: 20,
			CORSOrigins:  []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Discord: DiscordConfig{
			APIURL:  "https://discord.com/api/v10",
			Timeout: 15 * time.Second,
		},
		ESI: ESIConfig{
			BaseURL:       "https://esi.evetech.net/latest",
			UserAgent:     "killfeed (https://github.com/tomtom215/killfeed)",
			RatePerSecond: 20,
			Timeout:       10 * time.Second,
			MaxRetries:    3,
		},
		ZKill: ZKillConfig{
			Source:       SourceRedisQ,
			RedisQURL:    "https://zkillredisq.stream/listen.php",
			WebsocketURL: "wss://zkillboard.com/websocket/",
			TimeToWait:   10,
		},
		RefData: RefDataConfig{
			Dir:           "./data/refdata",
			FlushInterval: 5 * time.Second,
		},
		Subscriptions: SubscriptionsConfig{
			Backend:    BackendFile,
			Dir:        "./data/guilds",
			BadgerPath: "./data/badger",
		},
		Lease: LeaseConfig{
			Backend:  LeaseMemory,
			DedupTTL: 60 * time.Second,
			LockTTL:  30 * time.Second,
		},
		Messaging: MessagingConfig{
			Transport:       TransportChannel,
			NATSURL:         "nats://127.0.0.1:4222",
			EmbeddedNATS:    true,
			StoreDir:        "./data/nats",
			DeliveryShards:  10,
			RetryMaxRetries: 9,
			RetryInterval:   60 * time.Second,
			BufferSize:      1024,
			CloseTimeout:    30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the optional config file and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	"jwt_secret":     "api.jwt_secret",
	"api_key_hash":   "api.api_key_hash",
	"rate_limit_rps": "api.rate_limit_rps",
	"cors_origins":   "api.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"discord_token":   "discord.token",
	"discord_api_url": "discord.api_url",
	"discord_timeout": "discord.timeout",

	"esi_base_url":    "esi.base_url",
	"esi_user_agent":  "esi.user_agent",
	"esi_rate_limit":  "esi.rate_per_second",
	"esi_timeout":     "esi.timeout",
	"esi_max_retries": "esi.max_retries",

	"zkill_source":        "zkill.source",
	"zkill_queue_id":      "zkill.queue_id",
	"zkill_redisq_url":    "zkill.redisq_url",
	"zkill_websocket_url": "zkill.websocket_url",
	"zkill_ttw":           "zkill.ttw",

	"refdata_dir":            "refdata.dir",
	"refdata_flush_interval": "refdata.flush_interval",

	"subscriptions_backend": "subscriptions.backend",
	"subscriptions_dir":     "subscriptions.dir",
	"badger_path":           "subscriptions.badger_path",
	"postgres_dsn":          "subscriptions.postgres_dsn",

	"lease_backend":  "lease.backend",
	"redis_addr":     "lease.redis_addr",
	"redis_password": "lease.redis_password",
	"redis_db":       "lease.redis_db",
	"dedup_ttl":      "lease.dedup_ttl",
	"lock_ttl":       "lease.lock_ttl",

	"messaging_transport": "messaging.transport",
	"nats_url":            "messaging.nats_url",
	"nats_embedded":       "messaging.embedded_nats",
	"nats_store_dir":      "messaging.store_dir",
	"delivery_shards":     "messaging.delivery_shards",
	"retry_max_retries":   "messaging.retry_max_retries",
	"retry_interval":      "messaging.retry_interval",
	"messaging_buffer":    "messaging.buffer_size",
	"router_timeout":      "messaging.close_timeout",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
