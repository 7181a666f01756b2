// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package subscription

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS guild_subscriptions (
    guild_id   TEXT PRIMARY KEY,
    record     JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresBackend stores guild records in the guild_subscriptions table.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, verifies the connection and creates the
// table if it does not exist.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresBackend, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	b := &PostgresBackend{pool: pool}
	if err := b.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// Migrate creates the schema.
func (b *PostgresBackend) Migrate(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create guild_subscriptions: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) LoadAll(ctx context.Context) (map[string][]byte, error) {
	rows, err := b.pool.Query(ctx, `SELECT guild_id, record::text FROM guild_subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("query guild records: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var guildID, record string
		if err := rows.Scan(&guildID, &record); err != nil {
			return nil, fmt.Errorf("scan guild record: %w", err)
		}
		out[guildID] = []byte(record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guild records: %w", err)
	}
	return out, nil
}

func (b *PostgresBackend) Save(ctx context.Context, guildID string, record []byte) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO guild_subscriptions (guild_id, record, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (guild_id) DO UPDATE
		SET record = EXCLUDED.record,
		    updated_at = NOW()
	`, guildID, string(record))
	if err != nil {
		return fmt.Errorf("save guild %s: %w", guildID, err)
	}
	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context, guildID string) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM guild_subscriptions WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("delete guild %s: %w", guildID, err)
	}
	return nil
}

// Close closes the connection pool.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
