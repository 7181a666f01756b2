// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package eventprocessor moves kills through killfeed on a Watermill router.
//
// Ingestion publishes raw feed events to kills.raw. The process handler
// normalizes, enriches and routes each kill in arrival order and publishes one
// delivery task per matching subscription to a delivery shard topic:
//
//	feed ──▶ kills.raw ──▶ process ──▶ kills.deliver.<n> ──▶ deliver ──▶ Discord
//	                          │                                  │
//	                          └────────── kills.poison ◀─────────┘
//
// The shard is murmur3(channel id) mod the shard count, so every task for one
// channel lands on the same handler and at most one task per shard is in
// flight. Failed handlers are retried on a fixed interval; once retries are
// exhausted the message is moved to kills.poison, where it is logged and
// dropped.
//
// Two transports are available: an in-process Go channel (the default) and
// NATS JetStream, optionally served by an embedded nats-server.
package eventprocessor
