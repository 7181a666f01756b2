// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

//go:build integration

// Package testinfra starts throwaway containers for integration tests.
//
// Tests using it carry the integration build tag and are skipped when no
// Docker daemon is reachable:
//
//	func TestPostgresBackend(t *testing.T) {
//	    dsn := testinfra.StartPostgres(t)
//	    b, err := subscription.OpenPostgres(context.Background(), dsn)
//	    // ...
//	}
//
// Run them with:
//
//	go test -tags integration ./...
package testinfra
