// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package supervisor runs the long-lived parts of the service under a suture v4
tree, restarting crashed services with backoff.

	root ("killfeed")
	├── data-layer
	│   └── refdata cache flusher
	├── messaging-layer
	│   ├── event router
	│   └── ingest source (RedisQ or websocket), gated on the router
	└── api-layer
	    └── HTTP server

Each layer is its own supervisor so repeated failures in one (a flapping
zKillboard connection, say) back off without restarting the others.
Supervisor events are logged through sutureslog.
*/
package supervisor
