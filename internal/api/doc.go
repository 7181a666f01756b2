// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package api exposes subscription management over HTTP.

All subscription routes are scoped to a Discord guild and channel, which
are validated as snowflakes before any handler runs:

	POST   /api/v1/guilds/{guild}/channels/{channel}/subscriptions
	POST   /api/v1/guilds/{guild}/channels/{channel}/subscriptions/link
	GET    /api/v1/guilds/{guild}/channels/{channel}/subscriptions
	DELETE /api/v1/guilds/{guild}/channels/{channel}/subscriptions
	DELETE /api/v1/guilds/{guild}/channels/{channel}/subscriptions/link?url=...
	DELETE /api/v1/guilds/{guild}/channels/{channel}/subscriptions/{type}[/{id}]
	DELETE /api/v1/guilds/{guild}

GET /health and GET /metrics are unauthenticated. Responses use the
models.APIResponse envelope.
*/
package api
