// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package models defines the data shared between the kill pipeline stages:
// the normalized Kill, its enriched form, subscriptions and the delivery
// tasks produced by matching.
//
// Identifiers are EVE Online ids (int64). A zero id means "absent" throughout:
// a victim without a character (a structure, for example) has CharacterID 0,
// and a zero id never matches a subscription.
package models
