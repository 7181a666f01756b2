// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package lease provides expiring key locks. The delivery pipeline uses one
// lease per (channel, kill) as a short mutual-exclusion lock and a second
// lease as the "already sent" marker.
//
// Two implementations exist: Memory for a single process and Redis for
// several killfeed instances sharing one Redis.
package lease

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotHeld is returned by Release when the key is not held by token,
// either because it expired or another holder took it.
var ErrNotHeld = errors.New("lease not held")

// Locker acquires and releases expiring keys.
type Locker interface {
	// TryAcquire takes key for ttl if nobody holds it. It never blocks
	// waiting for the current holder. The returned token is needed to Release.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release frees key if it is still held by token.
	Release(ctx context.Context, key, token string) error
}

func newToken() string {
	return uuid.NewString()
}
