// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package ingest reads the zKillboard feed and publishes each kill to the
// raw topic. Two sources exist: the RedisQ long-poll endpoint and the
// websocket killstream. Both hand decoded events to an Emitter, which drops
// kills it has already published recently and stamps every message with a
// correlation id.
package ingest

import (
	"context"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/killfeed/internal/eventprocessor"
	"github.com/tomtom215/killfeed/internal/lease"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/normalizer"
)

// DefaultSeenWindow is how long a published kill id is remembered.
const DefaultSeenWindow = 10 * time.Minute

// Sink accepts decoded feed events.
type Sink interface {
	Emit(ctx context.Context, ev *normalizer.RawEvent) error
}

// Emitter publishes raw events to the raw topic.
type Emitter struct {
	publisher message.Publisher
	seen      lease.Locker
	window    time.Duration
}

// NewEmitter creates an Emitter. seen may be nil to publish every event.
func NewEmitter(pub message.Publisher, seen lease.Locker, window time.Duration) *Emitter {
	if window <= 0 {
		window = DefaultSeenWindow
	}
	return &Emitter{publisher: pub, seen: seen, window: window}
}

// Emit publishes ev unless the same kill was published within the window.
// The message id is derived from the kill id so a broker with duplicate
// detection drops repeats as well.
func (e *Emitter) Emit(ctx context.Context, ev *normalizer.RawEvent) error {
	metrics.RecordKillReceived(ev.Source)

	killID := strconv.FormatInt(ev.KillID, 10)
	seenKey := "seen:kill-" + killID
	var token string
	if e.seen != nil {
		t, ok, err := e.seen.TryAcquire(ctx, seenKey, e.window)
		switch {
		case err != nil:
			// Publish anyway; delivery dedup still holds.
			logging.Ctx(ctx).Warn().Err(err).Str("kill_id", killID).Msg("Seen check failed")
		case !ok:
			metrics.RecordDuplicateKill()
			return nil
		default:
			token = t
		}
	}

	payload, err := ev.Marshal()
	if err != nil {
		return err
	}

	msg := message.NewMessage("kill-"+killID, payload)
	msg.Metadata.Set(eventprocessor.MetadataCorrelationID, logging.GenerateCorrelationID())
	msg.Metadata.Set(eventprocessor.MetadataKillID, killID)
	msg.Metadata.Set(eventprocessor.MetadataSource, ev.Source)

	err = e.publisher.Publish(eventprocessor.TopicRaw, msg)
	metrics.RecordPublish(eventprocessor.TopicRaw, err)
	if err != nil {
		if token != "" {
			_ = e.seen.Release(context.WithoutCancel(ctx), seenKey, token)
		}
		return err
	}
	return nil
}
