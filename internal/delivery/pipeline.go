// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package delivery sends routed kills to Discord channels.
//
// Each (channel, kill) pair is sent at most once within the dedup window,
// even when several subscriptions of the channel match the same kill and
// their tasks are processed concurrently. A channel the bot can no longer
// write to loses all its subscriptions and the guild owner is told why.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/killfeed/internal/lease"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
)

var (
	// ErrPermissionDenied is returned by a Sender when the bot may not post
	// in the channel.
	ErrPermissionDenied = errors.New("missing permission to post in channel")

	// ErrChannelNotFound is returned by a Sender when the channel is gone.
	ErrChannelNotFound = errors.New("channel not found")
)

// ChannelInfo describes a destination for the owner notification.
type ChannelInfo struct {
	ChannelName string
	GuildName   string
	OwnerID     string
}

// Sender delivers messages to the chat platform.
type Sender interface {
	// Send posts msg to a channel. It returns an error wrapping
	// ErrPermissionDenied or ErrChannelNotFound for those two cases.
	Send(ctx context.Context, channelID string, msg *Message) error
	// Describe resolves the channel and guild names and the guild owner.
	Describe(ctx context.Context, dest models.Destination) (ChannelInfo, error)
	// DirectMessage sends a private text message to a user.
	DirectMessage(ctx context.Context, userID, text string) error
}

// Retractor removes subscriptions that can no longer be delivered.
// *subscription.Store implements it.
type Retractor interface {
	Unsubscribe(ctx context.Context, dest models.Destination, key models.SubscriptionKey) (bool, error)
	UnsubscribeAll(ctx context.Context, dest models.Destination) (int, error)
}

// Config configures a Pipeline.
type Config struct {
	// DedupTTL is how long a sent (channel, kill) pair is remembered.
	DedupTTL time.Duration
	// LockTTL bounds how long one attempt may hold the pair's lock.
	LockTTL time.Duration
}

// Pipeline delivers tasks.
type Pipeline struct {
	locker    lease.Locker
	sender    Sender
	retractor Retractor
	dedupTTL  time.Duration
	lockTTL   time.Duration
	logger    zerolog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(locker lease.Locker, sender Sender, retractor Retractor, cfg Config) *Pipeline {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Pipeline{
		locker:    locker,
		sender:    sender,
		retractor: retractor,
		dedupTTL:  cfg.DedupTTL,
		lockTTL:   cfg.LockTTL,
		logger:    logging.WithComponent("delivery"),
	}
}

// Deliver sends one task. It returns nil when the message was sent, was
// already sent or is being sent by another worker, and when the
// destination was retracted. Any other failure is returned so the caller
// can retry; the dedup marker is released first so the retry is not
// mistaken for a duplicate.
func (p *Pipeline) Deliver(ctx context.Context, task *models.DeliveryTask) error {
	start := time.Now()
	key := task.DedupKey()
	log := p.logger.With().
		Str("guild_id", task.Destination.GuildID).
		Str("channel_id", task.Destination.ChannelID).
		Int64("kill_id", task.Kill.Kill.ID).
		Str("correlation_id", logging.CorrelationIDFromContext(ctx)).
		Logger()

	lockToken, ok, err := p.locker.TryAcquire(ctx, "lock:"+key, p.lockTTL)
	if err != nil {
		metrics.RecordDelivery(metrics.OutcomeFailed, time.Since(start))
		return fmt.Errorf("acquire delivery lock %s: %w", key, err)
	}
	if !ok {
		log.Debug().Msg("Delivery in progress elsewhere, skipping")
		metrics.RecordDelivery(metrics.OutcomeLocked, time.Since(start))
		return nil
	}
	defer p.release(ctx, "lock:"+key, lockToken)

	sentToken, ok, err := p.locker.TryAcquire(ctx, "sent:"+key, p.dedupTTL)
	if err != nil {
		metrics.RecordDelivery(metrics.OutcomeFailed, time.Since(start))
		return fmt.Errorf("acquire dedup marker %s: %w", key, err)
	}
	if !ok {
		log.Debug().Msg("Kill already sent to channel")
		metrics.RecordDelivery(metrics.OutcomeDuplicate, time.Since(start))
		return nil
	}

	msg := Render(task)
	err = p.sender.Send(ctx, task.Destination.ChannelID, &msg)
	switch {
	case err == nil:
		log.Debug().Str("subject", string(task.SubjectType)).Msg("Kill delivered")
		metrics.RecordDelivery(metrics.OutcomeSent, time.Since(start))
		return nil

	case errors.Is(err, ErrPermissionDenied):
		log.Warn().Err(err).Msg("No permission to post, retracting channel")
		p.retractChannel(ctx, task.Destination, log)
		metrics.RecordDelivery(metrics.OutcomePermissionDenied, time.Since(start))
		return nil

	case errors.Is(err, ErrChannelNotFound):
		log.Warn().Err(err).Str("subject", task.SubscriptionKey().String()).Msg("Channel not found, removing subscription")
		if removed, uerr := p.retractor.Unsubscribe(ctx, task.Destination, task.SubscriptionKey()); uerr != nil {
			log.Error().Err(uerr).Msg("Failed to persist subscription removal")
		} else if removed {
			metrics.RecordRetraction("channel_missing", 1)
		}
		metrics.RecordDelivery(metrics.OutcomeChannelMissing, time.Since(start))
		return nil

	default:
		p.release(ctx, "sent:"+key, sentToken)
		log.Warn().Err(err).Msg("Delivery failed, will retry")
		metrics.RecordDelivery(metrics.OutcomeFailed, time.Since(start))
		return fmt.Errorf("send kill %d to channel %s: %w", task.Kill.Kill.ID, task.Destination.ChannelID, err)
	}
}

// retractChannel tells the guild owner and removes every subscription of
// the channel. The notification is best effort.
func (p *Pipeline) retractChannel(ctx context.Context, dest models.Destination, log zerolog.Logger) {
	if err := p.notifyOwner(ctx, dest); err != nil {
		log.Warn().Err(err).Msg("Could not notify guild owner")
	}

	n, err := p.retractor.UnsubscribeAll(ctx, dest)
	if err != nil {
		log.Error().Err(err).Msg("Failed to persist channel retraction")
	}
	metrics.RecordRetraction("permission_denied", n)
	log.Info().Int("subscriptions", n).Msg("Channel subscriptions retracted")
}

func (p *Pipeline) notifyOwner(ctx context.Context, dest models.Destination) error {
	info, err := p.sender.Describe(ctx, dest)
	if err != nil {
		return fmt.Errorf("describe channel: %w", err)
	}
	if info.OwnerID == "" {
		return errors.New("guild owner unknown")
	}
	return p.sender.DirectMessage(ctx, info.OwnerID, OwnerNotice(info.ChannelName, info.GuildName))
}

// release frees a lease even when ctx is already cancelled.
func (p *Pipeline) release(ctx context.Context, key, token string) {
	if err := p.locker.Release(context.WithoutCancel(ctx), key, token); err != nil && !errors.Is(err, lease.ErrNotHeld) {
		p.logger.Warn().Err(err).Str("key", key).Msg("Failed to release lease")
	}
}
