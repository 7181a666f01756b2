// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/match"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
	"github.com/tomtom215/killfeed/internal/normalizer"
	"github.com/tomtom215/killfeed/internal/subscription"
)

// Message metadata keys.
const (
	MetadataCorrelationID = "correlation_id"
	MetadataKillID        = "kill_id"
	MetadataSource        = "source"
	MetadataChannelID     = "channel_id"
)

// ErrUndecodable marks a payload that can never be processed.
var ErrUndecodable = errors.New("undecodable message payload")

// KillNormalizer turns a raw feed event into a kill.
type KillNormalizer interface {
	Normalize(ctx context.Context, ev *normalizer.RawEvent) (*models.Kill, error)
}

// KillEnricher attaches reference data to a kill.
type KillEnricher interface {
	Enrich(ctx context.Context, kill *models.Kill) (*models.EnrichedKill, error)
}

// IndexSource provides the current subscription snapshot.
type IndexSource interface {
	ListAll() subscription.Index
}

// Deliverer sends one delivery task.
type Deliverer interface {
	Deliver(ctx context.Context, task *models.DeliveryTask) error
}

// Processor handles kills.raw: normalize, enrich, route, then publish one
// message per task to the task's delivery shard.
type Processor struct {
	normalizer KillNormalizer
	enricher   KillEnricher
	index      IndexSource
	publisher  message.Publisher
	shards     int
	logger     zerolog.Logger
}

// NewProcessor creates a Processor publishing tasks across shards topics.
func NewProcessor(n KillNormalizer, e KillEnricher, idx IndexSource, pub message.Publisher, shards int) *Processor {
	if shards < 1 {
		shards = 1
	}
	return &Processor{
		normalizer: n,
		enricher:   e,
		index:      idx,
		publisher:  pub,
		shards:     shards,
		logger:     logging.WithComponent("processor"),
	}
}

// Process runs one raw event through the pipeline and returns its tasks.
func (p *Processor) Process(ctx context.Context, ev *normalizer.RawEvent) ([]models.DeliveryTask, error) {
	kill, err := p.normalizer.Normalize(ctx, ev)
	if err != nil {
		return nil, err
	}
	enriched, err := p.enricher.Enrich(ctx, kill)
	if err != nil {
		return nil, fmt.Errorf("enrich kill %d: %w", kill.ID, err)
	}
	return match.Route(enriched, p.index.ListAll()), nil
}

// HandleRaw is the router handler for kills.raw. A kill that can never be
// processed is moved to the poison topic straight away instead of being
// retried.
func (p *Processor) HandleRaw(msg *message.Message) error {
	start := time.Now()
	ctx := messageContext(msg)

	ev, err := normalizer.UnmarshalRawEvent(msg.Payload)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrUndecodable, err)
		metrics.RecordKillProcessed(0, time.Since(start), err)
		return p.poison(msg, TopicRaw, err)
	}
	ctx = logging.ContextWithKillID(ctx, ev.KillID)

	tasks, err := p.Process(ctx, ev)
	if err != nil {
		metrics.RecordKillProcessed(0, time.Since(start), err)
		if permanent(err) {
			return p.poison(msg, TopicRaw, err)
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Kill processing failed, will retry")
		return err
	}

	for i := range tasks {
		if err := p.publishTask(ctx, &tasks[i]); err != nil {
			metrics.RecordKillProcessed(0, time.Since(start), err)
			return err
		}
		metrics.RecordRouted(string(tasks[i].SubjectType), string(tasks[i].Tag))
	}

	metrics.RecordKillProcessed(len(tasks), time.Since(start), nil)
	logging.Ctx(ctx).Debug().Int("tasks", len(tasks)).Dur("elapsed", time.Since(start)).Msg("Kill routed")
	return nil
}

// publishTask publishes task to its channel's shard. The message id is
// derived from the task so a retried kill republishes the same ids.
func (p *Processor) publishTask(ctx context.Context, task *models.DeliveryTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal delivery task: %w", err)
	}

	out := message.NewMessage(task.DedupKey()+":"+task.SubscriptionKey().String(), payload)
	out.Metadata.Set(MetadataCorrelationID, logging.CorrelationIDFromContext(ctx))
	out.Metadata.Set(MetadataKillID, strconv.FormatInt(task.Kill.Kill.ID, 10))
	out.Metadata.Set(MetadataChannelID, task.Destination.ChannelID)

	topic := DeliveryTopic(ShardFor(task.Destination.ChannelID, p.shards))
	err = p.publisher.Publish(topic, out)
	metrics.RecordPublish(TopicDeliverPrefix+"*", err)
	if err != nil {
		return fmt.Errorf("publish task to %s: %w", topic, err)
	}
	return nil
}

func (p *Processor) poison(msg *message.Message, topic string, cause error) error {
	return poisonNow(p.publisher, msg, topic, cause, p.logger)
}

// permanent reports errors that no amount of retrying will fix.
func permanent(err error) bool {
	return errors.Is(err, normalizer.ErrNoFinalBlow) ||
		errors.Is(err, normalizer.ErrMalformedKill) ||
		errors.Is(err, ErrUndecodable)
}

// Dispatcher handles the delivery shard topics.
type Dispatcher struct {
	deliverer Deliverer
	publisher message.Publisher
	logger    zerolog.Logger
}

// NewDispatcher creates a Dispatcher. pub receives undecodable tasks.
func NewDispatcher(d Deliverer, pub message.Publisher) *Dispatcher {
	return &Dispatcher{
		deliverer: d,
		publisher: pub,
		logger:    logging.WithComponent("dispatcher"),
	}
}

// HandleTask is the router handler for a delivery shard. Returning the
// delivery error hands the retry to the router.
func (d *Dispatcher) HandleTask(msg *message.Message) error {
	ctx := messageContext(msg)

	var task models.DeliveryTask
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		return poisonNow(d.publisher, msg, message.SubscribeTopicFromCtx(msg.Context()), fmt.Errorf("%w: %v", ErrUndecodable, err), d.logger)
	}
	ctx = logging.ContextWithKillID(ctx, task.Kill.Kill.ID)
	return d.deliverer.Deliver(ctx, &task)
}

// HandlePoison logs and drops a message that could not be processed.
func HandlePoison(msg *message.Message) error {
	topic := msg.Metadata.Get(middleware.PoisonedTopicKey)
	metrics.RecordPoisoned(topic)
	log := logging.WithComponent("poison")
	log.Error().
		Str("message_uuid", msg.UUID).
		Str("topic", topic).
		Str("kill_id", msg.Metadata.Get(MetadataKillID)).
		Str("correlation_id", msg.Metadata.Get(MetadataCorrelationID)).
		Str("reason", msg.Metadata.Get(middleware.ReasonForPoisonedKey)).
		Msg("Dropping message after failed processing")
	return nil
}

// poisonNow moves msg to the poison topic with the same metadata the
// PoisonQueue middleware would set.
func poisonNow(pub message.Publisher, msg *message.Message, topic string, cause error, logger zerolog.Logger) error {
	out := msg.Copy()
	out.Metadata.Set(middleware.ReasonForPoisonedKey, cause.Error())
	out.Metadata.Set(middleware.PoisonedTopicKey, topic)
	if err := pub.Publish(TopicPoison, out); err != nil {
		logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Failed to publish to poison topic")
		return errors.Join(cause, err)
	}
	return nil
}

// messageContext returns msg's context carrying its correlation id, or a
// fresh one when the producer did not set it.
func messageContext(msg *message.Message) context.Context {
	ctx := msg.Context()
	if id := msg.Metadata.Get(MetadataCorrelationID); id != "" {
		return logging.ContextWithCorrelationID(ctx, id)
	}
	return logging.ContextWithNewCorrelationID(ctx)
}
