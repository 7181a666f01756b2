// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/killfeed/internal/models"
	"github.com/tomtom215/killfeed/internal/normalizer"
	"github.com/tomtom215/killfeed/internal/subscription"
)

type fakeNormalizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNormalizer) Normalize(_ context.Context, ev *normalizer.RawEvent) (*models.Kill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Kill{
		ID:       ev.KillID,
		SystemID: 30000142,
		Value:    models.Value{Total: 1_000_000},
		URL:      "https://zkillboard.com/kill/1/",
	}, nil
}

func (f *fakeNormalizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type passEnricher struct{}

func (passEnricher) Enrich(_ context.Context, kill *models.Kill) (*models.EnrichedKill, error) {
	return &models.EnrichedKill{Kill: *kill}, nil
}

type staticIndex subscription.Index

func (s staticIndex) ListAll() subscription.Index { return subscription.Index(s) }

func publicIn(channels ...string) staticIndex {
	key := models.SubscriptionKey{Type: models.SubjectPublic}
	guild := subscription.Guild{}
	for _, ch := range channels {
		guild[ch] = subscription.Channel{key: {
			Type:        models.SubjectPublic,
			Destination: models.Destination{GuildID: "g1", ChannelID: ch},
		}}
	}
	return staticIndex{"g1": guild}
}

type recordingDeliverer struct {
	mu       sync.Mutex
	calls    int
	failures int
	tasks    chan models.DeliveryTask
}

func newRecordingDeliverer(failures int) *recordingDeliverer {
	return &recordingDeliverer{failures: failures, tasks: make(chan models.DeliveryTask, 16)}
}

func (r *recordingDeliverer) Deliver(_ context.Context, task *models.DeliveryTask) error {
	r.mu.Lock()
	r.calls++
	fail := r.failures != 0
	if r.failures > 0 {
		r.failures--
	}
	r.mu.Unlock()
	if fail {
		return errors.New("discord unavailable")
	}
	r.tasks <- *task
	return nil
}

func (r *recordingDeliverer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type harness struct {
	transport *Transport
	poisoned  <-chan *message.Message
}

func startPipeline(t *testing.T, n KillNormalizer, idx IndexSource, d Deliverer) *harness {
	t.Helper()

	transport := NewChannelTransport(16, nil)
	t.Cleanup(func() { _ = transport.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	poisoned, err := transport.Subscriber.Subscribe(ctx, TopicPoison)
	if err != nil {
		t.Fatalf("subscribe poison: %v", err)
	}

	cfg := RouterConfig{
		CloseTimeout:     time.Second,
		RetryMaxRetries:  2,
		RetryInterval:    10 * time.Millisecond,
		PoisonQueueTopic: TopicPoison,
	}
	router, err := NewRouter(cfg, transport.Publisher, nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	shards := 4
	proc := NewProcessor(n, passEnricher{}, idx, transport.Publisher, shards)
	disp := NewDispatcher(d, transport.Publisher)
	RegisterHandlers(router, transport, proc, disp, shards)

	go func() { _ = router.Run(ctx) }()
	t.Cleanup(func() { _ = router.Close() })

	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
	return &harness{transport: transport, poisoned: poisoned}
}

func (h *harness) publishRaw(t *testing.T, killID int64) {
	t.Helper()
	ev := &normalizer.RawEvent{Source: normalizer.SourceRedisQ, KillID: killID, ReceivedAt: time.Now()}
	payload, err := ev.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataCorrelationID, "test")
	if err := h.transport.Publisher.Publish(TopicRaw, msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestKillFansOutToEveryMatchingChannel(t *testing.T) {
	deliverer := newRecordingDeliverer(0)
	h := startPipeline(t, &fakeNormalizer{}, publicIn("c1", "c2", "c3"), deliverer)

	h.publishRaw(t, 1001)

	got := map[string]bool{}
	for len(got) < 3 {
		select {
		case task := <-deliverer.tasks:
			if task.Kill.Kill.ID != 1001 {
				t.Errorf("task kill = %d, want 1001", task.Kill.Kill.ID)
			}
			if task.Tag != models.TagNeutral {
				t.Errorf("task tag = %q, want neutral", task.Tag)
			}
			got[task.Destination.ChannelID] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("delivered to %v, want c1, c2 and c3", got)
		}
	}
}

func TestMalformedKillIsPoisonedWithoutRetry(t *testing.T) {
	norm := &fakeNormalizer{err: normalizer.ErrNoFinalBlow}
	deliverer := newRecordingDeliverer(0)
	h := startPipeline(t, norm, publicIn("c1"), deliverer)

	h.publishRaw(t, 7)

	select {
	case msg := <-h.poisoned:
		msg.Ack()
		if topic := msg.Metadata.Get(middleware.PoisonedTopicKey); topic != TopicRaw {
			t.Errorf("poisoned topic = %q, want %q", topic, TopicRaw)
		}
		if msg.Metadata.Get(middleware.ReasonForPoisonedKey) == "" {
			t.Error("poisoned message has no reason")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("kill without final blow was not poisoned")
	}
	if calls := norm.Calls(); calls != 1 {
		t.Errorf("Normalize called %d times, want 1", calls)
	}
	if calls := deliverer.Calls(); calls != 0 {
		t.Errorf("Deliver called %d times, want 0", calls)
	}
}

func TestTransientDeliveryFailureIsRetried(t *testing.T) {
	deliverer := newRecordingDeliverer(1)
	h := startPipeline(t, &fakeNormalizer{}, publicIn("c1"), deliverer)

	h.publishRaw(t, 42)

	select {
	case task := <-deliverer.tasks:
		if task.Destination.ChannelID != "c1" {
			t.Errorf("delivered to %q, want c1", task.Destination.ChannelID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("task was not retried")
	}
	if calls := deliverer.Calls(); calls != 2 {
		t.Errorf("Deliver called %d times, want 2", calls)
	}
}

func TestExhaustedDeliveryIsPoisoned(t *testing.T) {
	deliverer := newRecordingDeliverer(-1)
	h := startPipeline(t, &fakeNormalizer{}, publicIn("c1"), deliverer)

	h.publishRaw(t, 43)

	select {
	case msg := <-h.poisoned:
		msg.Ack()
		want := DeliveryTopic(ShardFor("c1", 4))
		if topic := msg.Metadata.Get(middleware.PoisonedTopicKey); topic != want {
			t.Errorf("poisoned topic = %q, want %q", topic, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("exhausted task was not poisoned")
	}
	if calls := deliverer.Calls(); calls != 3 {
		t.Errorf("Deliver called %d times, want 3 (one attempt plus two retries)", calls)
	}
}

func TestUnmatchedKillProducesNoTasks(t *testing.T) {
	norm := &fakeNormalizer{}
	deliverer := newRecordingDeliverer(0)
	h := startPipeline(t, norm, staticIndex{}, deliverer)

	h.publishRaw(t, 5)

	deadline := time.Now().Add(5 * time.Second)
	for norm.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if norm.Calls() != 1 {
		t.Fatalf("Normalize called %d times, want 1", norm.Calls())
	}
	select {
	case task := <-deliverer.tasks:
		t.Errorf("unexpected delivery %+v", task)
	case <-time.After(100 * time.Millisecond):
	}
}
