// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
)

// memBackend is an in-memory Backend that can be told to fail.
type memBackend struct {
	mu      sync.Mutex
	records map[string][]byte
	saves   int
	failErr error
}

func newMemBackend() *memBackend {
	return &memBackend{records: map[string][]byte{}}
}

func (b *memBackend) Name() string { return "memory" }

func (b *memBackend) LoadAll(context.Context) (map[string][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string][]byte, len(b.records))
	for k, v := range b.records {
		out[k] = v
	}
	return out, nil
}

func (b *memBackend) Save(_ context.Context, guildID string, record []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	if b.failErr != nil {
		return b.failErr
	}
	b.records[guildID] = record
	return nil
}

func (b *memBackend) Delete(_ context.Context, guildID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	delete(b.records, guildID)
	return nil
}

var chan1 = models.Destination{GuildID: "100", ChannelID: "200"}

func corpSub(dest models.Destination, id int64, minValue float64, dir models.KillDirection) models.Subscription {
	return models.Subscription{
		Type:        models.SubjectCorporation,
		ID:          id,
		MinValue:    minValue,
		Direction:   dir,
		Destination: dest,
	}
}

func TestSubscribeReplacesSameKey(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemBackend())

	if err := s.Subscribe(ctx, corpSub(chan1, 500, 0, models.DirectionBoth)); err != nil {
		t.Fatal(err)
	}
	second := corpSub(chan1, 500, 1e6, models.DirectionLosses)
	second.Location = models.LocationFilter{Kind: models.LocationRegion, IDs: []int64{10000002, 10000002, 10000043}}
	if err := s.Subscribe(ctx, second); err != nil {
		t.Fatal(err)
	}

	subs := s.ListForChannel(chan1)
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
	got := subs[0]
	if got.MinValue != 1e6 || got.Direction != models.DirectionLosses {
		t.Errorf("filters not replaced: %+v", got)
	}
	if len(got.Location.IDs) != 2 {
		t.Errorf("location ids not deduplicated: %v", got.Location.IDs)
	}
}

func TestSubscribeRejectsInvalid(t *testing.T) {
	s := NewStore(newMemBackend())
	bad := models.Subscription{Type: models.SubjectCorporation, Destination: chan1}
	if err := s.Subscribe(context.Background(), bad); !errors.Is(err, ErrInvalidSubscription) {
		t.Fatalf("expected ErrInvalidSubscription, got %v", err)
	}
	if s.Count() != 0 {
		t.Error("invalid subscription was stored")
	}
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	s := NewStore(b)
	_ = s.Subscribe(ctx, corpSub(chan1, 500, 0, ""))
	_ = s.Subscribe(ctx, models.Subscription{Type: models.SubjectPublic, Destination: chan1})

	removed, err := s.Unsubscribe(ctx, chan1, models.SubscriptionKey{Type: models.SubjectCorporation, ID: 500})
	if err != nil || !removed {
		t.Fatalf("Unsubscribe = %v, %v", removed, err)
	}
	saves := b.saves

	removed, err = s.Unsubscribe(ctx, chan1, models.SubscriptionKey{Type: models.SubjectCorporation, ID: 500})
	if err != nil || removed {
		t.Fatalf("second Unsubscribe = %v, %v", removed, err)
	}
	if b.saves != saves {
		t.Error("no-op unsubscribe must not write")
	}
	if subs := s.ListForChannel(chan1); len(subs) != 1 || subs[0].Type != models.SubjectPublic {
		t.Errorf("unexpected remaining subscriptions: %+v", subs)
	}
}

func TestUnsubscribeAllEmptiesChannel(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemBackend())
	other := models.Destination{GuildID: "100", ChannelID: "201"}
	for _, id := range []int64{1, 2, 3} {
		_ = s.Subscribe(ctx, corpSub(chan1, id, 0, ""))
	}
	_ = s.Subscribe(ctx, corpSub(other, 1, 0, ""))

	n, err := s.UnsubscribeAll(ctx, chan1)
	if err != nil || n != 3 {
		t.Fatalf("UnsubscribeAll = %d, %v", n, err)
	}
	if subs := s.ListForChannel(chan1); len(subs) != 0 {
		t.Errorf("expected empty channel, got %+v", subs)
	}
	if len(s.ListForChannel(other)) != 1 {
		t.Error("other channel must be untouched")
	}
}

func TestRetractGuild(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	s := NewStore(b)
	_ = s.Subscribe(ctx, corpSub(chan1, 1, 0, ""))
	_ = s.Subscribe(ctx, corpSub(models.Destination{GuildID: "101", ChannelID: "300"}, 1, 0, ""))

	if err := s.RetractGuild(ctx, "100"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.ListAll()["100"]; ok {
		t.Error("guild still indexed")
	}
	if _, ok := b.records["100"]; ok {
		t.Error("guild record still persisted")
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestSnapshotIsNotModifiedByLaterWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemBackend())
	_ = s.Subscribe(ctx, corpSub(chan1, 1, 0, ""))

	snap := s.ListAll()
	_ = s.Subscribe(ctx, corpSub(chan1, 2, 0, ""))
	_, _ = s.UnsubscribeAll(ctx, chan1)

	if snap.Len() != 1 {
		t.Errorf("snapshot changed: %d subscriptions", snap.Len())
	}
	if s.ListAll().Len() != 0 {
		t.Error("live index should be empty")
	}
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.failErr = errors.New("disk full")
	s := NewStore(b)

	before := testutil.ToFloat64(metrics.SubscriptionPersistErrors.WithLabelValues("memory"))
	err := s.Subscribe(ctx, corpSub(chan1, 1, 0, ""))
	if !errors.Is(err, b.failErr) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(s.ListForChannel(chan1)) != 1 {
		t.Error("mutation must survive a failed write")
	}
	if after := testutil.ToFloat64(metrics.SubscriptionPersistErrors.WithLabelValues("memory")); after != before+1 {
		t.Errorf("persist errors = %v, want %v", after, before+1)
	}
}

func TestLoadRestoresIndex(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	s := NewStore(b)
	sub := corpSub(chan1, 500, 2500, models.DirectionKills)
	sub.Location = models.LocationFilter{Kind: models.LocationSystem, IDs: []int64{30000142}}
	_ = s.Subscribe(ctx, sub)
	_ = s.Subscribe(ctx, models.Subscription{Type: models.SubjectPublic, Destination: chan1})

	b.records["999"] = []byte(`{not json`)

	reloaded := NewStore(b)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	subs := reloaded.ListForChannel(chan1)
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscriptions, got %+v", subs)
	}
	if subs[0].Type != models.SubjectPublic {
		t.Errorf("expected public first, got %+v", subs[0])
	}
	got := subs[1]
	if got.ID != 500 || got.MinValue != 2500 || got.Direction != models.DirectionKills ||
		got.Location.Kind != models.LocationSystem || len(got.Location.IDs) != 1 ||
		got.Location.IDs[0] != 30000142 || got.Destination != chan1 {
		t.Errorf("reloaded subscription differs: %+v", got)
	}
}

func TestConcurrentSubscribers(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemBackend())

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			dest := models.Destination{GuildID: "100", ChannelID: "200"}
			if id%2 == 0 {
				dest.GuildID = "101"
			}
			_ = s.Subscribe(ctx, corpSub(dest, id, 0, ""))
			_ = s.ListAll().Len()
		}(int64(i))
	}
	wg.Wait()

	if s.Count() != 50 || s.ListAll().Len() != 50 {
		t.Errorf("Count = %d, index = %d", s.Count(), s.ListAll().Len())
	}
}
