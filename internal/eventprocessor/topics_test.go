// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package eventprocessor

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
)

func TestShardForIsStableAndInRange(t *testing.T) {
	t.Parallel()

	const shards = DefaultDeliveryShards
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		ch := strconv.Itoa(100000000000000000 + i)
		s := ShardFor(ch, shards)
		if s < 0 || s >= shards {
			t.Fatalf("ShardFor(%q) = %d, out of range", ch, s)
		}
		if again := ShardFor(ch, shards); again != s {
			t.Fatalf("ShardFor(%q) not stable: %d then %d", ch, s, again)
		}
		seen[s] = true
	}
	if len(seen) != shards {
		t.Errorf("1000 channels landed on %d of %d shards", len(seen), shards)
	}
}

func TestShardForKnownValues(t *testing.T) {
	t.Parallel()

	// Reference murmur3 x86_32 values; a changed mapping would strand
	// messages on the old shards' durable consumers.
	tests := []struct {
		channel string
		shards  int
		want    int
	}{
		{"1061239523000000000", 10, 0},
		{"428109124601004042", 10, 2},
		{"12345678", 10, 4},
		{"c", 10, 9},
		{"1", 10, 9},
		{"12345678", 7, 1},
	}
	for _, tt := range tests {
		if got := ShardFor(tt.channel, tt.shards); got != tt.want {
			t.Errorf("ShardFor(%q, %d) = %d, want %d", tt.channel, tt.shards, got, tt.want)
		}
	}
}

func TestShardForSingleShard(t *testing.T) {
	t.Parallel()

	for _, n := range []int{-1, 0, 1} {
		if got := ShardFor("123", n); got != 0 {
			t.Errorf("ShardFor(_, %d) = %d, want 0", n, got)
		}
	}
}

func TestDeliveryTopics(t *testing.T) {
	t.Parallel()

	got := DeliveryTopics(3)
	want := []string{"kills.deliver.0", "kills.deliver.1", "kills.deliver.2"}
	if len(got) != len(want) {
		t.Fatalf("DeliveryTopics(3) = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DeliveryTopics(3)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if n := len(DeliveryTopics(0)); n != 1 {
		t.Errorf("DeliveryTopics(0) has %d topics, want 1", n)
	}
}

func TestDurableName(t *testing.T) {
	t.Parallel()

	if got := durableName("killfeed", "kills.deliver.3"); got != "killfeed_kills_deliver_3" {
		t.Errorf("durableName() = %q", got)
	}
	if got := durableName("", "kills.raw"); got != "" {
		t.Errorf("durableName() without prefix = %q, want empty", got)
	}
}

type fakeJetStream struct {
	lookupErr error
	created   []jetstream.StreamConfig
	updated   []jetstream.StreamConfig
}

func (f *fakeJetStream) Stream(context.Context, string) (jetstream.Stream, error) {
	return nil, f.lookupErr
}

func (f *fakeJetStream) CreateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.created = append(f.created, cfg)
	return nil, nil
}

func (f *fakeJetStream) UpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.updated = append(f.updated, cfg)
	return nil, nil
}

func TestEnsureStream(t *testing.T) {
	t.Parallel()

	cfg := DefaultStreamConfig()

	t.Run("creates missing stream", func(t *testing.T) {
		js := &fakeJetStream{lookupErr: jetstream.ErrStreamNotFound}
		if err := EnsureStream(context.Background(), js, cfg); err != nil {
			t.Fatalf("EnsureStream() error = %v", err)
		}
		if len(js.created) != 1 || len(js.updated) != 0 {
			t.Fatalf("created %d, updated %d", len(js.created), len(js.updated))
		}
		got := js.created[0]
		if got.Name != "KILLFEED" || len(got.Subjects) != 1 || got.Subjects[0] != "kills.>" {
			t.Errorf("stream config = %+v", got)
		}
		if got.Duplicates != cfg.DuplicateWindow {
			t.Errorf("Duplicates = %v, want %v", got.Duplicates, cfg.DuplicateWindow)
		}
	})

	t.Run("updates existing stream", func(t *testing.T) {
		js := &fakeJetStream{}
		if err := EnsureStream(context.Background(), js, cfg); err != nil {
			t.Fatalf("EnsureStream() error = %v", err)
		}
		if len(js.updated) != 1 || len(js.created) != 0 {
			t.Fatalf("created %d, updated %d", len(js.created), len(js.updated))
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		boom := errors.New("no responders")
		js := &fakeJetStream{lookupErr: boom}
		if err := EnsureStream(context.Background(), js, cfg); !errors.Is(err, boom) {
			t.Fatalf("EnsureStream() error = %v, want %v", err, boom)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		if err := EnsureStream(context.Background(), &fakeJetStream{}, StreamConfig{}); err == nil {
			t.Fatal("EnsureStream() with empty config succeeded")
		}
	})
}
