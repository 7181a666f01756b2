// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package subscription holds every channel's kill subscriptions.
//
// The Store keeps an in-memory index of guild -> channel -> subscription and
// persists one record per guild through a Backend. Reads are served from an
// immutable snapshot that is replaced on every mutation, so the match engine
// can scan it while commands modify the store. Writes to one guild are
// serialized together with their persistence.
package subscription

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
)

// ErrInvalidSubscription wraps validation failures from Subscribe.
var ErrInvalidSubscription = errors.New("invalid subscription")

// Channel is the set of subscriptions of one channel.
type Channel map[models.SubscriptionKey]models.Subscription

// Guild maps channel ids to their subscriptions.
type Guild map[string]Channel

// Index maps guild ids to guilds. An Index returned by the Store is a
// snapshot and must not be modified.
type Index map[string]Guild

// Len counts the subscriptions in the index.
func (idx Index) Len() int {
	n := 0
	for _, g := range idx {
		n += g.Len()
	}
	return n
}

// Len counts the subscriptions in the guild.
func (g Guild) Len() int {
	n := 0
	for _, ch := range g {
		n += len(ch)
	}
	return n
}

func (g Guild) clone() Guild {
	out := make(Guild, len(g))
	for id, ch := range g {
		c := make(Channel, len(ch))
		for k, s := range ch {
			c[k] = s
		}
		out[id] = c
	}
	return out
}

// Store is the subscription index. It is safe for concurrent use.
type Store struct {
	backend Backend
	logger  zerolog.Logger

	mu    sync.RWMutex
	index Index
	count int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewStore creates an empty store. Call Load to read persisted guilds.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		logger:  logging.WithComponent("subscriptions"),
		index:   make(Index),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) lockGuild(guildID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[guildID] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Load replaces the index with the persisted records. Records that are not
// valid JSON are skipped and logged; individual entries are migrated.
func (s *Store) Load(ctx context.Context) error {
	records, err := s.backend.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load subscriptions from %s: %w", s.backend.Name(), err)
	}

	idx := make(Index, len(records))
	for guildID, data := range records {
		g, err := decodeGuild(guildID, data, s.logger)
		if err != nil {
			s.logger.Error().Err(err).Str("guild_id", guildID).Msg("Skipping unreadable guild record")
			continue
		}
		if len(g) > 0 {
			idx[guildID] = g
		}
	}

	s.mu.Lock()
	s.index = idx
	s.count = idx.Len()
	metrics.SubscriptionsActive.Set(float64(s.count))
	s.mu.Unlock()

	s.logger.Info().
		Int("guilds", len(idx)).
		Int("subscriptions", s.count).
		Str("backend", s.backend.Name()).
		Msg("Subscriptions loaded")
	return nil
}

// update applies fn to a copy of the guild, publishes the result and
// persists it. fn reports whether it changed anything; nothing is written
// otherwise. A failed write keeps the in-memory change.
func (s *Store) update(ctx context.Context, guildID string, fn func(Guild) bool) error {
	unlock := s.lockGuild(guildID)
	defer unlock()

	s.mu.RLock()
	next := s.index[guildID].clone()
	s.mu.RUnlock()

	if !fn(next) {
		return nil
	}
	s.publish(guildID, next)

	data, err := encodeGuild(next)
	if err == nil {
		err = s.backend.Save(ctx, guildID, data)
	}
	if err != nil {
		metrics.RecordPersistError(s.backend.Name())
		logging.Ctx(ctx).Error().Err(err).
			Str("guild_id", guildID).
			Str("backend", s.backend.Name()).
			Msg("Failed to persist guild subscriptions; in-memory state kept")
		return fmt.Errorf("persist guild %s: %w", guildID, err)
	}
	return nil
}

// publish swaps in a new snapshot with guild replaced. Existing snapshots
// are left untouched.
func (s *Store) publish(guildID string, g Guild) {
	for id, ch := range g {
		if len(ch) == 0 {
			delete(g, id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(Index, len(s.index)+1)
	for id, old := range s.index {
		next[id] = old
	}
	s.count -= s.index[guildID].Len()
	if len(g) == 0 {
		delete(next, guildID)
	} else {
		next[guildID] = g
		s.count += g.Len()
	}
	s.index = next
	metrics.SubscriptionsActive.Set(float64(s.count))
}

// Subscribe adds sub to its channel, replacing any subscription with the
// same key. The guild record is written before Subscribe returns.
func (s *Store) Subscribe(ctx context.Context, sub models.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubscription, err)
	}
	if sub.Location.Active() {
		sub.Location.IDs = normalizeIDs(sub.Location.IDs)
	} else {
		sub.Location = models.LocationFilter{Kind: models.LocationNone}
	}

	dest := sub.Destination
	return s.update(ctx, dest.GuildID, func(g Guild) bool {
		ch, ok := g[dest.ChannelID]
		if !ok {
			ch = make(Channel)
			g[dest.ChannelID] = ch
		}
		ch[sub.Key()] = sub
		return true
	})
}

// Unsubscribe removes one subscription. Removing a subscription that does
// not exist is not an error; removed reports whether one was found.
func (s *Store) Unsubscribe(ctx context.Context, dest models.Destination, key models.SubscriptionKey) (bool, error) {
	removed := false
	err := s.update(ctx, dest.GuildID, func(g Guild) bool {
		ch := g[dest.ChannelID]
		if _, ok := ch[key]; !ok {
			return false
		}
		delete(ch, key)
		removed = true
		return true
	})
	return removed, err
}

// UnsubscribeAll removes every subscription of a channel and returns how
// many there were.
func (s *Store) UnsubscribeAll(ctx context.Context, dest models.Destination) (int, error) {
	n := 0
	err := s.update(ctx, dest.GuildID, func(g Guild) bool {
		n = len(g[dest.ChannelID])
		if n == 0 {
			return false
		}
		delete(g, dest.ChannelID)
		return true
	})
	return n, err
}

// RetractGuild removes a guild and its persisted record.
func (s *Store) RetractGuild(ctx context.Context, guildID string) error {
	unlock := s.lockGuild(guildID)
	defer unlock()

	s.publish(guildID, nil)

	if err := s.backend.Delete(ctx, guildID); err != nil {
		metrics.RecordPersistError(s.backend.Name())
		logging.Ctx(ctx).Error().Err(err).Str("guild_id", guildID).Msg("Failed to delete guild record")
		return fmt.Errorf("delete guild %s: %w", guildID, err)
	}
	return nil
}

// ListForChannel returns the channel's subscriptions ordered by subject
// type and id.
func (s *Store) ListForChannel(dest models.Destination) []models.Subscription {
	s.mu.RLock()
	ch := s.index[dest.GuildID][dest.ChannelID]
	s.mu.RUnlock()

	out := make([]models.Subscription, 0, len(ch))
	for _, sub := range ch {
		out = append(out, sub)
	}
	slices.SortFunc(out, func(a, b models.Subscription) int {
		if c := cmp.Compare(slices.Index(models.SubjectTypes, a.Type), slices.Index(models.SubjectTypes, b.Type)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// ListAll returns the current snapshot.
func (s *Store) ListAll() Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Count returns the number of subscriptions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Backend returns the persistence backend name.
func (s *Store) Backend() string {
	return s.backend.Name()
}
