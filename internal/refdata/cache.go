// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package refdata caches EVE reference data: systems and their constellation
// and region, ship types and their group, and the names of characters,
// corporations, alliances and factions.
//
// Entries are loaded from disk at startup, fetched from ESI on first use and
// never evicted; EVE reference data is close to static. A lookup that fails
// returns "absent" and is retried on the next request. New entries mark the
// cache dirty and a debounced flush rewrites the affected kind files.
package refdata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/killfeed/internal/esi"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
)

// Kind is a category of reference entity.
type Kind string

const (
	KindSystem        Kind = "system"
	KindConstellation Kind = "constellation"
	KindRegion        Kind = "region"
	KindShip          Kind = "ship"
	KindCharacter     Kind = "character"
	KindCorporation   Kind = "corporation"
	KindAlliance      Kind = "alliance"
	KindFaction       Kind = "faction"
)

// Kinds lists every kind; each has its own cache file.
var Kinds = []Kind{
	KindSystem, KindConstellation, KindRegion, KindShip,
	KindCharacter, KindCorporation, KindAlliance, KindFaction,
}

func (k Kind) named() bool {
	switch k {
	case KindCharacter, KindCorporation, KindAlliance, KindFaction:
		return true
	default:
		return false
	}
}

// Entity is one cached reference entry. ParentID is the constellation of a
// system, the region of a constellation and the group of a ship type.
type Entity struct {
	Kind     Kind
	ID       int64
	Name     string
	ParentID int64
}

// Ref names an entity without its data.
type Ref struct {
	Kind Kind
	ID   int64
}

func (r Ref) String() string {
	return string(r.Kind) + "/" + strconv.FormatInt(r.ID, 10)
}

func parseRef(s string) (Ref, error) {
	kind, id, ok := strings.Cut(s, "/")
	if !ok {
		return Ref{}, fmt.Errorf("malformed cache key %q", s)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Ref{}, fmt.Errorf("malformed cache key %q: %w", s, err)
	}
	return Ref{Kind: Kind(kind), ID: n}, nil
}

// Resolver fetches reference data from ESI. *esi.Client implements it.
type Resolver interface {
	System(ctx context.Context, id int64) (*esi.System, error)
	Constellation(ctx context.Context, id int64) (*esi.Constellation, error)
	Region(ctx context.Context, id int64) (*esi.Region, error)
	Type(ctx context.Context, id int64) (*esi.Type, error)
	Names(ctx context.Context, ids []int64) ([]esi.Name, error)
}

// Cache is the reference data cache. It is safe for concurrent use.
type Cache struct {
	resolver Resolver
	store    *fileStore
	delay    time.Duration
	logger   zerolog.Logger

	mu       sync.RWMutex
	entries  map[Ref]Entity
	notFound map[Ref]struct{}
	dirty    map[Kind]bool

	group  singleflight.Group
	notify chan struct{}
}

// Config configures a Cache.
type Config struct {
	// Dir holds the per-kind cache files. Empty disables persistence.
	Dir string
	// FlushDelay is the debounce window between the first new entry and the write.
	FlushDelay time.Duration
}

// New creates an empty cache. Call Load to read persisted entries.
func New(resolver Resolver, cfg Config) *Cache {
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 5 * time.Second
	}
	c := &Cache{
		resolver: resolver,
		delay:    cfg.FlushDelay,
		logger:   logging.WithComponent("refdata"),
		entries:  make(map[Ref]Entity),
		notFound: make(map[Ref]struct{}),
		dirty:    make(map[Kind]bool),
		notify:   make(chan struct{}, 1),
	}
	if cfg.Dir != "" {
		c.store = &fileStore{dir: cfg.Dir}
	}
	return c
}

// Resolve returns the entity for ref, fetching it on a miss. ok is false
// when the entity is unknown or the lookup failed.
func (c *Cache) Resolve(ctx context.Context, kind Kind, id int64) (Entity, bool) {
	if id <= 0 {
		return Entity{}, false
	}
	ref := Ref{Kind: kind, ID: id}

	c.mu.RLock()
	e, hit := c.entries[ref]
	_, missing := c.notFound[ref]
	c.mu.RUnlock()
	if hit {
		metrics.RecordRefDataLookup(string(kind), "hit")
		return e, true
	}
	if missing {
		metrics.RecordRefDataLookup(string(kind), "unknown")
		return Entity{}, false
	}

	v, err, _ := c.group.Do(ref.String(), func() (interface{}, error) {
		// another caller may have stored it while we waited for the group
		c.mu.RLock()
		e, ok := c.entries[ref]
		c.mu.RUnlock()
		if ok {
			return e, nil
		}
		e, err := c.fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		c.remember(e)
		return e, nil
	})
	if err != nil {
		metrics.RecordRefDataLookup(string(kind), "unknown")
		if errors.Is(err, esi.ErrNotFound) {
			c.mu.Lock()
			c.notFound[ref] = struct{}{}
			c.mu.Unlock()
			c.logger.Debug().Str("ref", ref.String()).Msg("Reference entity does not exist")
		} else {
			logging.Ctx(ctx).Warn().Err(err).Str("ref", ref.String()).Msg("Reference lookup failed")
		}
		return Entity{}, false
	}
	metrics.RecordRefDataLookup(string(kind), "miss")
	return v.(Entity), true
}

func (c *Cache) fetch(ctx context.Context, ref Ref) (Entity, error) {
	e := Entity{Kind: ref.Kind, ID: ref.ID}
	switch ref.Kind {
	case KindSystem:
		s, err := c.resolver.System(ctx, ref.ID)
		if err != nil {
			return e, err
		}
		e.Name, e.ParentID = s.Name, s.ConstellationID
	case KindConstellation:
		s, err := c.resolver.Constellation(ctx, ref.ID)
		if err != nil {
			return e, err
		}
		e.Name, e.ParentID = s.Name, s.RegionID
	case KindRegion:
		r, err := c.resolver.Region(ctx, ref.ID)
		if err != nil {
			return e, err
		}
		e.Name = r.Name
	case KindShip:
		t, err := c.resolver.Type(ctx, ref.ID)
		if err != nil {
			return e, err
		}
		e.Name, e.ParentID = t.Name, t.GroupID
	case KindCharacter, KindCorporation, KindAlliance, KindFaction:
		names, err := c.resolver.Names(ctx, []int64{ref.ID})
		if err != nil {
			return e, err
		}
		for _, n := range names {
			if n.ID == ref.ID && Kind(n.Category) == ref.Kind {
				e.Name = n.Name
				return e, nil
			}
		}
		return e, fmt.Errorf("%s: %w", ref, esi.ErrNotFound)
	default:
		return e, fmt.Errorf("unsupported reference kind %q", ref.Kind)
	}
	return e, nil
}

// remember records a resolved entity and schedules a flush.
func (c *Cache) remember(e Entity) {
	c.mu.Lock()
	c.entries[Ref{Kind: e.Kind, ID: e.ID}] = e
	c.dirty[e.Kind] = true
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of cached entities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Dirty reports whether any kind has unflushed entries.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.dirty {
		if d {
			return true
		}
	}
	return false
}
