// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package refdata

import (
	"context"
	"errors"

	"github.com/tomtom215/killfeed/internal/esi"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
)

// System resolves a solar system and walks up to its constellation and
// region. ok is false only when the system itself is unknown; a failed
// constellation or region lookup leaves those fields zero.
func (c *Cache) System(ctx context.Context, id int64) (models.SystemInfo, bool) {
	sys, ok := c.Resolve(ctx, KindSystem, id)
	if !ok {
		return models.SystemInfo{ID: id}, false
	}
	info := models.SystemInfo{ID: id, Name: sys.Name, ConstellationID: sys.ParentID}

	if con, ok := c.Resolve(ctx, KindConstellation, sys.ParentID); ok {
		info.ConstellationName = con.Name
		info.RegionID = con.ParentID
		if reg, ok := c.Resolve(ctx, KindRegion, con.ParentID); ok {
			info.RegionName = reg.Name
		}
	}
	return info, true
}

// Ship resolves a ship type and its group.
func (c *Cache) Ship(ctx context.Context, typeID int64) (models.ShipInfo, bool) {
	e, ok := c.Resolve(ctx, KindShip, typeID)
	if !ok {
		return models.ShipInfo{TypeID: typeID}, false
	}
	return models.ShipInfo{TypeID: typeID, Name: e.Name, GroupID: e.ParentID}, true
}

// Name resolves the display name of an entity.
func (c *Cache) Name(ctx context.Context, kind Kind, id int64) (string, bool) {
	e, ok := c.Resolve(ctx, kind, id)
	if !ok {
		return "", false
	}
	return e.Name, true
}

// Names resolves several character, corporation, alliance and faction refs
// with one ESI request for all the misses. Unknown refs are absent from the
// result. ESI fails the whole batch if one id is invalid; in that case each
// ref is resolved on its own.
func (c *Cache) Names(ctx context.Context, refs []Ref) map[Ref]string {
	out := make(map[Ref]string, len(refs))
	var missing []Ref
	seen := make(map[int64]bool)

	c.mu.RLock()
	for _, r := range refs {
		if r.ID <= 0 || !r.Kind.named() {
			continue
		}
		if e, ok := c.entries[r]; ok {
			out[r] = e.Name
			metrics.RecordRefDataLookup(string(r.Kind), "hit")
			continue
		}
		if _, nf := c.notFound[r]; nf || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		missing = append(missing, r)
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return out
	}

	ids := make([]int64, len(missing))
	for i, r := range missing {
		ids[i] = r.ID
	}
	names, err := c.resolver.Names(ctx, ids)
	if err != nil {
		if !errors.Is(err, esi.ErrNotFound) {
			logging.Ctx(ctx).Warn().Err(err).Int("ids", len(ids)).Msg("Batch name lookup failed")
		}
		for _, r := range missing {
			if name, ok := c.Name(ctx, r.Kind, r.ID); ok {
				out[r] = name
			}
		}
		return out
	}

	for _, n := range names {
		e := Entity{Kind: Kind(n.Category), ID: n.ID, Name: n.Name}
		if !e.Kind.named() {
			continue
		}
		c.remember(e)
		metrics.RecordRefDataLookup(string(e.Kind), "miss")
	}
	for _, r := range refs {
		if _, done := out[r]; done {
			continue
		}
		c.mu.RLock()
		e, ok := c.entries[r]
		c.mu.RUnlock()
		if ok {
			out[r] = e.Name
		}
	}
	return out
}
