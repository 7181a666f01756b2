// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package normalizer

import (
	"context"
	"fmt"

	"github.com/tomtom215/killfeed/internal/models"
	"github.com/tomtom215/killfeed/internal/refdata"
)

// Lookup is the reference data the enricher needs. *refdata.Cache
// implements it.
type Lookup interface {
	System(ctx context.Context, id int64) (models.SystemInfo, bool)
	Ship(ctx context.Context, typeID int64) (models.ShipInfo, bool)
	Names(ctx context.Context, refs []refdata.Ref) map[refdata.Ref]string
}

// Enricher attaches reference data to kills.
type Enricher struct {
	lookup Lookup
}

// NewEnricher creates an Enricher backed by lookup.
func NewEnricher(lookup Lookup) *Enricher {
	return &Enricher{lookup: lookup}
}

// Enrich resolves the location, ships and names of a kill. Reference data
// that cannot be resolved is left zero: renderers fall back to raw ids and
// an unknown group never matches. The only error is a cancelled context.
func (e *Enricher) Enrich(ctx context.Context, kill *models.Kill) (*models.EnrichedKill, error) {
	if kill == nil {
		return nil, fmt.Errorf("%w: nil kill", ErrMalformedKill)
	}

	out := &models.EnrichedKill{Kill: *kill}
	out.System, _ = e.lookup.System(ctx, kill.SystemID)

	ships := make(map[int64]models.ShipInfo)
	ship := func(typeID int64) models.ShipInfo {
		if typeID <= 0 {
			return models.ShipInfo{}
		}
		if s, ok := ships[typeID]; ok {
			return s
		}
		s, _ := e.lookup.Ship(ctx, typeID)
		ships[typeID] = s
		return s
	}

	out.VictimInfo.Ship = ship(kill.Victim.ShipTypeID)
	out.AttackerGroups = make([]int64, len(kill.Attackers))
	for i := range kill.Attackers {
		out.AttackerGroups[i] = ship(kill.Attackers[i].ShipTypeID).GroupID
	}

	fb, hasFinalBlow := kill.FinalBlow()
	refs := partyRefs(kill.Victim.Party)
	if hasFinalBlow {
		refs = append(refs, partyRefs(fb.Party)...)
	}
	names := e.lookup.Names(ctx, refs)
	applyNames(&out.VictimInfo, kill.Victim.Party, names)

	if hasFinalBlow {
		info := models.PartyInfo{Ship: ship(fb.ShipTypeID)}
		applyNames(&info, fb.Party, names)
		out.FinalBlowInfo = &info
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enrich kill %d: %w", kill.ID, err)
	}
	return out, nil
}

func partyRefs(p models.Party) []refdata.Ref {
	refs := make([]refdata.Ref, 0, 4)
	if p.CharacterID > 0 {
		refs = append(refs, refdata.Ref{Kind: refdata.KindCharacter, ID: p.CharacterID})
	}
	if p.CorporationID > 0 {
		refs = append(refs, refdata.Ref{Kind: refdata.KindCorporation, ID: p.CorporationID})
	}
	if p.AllianceID > 0 {
		refs = append(refs, refdata.Ref{Kind: refdata.KindAlliance, ID: p.AllianceID})
	}
	if p.FactionID > 0 {
		refs = append(refs, refdata.Ref{Kind: refdata.KindFaction, ID: p.FactionID})
	}
	return refs
}

func applyNames(info *models.PartyInfo, p models.Party, names map[refdata.Ref]string) {
	info.CharacterName = names[refdata.Ref{Kind: refdata.KindCharacter, ID: p.CharacterID}]
	info.CorporationName = names[refdata.Ref{Kind: refdata.KindCorporation, ID: p.CorporationID}]
	info.AllianceName = names[refdata.Ref{Kind: refdata.KindAlliance, ID: p.AllianceID}]
	info.FactionName = names[refdata.Ref{Kind: refdata.KindFaction, ID: p.FactionID}]
}
