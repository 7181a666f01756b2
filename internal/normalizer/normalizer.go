// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package normalizer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tomtom215/killfeed/internal/esi"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/models"
)

var (
	// ErrNoFinalBlow is returned for a kill with attackers but no final blow.
	ErrNoFinalBlow = errors.New("killmail has attackers but no final blow")

	// ErrMalformedKill is returned when required fields are missing.
	ErrMalformedKill = errors.New("malformed killmail")
)

const zkillKillURL = "https://zkillboard.com/kill/"

// KillmailFetcher fetches an authoritative killmail. *esi.Client implements
// it with a bounded retry policy.
type KillmailFetcher interface {
	Killmail(ctx context.Context, id int64, hash string) (*esi.Killmail, error)
}

// Normalizer converts raw feed events into kills.
type Normalizer struct {
	fetcher KillmailFetcher
}

// New creates a Normalizer. fetcher may be nil if every source delivers
// full killmails.
func New(fetcher KillmailFetcher) *Normalizer {
	return &Normalizer{fetcher: fetcher}
}

// Normalize builds a Kill from ev, fetching the killmail from ESI when the
// event is only a pointer. Fetch failures are returned so the caller can
// retry the event.
func (n *Normalizer) Normalize(ctx context.Context, ev *RawEvent) (*models.Kill, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: empty event", ErrMalformedKill)
	}

	km := ev.Killmail
	if !ev.HasKillmail() {
		if ev.KillID <= 0 || ev.ZKB.Hash == "" {
			return nil, fmt.Errorf("%w: no killmail and no kill id/hash", ErrMalformedKill)
		}
		if n.fetcher == nil {
			return nil, fmt.Errorf("kill %d: no killmail fetcher configured", ev.KillID)
		}
		logging.Ctx(ctx).Debug().Int64("kill_id", ev.KillID).Msg("Fetching killmail from ESI")
		fetched, err := n.fetcher.Killmail(ctx, ev.KillID, ev.ZKB.Hash)
		if err != nil {
			return nil, fmt.Errorf("fetch killmail %d: %w", ev.KillID, err)
		}
		km = fetched
	}

	if ev.KillID != 0 && km.KillmailID != 0 && ev.KillID != km.KillmailID {
		return nil, fmt.Errorf("%w: kill id %d does not match killmail %d", ErrMalformedKill, ev.KillID, km.KillmailID)
	}
	return build(km, &ev.ZKB)
}

func build(km *esi.Killmail, zkb *ZKB) (*models.Kill, error) {
	switch {
	case km == nil || km.KillmailID <= 0:
		return nil, fmt.Errorf("%w: missing killmail id", ErrMalformedKill)
	case km.Victim == nil:
		return nil, fmt.Errorf("%w: kill %d has no victim", ErrMalformedKill, km.KillmailID)
	case km.SolarSystemID <= 0:
		return nil, fmt.Errorf("%w: kill %d has no solar system", ErrMalformedKill, km.KillmailID)
	}

	kill := &models.Kill{
		ID:       km.KillmailID,
		Hash:     zkb.Hash,
		Time:     km.KillmailTime.UTC(),
		SystemID: km.SolarSystemID,
		Victim: models.Victim{
			Party: models.Party{
				CharacterID:   km.Victim.CharacterID,
				CorporationID: km.Victim.CorporationID,
				AllianceID:    km.Victim.AllianceID,
				FactionID:     km.Victim.FactionID,
				ShipTypeID:    km.Victim.ShipTypeID,
			},
			DamageTaken: km.Victim.DamageTaken,
		},
		Value: models.Value{
			Total:     zkb.TotalValue,
			Destroyed: zkb.DestroyedValue,
			Dropped:   zkb.DroppedValue,
			Fitted:    zkb.FittedValue,
		},
		URL:    zkb.URL,
		Points: zkb.Points,
		NPC:    zkb.NPC,
		Solo:   zkb.Solo,
		Awox:   zkb.Awox,
		Labels: zkb.Labels,
	}
	if kill.URL == "" {
		kill.URL = zkillKillURL + strconv.FormatInt(kill.ID, 10) + "/"
	}

	finalBlows := 0
	kill.Attackers = make([]models.Attacker, len(km.Attackers))
	for i, a := range km.Attackers {
		kill.Attackers[i] = models.Attacker{
			Party: models.Party{
				CharacterID:   a.CharacterID,
				CorporationID: a.CorporationID,
				AllianceID:    a.AllianceID,
				FactionID:     a.FactionID,
				ShipTypeID:    a.ShipTypeID,
			},
			WeaponTypeID: a.WeaponTypeID,
			DamageDone:   a.DamageDone,
			FinalBlow:    a.FinalBlow,
		}
		if a.FinalBlow {
			finalBlows++
		}
	}
	if len(kill.Attackers) > 0 && finalBlows == 0 {
		return nil, fmt.Errorf("kill %d: %w", kill.ID, ErrNoFinalBlow)
	}
	if finalBlows > 1 {
		return nil, fmt.Errorf("%w: kill %d has %d final blows", ErrMalformedKill, kill.ID, finalBlows)
	}
	return kill, nil
}
