// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package esi

import (
	"context"
	"fmt"
	"time"
)

// Killmail is the authoritative ESI killmail. zKillboard embeds the same
// shape in its feed packages.
type Killmail struct {
	KillmailID    int64              `json:"killmail_id"`
	KillmailTime  time.Time          `json:"killmail_time"`
	SolarSystemID int64              `json:"solar_system_id"`
	Victim        *KillmailVictim    `json:"victim"`
	Attackers     []KillmailAttacker `json:"attackers"`
}

// KillmailVictim is the victim block of a killmail.
type KillmailVictim struct {
	CharacterID   int64 `json:"character_id,omitempty"`
	CorporationID int64 `json:"corporation_id,omitempty"`
	AllianceID    int64 `json:"alliance_id,omitempty"`
	FactionID     int64 `json:"faction_id,omitempty"`
	ShipTypeID    int64 `json:"ship_type_id"`
	DamageTaken   int64 `json:"damage_taken"`
}

// KillmailAttacker is one attacker of a killmail.
type KillmailAttacker struct {
	CharacterID    int64   `json:"character_id,omitempty"`
	CorporationID  int64   `json:"corporation_id,omitempty"`
	AllianceID     int64   `json:"alliance_id,omitempty"`
	FactionID      int64   `json:"faction_id,omitempty"`
	ShipTypeID     int64   `json:"ship_type_id,omitempty"`
	WeaponTypeID   int64   `json:"weapon_type_id,omitempty"`
	DamageDone     int64   `json:"damage_done"`
	FinalBlow      bool    `json:"final_blow"`
	SecurityStatus float64 `json:"security_status"`
}

// Killmail fetches a killmail by id and hash.
func (c *Client) Killmail(ctx context.Context, id int64, hash string) (*Killmail, error) {
	var out Killmail
	if err := c.getJSON(ctx, "killmails", fmt.Sprintf("/killmails/%d/%s/", id, hash), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
