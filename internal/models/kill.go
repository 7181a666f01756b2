// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package models

import "time"

// Party is the set of entity ids shared by a victim and an attacker.
type Party struct {
	CharacterID   int64 `json:"character_id,omitempty"`
	CorporationID int64 `json:"corporation_id,omitempty"`
	AllianceID    int64 `json:"alliance_id,omitempty"`
	FactionID     int64 `json:"faction_id,omitempty"`
	ShipTypeID    int64 `json:"ship_type_id,omitempty"`
}

// EntityID returns the id this party holds for an entity subject type, or 0.
// Group subjects are not answered here because the group is reference data.
func (p Party) EntityID(t SubjectType) int64 {
	switch t {
	case SubjectCharacter:
		return p.CharacterID
	case SubjectCorporation:
		return p.CorporationID
	case SubjectAlliance:
		return p.AllianceID
	case SubjectShip:
		return p.ShipTypeID
	default:
		return 0
	}
}

// Victim is the losing side of a kill.
type Victim struct {
	Party
	DamageTaken int64 `json:"damage_taken"`
}

// Attacker is one participant on the killing side.
type Attacker struct {
	Party
	WeaponTypeID int64 `json:"weapon_type_id,omitempty"`
	DamageDone   int64 `json:"damage_done"`
	FinalBlow    bool  `json:"final_blow"`
}

// Value is the ISK valuation zKillboard attaches to a kill.
type Value struct {
	Total     float64 `json:"total"`
	Destroyed float64 `json:"destroyed"`
	Dropped   float64 `json:"dropped"`
	Fitted    float64 `json:"fitted"`
}

// Kill is one normalized killmail. It is not modified after normalization.
type Kill struct {
	ID        int64      `json:"id"`
	Hash      string     `json:"hash"`
	Time      time.Time  `json:"time"`
	SystemID  int64      `json:"system_id"`
	Victim    Victim     `json:"victim"`
	Attackers []Attacker `json:"attackers"`
	Value     Value      `json:"value"`
	URL       string     `json:"url"`

	Points int      `json:"points,omitempty"`
	NPC    bool     `json:"npc,omitempty"`
	Solo   bool     `json:"solo,omitempty"`
	Awox   bool     `json:"awox,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// FinalBlow returns the attacker credited with the final blow.
func (k *Kill) FinalBlow() (*Attacker, bool) {
	for i := range k.Attackers {
		if k.Attackers[i].FinalBlow {
			return &k.Attackers[i], true
		}
	}
	return nil, false
}

// SystemInfo is a solar system with its resolved location hierarchy.
type SystemInfo struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	ConstellationID   int64  `json:"constellation_id"`
	ConstellationName string `json:"constellation_name,omitempty"`
	RegionID          int64  `json:"region_id"`
	RegionName        string `json:"region_name,omitempty"`
}

// LocationID returns the system, constellation or region id for kind.
func (s SystemInfo) LocationID(kind LocationKind) int64 {
	switch kind {
	case LocationSystem:
		return s.ID
	case LocationConstellation:
		return s.ConstellationID
	case LocationRegion:
		return s.RegionID
	default:
		return 0
	}
}

// ShipInfo is a ship type and the group (ship class) it belongs to.
type ShipInfo struct {
	TypeID  int64  `json:"type_id"`
	Name    string `json:"name,omitempty"`
	GroupID int64  `json:"group_id,omitempty"`
}

// PartyInfo carries display names for a party. Empty names mean the
// reference data could not be resolved.
type PartyInfo struct {
	CharacterName   string   `json:"character_name,omitempty"`
	CorporationName string   `json:"corporation_name,omitempty"`
	AllianceName    string   `json:"alliance_name,omitempty"`
	FactionName     string   `json:"faction_name,omitempty"`
	Ship            ShipInfo `json:"ship"`
}

// EnrichedKill is a Kill plus the reference data needed to match groups and
// locations and to render a message.
type EnrichedKill struct {
	Kill          Kill       `json:"kill"`
	System        SystemInfo `json:"system"`
	VictimInfo    PartyInfo  `json:"victim_info"`
	FinalBlowInfo *PartyInfo `json:"final_blow_info,omitempty"`
	// AttackerGroups[i] is the ship group of Kill.Attackers[i], 0 if unknown.
	AttackerGroups []int64 `json:"attacker_groups,omitempty"`
}

// AttackerGroup returns the resolved ship group of attacker i, or 0.
func (e *EnrichedKill) AttackerGroup(i int) int64 {
	if i < 0 || i >= len(e.AttackerGroups) {
		return 0
	}
	return e.AttackerGroups[i]
}
