// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// SubjectType is what a subscription is anchored to.
type SubjectType string

const (
	SubjectPublic        SubjectType = "public"
	SubjectRegion        SubjectType = "region"
	SubjectConstellation SubjectType = "constellation"
	SubjectSystem        SubjectType = "system"
	SubjectCorporation   SubjectType = "corporation"
	SubjectAlliance      SubjectType = "alliance"
	SubjectCharacter     SubjectType = "character"
	SubjectGroup         SubjectType = "group"
	SubjectShip          SubjectType = "ship"
)

// SubjectTypes lists every subject type in display order.
var SubjectTypes = []SubjectType{
	SubjectPublic, SubjectRegion, SubjectConstellation, SubjectSystem,
	SubjectCorporation, SubjectAlliance, SubjectCharacter, SubjectGroup, SubjectShip,
}

// ParseSubjectType accepts the canonical names plus the "shipType" alias.
func ParseSubjectType(s string) (SubjectType, error) {
	if strings.EqualFold(s, "shiptype") {
		return SubjectShip, nil
	}
	t := SubjectType(strings.ToLower(s))
	if !t.Valid() {
		return "", fmt.Errorf("unknown subject type %q", s)
	}
	return t, nil
}

// Valid reports whether t is a known subject type.
func (t SubjectType) Valid() bool {
	return slices.Contains(SubjectTypes, t)
}

// RequiresID is true for every subject type except public.
func (t SubjectType) RequiresID() bool {
	return t != SubjectPublic
}

// IsLocation is true for region, constellation and system subjects.
func (t SubjectType) IsLocation() bool {
	return t == SubjectRegion || t == SubjectConstellation || t == SubjectSystem
}

// IsEntity is true for subjects matched against victim and attackers.
func (t SubjectType) IsEntity() bool {
	switch t {
	case SubjectCorporation, SubjectAlliance, SubjectCharacter, SubjectGroup, SubjectShip:
		return true
	default:
		return false
	}
}

// LocationKind converts a location subject to the matching filter kind.
func (t SubjectType) LocationKind() LocationKind {
	if t.IsLocation() {
		return LocationKind(t)
	}
	return LocationNone
}

// KillDirection restricts entity subscriptions to one side of a kill.
type KillDirection string

const (
	DirectionBoth   KillDirection = ""
	DirectionKills  KillDirection = "kills"
	DirectionLosses KillDirection = "losses"
)

// ParseKillDirection accepts "", "both", "kills" and "losses".
func ParseKillDirection(s string) (KillDirection, error) {
	switch strings.ToLower(s) {
	case "", "both", "all":
		return DirectionBoth, nil
	case "kills", "kill":
		return DirectionKills, nil
	case "losses", "loss":
		return DirectionLosses, nil
	default:
		return "", fmt.Errorf("unknown kill direction %q", s)
	}
}

// LocationKind is the dimension of a location filter.
type LocationKind string

const (
	LocationNone          LocationKind = "none"
	LocationRegion        LocationKind = "region"
	LocationConstellation LocationKind = "constellation"
	LocationSystem        LocationKind = "system"
)

// ParseLocationKind accepts the filter kinds; "" means none.
func ParseLocationKind(s string) (LocationKind, error) {
	switch k := LocationKind(strings.ToLower(s)); k {
	case "", LocationNone:
		return LocationNone, nil
	case LocationRegion, LocationConstellation, LocationSystem:
		return k, nil
	default:
		return "", fmt.Errorf("unknown location filter %q", s)
	}
}

// LocationFilter limits a subscription to kills in a set of regions,
// constellations or systems. Only one dimension is supported.
type LocationFilter struct {
	Kind LocationKind `json:"kind"`
	IDs  []int64      `json:"ids,omitempty"`
}

// Active reports whether the filter constrains anything.
func (f LocationFilter) Active() bool {
	return f.Kind != "" && f.Kind != LocationNone
}

// Allows reports whether a kill in system passes the filter.
func (f LocationFilter) Allows(system SystemInfo) bool {
	if !f.Active() {
		return true
	}
	id := system.LocationID(f.Kind)
	return id != 0 && slices.Contains(f.IDs, id)
}

// FormatIDs renders the id set in the persisted comma-separated form.
func (f LocationFilter) FormatIDs() string {
	parts := make([]string, len(f.IDs))
	for i, id := range f.IDs {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ParseIDList parses "1,2, 3" into ids. Blank entries are skipped.
func ParseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Destination is a Discord guild and channel pair.
type Destination struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

func (d Destination) String() string {
	return d.GuildID + "/" + d.ChannelID
}

// SubscriptionKey identifies a subscription within one channel.
type SubscriptionKey struct {
	Type SubjectType
	ID   int64
}

// String renders the persisted record key: the type followed by the id,
// or the type alone for public.
func (k SubscriptionKey) String() string {
	if k.ID == 0 {
		return string(k.Type)
	}
	return string(k.Type) + strconv.FormatInt(k.ID, 10)
}

// Subscription is one channel's interest in a subject.
type Subscription struct {
	Type        SubjectType    `json:"type" validate:"required"`
	ID          int64          `json:"id,omitempty"`
	MinValue    float64        `json:"min_value" validate:"gte=0"`
	Direction   KillDirection  `json:"direction,omitempty"`
	Location    LocationFilter `json:"location"`
	Destination Destination    `json:"destination"`
}

// Key returns the subscription's identity within its channel.
func (s *Subscription) Key() SubscriptionKey {
	return SubscriptionKey{Type: s.Type, ID: s.ID}
}

// Validate checks the subscription's shape. It does not check that the
// subject id exists in EVE.
func (s *Subscription) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("unknown subject type %q", s.Type)
	}
	if s.Type.RequiresID() && s.ID <= 0 {
		return fmt.Errorf("subject type %s requires a positive id", s.Type)
	}
	if !s.Type.RequiresID() && s.ID != 0 {
		return fmt.Errorf("subject type %s does not take an id", s.Type)
	}
	if s.MinValue < 0 {
		return fmt.Errorf("minimum value must not be negative")
	}
	switch s.Direction {
	case DirectionBoth, DirectionKills, DirectionLosses:
	default:
		return fmt.Errorf("unknown kill direction %q", s.Direction)
	}
	if s.Location.Active() {
		if _, err := ParseLocationKind(string(s.Location.Kind)); err != nil {
			return err
		}
		if len(s.Location.IDs) == 0 {
			return fmt.Errorf("location filter %s needs at least one id", s.Location.Kind)
		}
	}
	if s.Destination.GuildID == "" || s.Destination.ChannelID == "" {
		return fmt.Errorf("destination guild and channel are required")
	}
	return nil
}
