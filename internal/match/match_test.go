// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package match

import (
	"testing"

	"github.com/tomtom215/killfeed/internal/models"
	"github.com/tomtom215/killfeed/internal/subscription"
)

var dest = models.Destination{GuildID: "100", ChannelID: "200"}

// jitaKill is a 1,000,000 ISK Rifter loss in Jita with two attackers.
func jitaKill() *models.EnrichedKill {
	return &models.EnrichedKill{
		Kill: models.Kill{
			ID:       120000001,
			SystemID: 30000142,
			Victim: models.Victim{Party: models.Party{
				CharacterID: 95465499, CorporationID: 500, AllianceID: 99000001, ShipTypeID: 587,
			}},
			Attackers: []models.Attacker{
				{Party: models.Party{CharacterID: 90000002, CorporationID: 600, AllianceID: 99000002, ShipTypeID: 17738}},
				{Party: models.Party{CharacterID: 90000003, CorporationID: 700, ShipTypeID: 587}, FinalBlow: true},
			},
			Value: models.Value{Total: 1_000_000},
		},
		System:         models.SystemInfo{ID: 30000142, ConstellationID: 20000020, RegionID: 10000002},
		VictimInfo:     models.PartyInfo{Ship: models.ShipInfo{TypeID: 587, GroupID: 25}},
		AttackerGroups: []int64{27, 25},
	}
}

func sub(t models.SubjectType, id int64) models.Subscription {
	return models.Subscription{Type: t, ID: id, Location: models.LocationFilter{Kind: models.LocationNone}, Destination: dest}
}

func TestMatch(t *testing.T) {
	withDir := func(s models.Subscription, d models.KillDirection) models.Subscription {
		s.Direction = d
		return s
	}
	withMin := func(s models.Subscription, v float64) models.Subscription {
		s.MinValue = v
		return s
	}
	withLoc := func(s models.Subscription, k models.LocationKind, ids ...int64) models.Subscription {
		s.Location = models.LocationFilter{Kind: k, IDs: ids}
		return s
	}

	tests := []struct {
		name    string
		sub     models.Subscription
		wantTag models.Tag
		wantOK  bool
	}{
		{"public", sub(models.SubjectPublic, 0), models.TagNeutral, true},
		{"public in region filter", withLoc(sub(models.SubjectPublic, 0), models.LocationRegion, 10000002), models.TagNeutral, true},
		{"public outside region filter", withLoc(sub(models.SubjectPublic, 0), models.LocationRegion, 10000043), "", false},
		{"region", sub(models.SubjectRegion, 10000002), models.TagNeutral, true},
		{"other region", sub(models.SubjectRegion, 10000043), "", false},
		{"constellation", sub(models.SubjectConstellation, 20000020), models.TagNeutral, true},
		{"system", sub(models.SubjectSystem, 30000142), models.TagNeutral, true},
		{"system ignores location filter", withLoc(sub(models.SubjectSystem, 30000142), models.LocationRegion, 1), models.TagNeutral, true},
		{"system ignores direction", withDir(sub(models.SubjectSystem, 30000142), models.DirectionLosses), models.TagNeutral, true},
		{"victim corporation", sub(models.SubjectCorporation, 500), models.TagLoss, true},
		{"attacker corporation", sub(models.SubjectCorporation, 700), models.TagKill, true},
		{"uninvolved corporation", sub(models.SubjectCorporation, 800), "", false},
		{"victim alliance", sub(models.SubjectAlliance, 99000001), models.TagLoss, true},
		{"attacker alliance", sub(models.SubjectAlliance, 99000002), models.TagKill, true},
		{"victim character", sub(models.SubjectCharacter, 95465499), models.TagLoss, true},
		{"attacker character", sub(models.SubjectCharacter, 90000003), models.TagKill, true},
		{"victim and attacker ship", sub(models.SubjectShip, 587), models.TagLoss, true},
		{"attacker ship", sub(models.SubjectShip, 17738), models.TagKill, true},
		{"victim group", sub(models.SubjectGroup, 25), models.TagLoss, true},
		{"attacker group", sub(models.SubjectGroup, 27), models.TagKill, true},
		{"losses only on attacker", withDir(sub(models.SubjectCorporation, 700), models.DirectionLosses), "", false},
		{"kills only on victim", withDir(sub(models.SubjectCorporation, 500), models.DirectionKills), "", false},
		{"kills only on both sides", withDir(sub(models.SubjectShip, 587), models.DirectionKills), models.TagKill, true},
		{"losses only on victim", withDir(sub(models.SubjectAlliance, 99000001), models.DirectionLosses), models.TagLoss, true},
		{"entity in system filter", withLoc(sub(models.SubjectCorporation, 500), models.LocationSystem, 30000142, 30002187), models.TagLoss, true},
		{"entity outside constellation filter", withLoc(sub(models.SubjectCorporation, 500), models.LocationConstellation, 20000021), "", false},
		{"boundary value", withMin(sub(models.SubjectPublic, 0), 1_000_000), models.TagNeutral, true},
		{"above value", withMin(sub(models.SubjectPublic, 0), 1_000_001), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, ok := Match(jitaKill(), &tt.sub)
			if ok != tt.wantOK || tag != tt.wantTag {
				t.Errorf("Match = (%q, %v), want (%q, %v)", tag, ok, tt.wantTag, tt.wantOK)
			}
		})
	}
}

func TestZeroIDsNeverMatch(t *testing.T) {
	kill := jitaKill()
	// The final-blow attacker has no alliance; an alliance 0 subscription
	// cannot be created but must not match either.
	if _, ok := Match(kill, &models.Subscription{Type: models.SubjectAlliance}); ok {
		t.Error("alliance 0 matched")
	}
	kill.System = models.SystemInfo{ID: 30000142}
	if _, ok := Match(kill, &models.Subscription{Type: models.SubjectRegion}); ok {
		t.Error("region 0 matched an unresolved region")
	}
}

func TestUnresolvedGroupNeverMatches(t *testing.T) {
	kill := jitaKill()
	kill.VictimInfo.Ship.GroupID = 0
	kill.AttackerGroups = nil
	s := sub(models.SubjectGroup, 25)
	if _, ok := Match(kill, &s); ok {
		t.Error("group matched without reference data")
	}
}

func TestUnresolvedLocationFailsFilter(t *testing.T) {
	kill := jitaKill()
	kill.System = models.SystemInfo{ID: 30000142}
	s := sub(models.SubjectPublic, 0)
	s.Location = models.LocationFilter{Kind: models.LocationRegion, IDs: []int64{10000002}}
	if _, ok := Match(kill, &s); ok {
		t.Error("unknown region passed a region filter")
	}
}

// Corporation 500 loses a ship with nobody on the killmail.
func TestCorporationLossWithoutAttackers(t *testing.T) {
	kill := &models.EnrichedKill{Kill: models.Kill{
		ID:       1,
		SystemID: 30000142,
		Victim:   models.Victim{Party: models.Party{CorporationID: 500}},
	}}

	both := sub(models.SubjectCorporation, 500)
	tasks := Route(kill, subscription.Index{"100": {"200": {both.Key(): both}}})
	if len(tasks) != 1 || tasks[0].Tag != models.TagLoss {
		t.Fatalf("expected one loss task, got %+v", tasks)
	}

	killsOnly := sub(models.SubjectCorporation, 500)
	killsOnly.Direction = models.DirectionKills
	tasks = Route(kill, subscription.Index{"100": {"200": {killsOnly.Key(): killsOnly}}})
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %+v", tasks)
	}
}

func TestRouteFansOut(t *testing.T) {
	pub := sub(models.SubjectPublic, 0)
	corp := sub(models.SubjectCorporation, 700)
	miss := sub(models.SubjectCorporation, 800)

	idx := subscription.Index{
		"100": {
			"200": {pub.Key(): pub, corp.Key(): corp},
			"201": {miss.Key(): miss},
		},
		"101": {
			"300": {pub.Key(): pub},
		},
	}

	tasks := Route(jitaKill(), idx)
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	seen := map[string]bool{}
	for _, task := range tasks {
		if task.ID == "" || seen[task.ID] {
			t.Errorf("task ids must be unique: %q", task.ID)
		}
		seen[task.ID] = true
		if task.Kill.Kill.ID != 120000001 {
			t.Errorf("task carries wrong kill %d", task.Kill.Kill.ID)
		}
		if task.Destination.ChannelID == "201" {
			t.Error("non-matching channel received a task")
		}
		if task.SubjectType == models.SubjectCorporation && (task.Tag != models.TagKill || task.SubjectID != 700) {
			t.Errorf("corporation task = %+v", task)
		}
	}
}

func TestRouteEmpty(t *testing.T) {
	if tasks := Route(jitaKill(), nil); len(tasks) != 0 {
		t.Errorf("expected no tasks for empty index, got %d", len(tasks))
	}
	if tasks := Route(nil, subscription.Index{}); tasks != nil {
		t.Error("nil kill must produce no tasks")
	}
}
