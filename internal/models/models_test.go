// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package models

import (
	"slices"
	"testing"
)

func TestParseSubjectType(t *testing.T) {
	tests := []struct {
		in      string
		want    SubjectType
		wantErr bool
	}{
		{"public", SubjectPublic, false},
		{"Corporation", SubjectCorporation, false},
		{"shipType", SubjectShip, false},
		{"ship", SubjectShip, false},
		{"group", SubjectGroup, false},
		{"faction", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSubjectType(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSubjectType(%q) = %q, %v; want %q, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestSubscriptionKeyString(t *testing.T) {
	tests := []struct {
		key  SubscriptionKey
		want string
	}{
		{SubscriptionKey{Type: SubjectPublic}, "public"},
		{SubscriptionKey{Type: SubjectCorporation, ID: 98000001}, "corporation98000001"},
		{SubscriptionKey{Type: SubjectShip, ID: 587}, "ship587"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.key, got, tt.want)
		}
	}
	// typed keys keep types apart even when ids collide
	a := SubscriptionKey{Type: SubjectSystem, ID: 30000142}
	b := SubscriptionKey{Type: SubjectRegion, ID: 30000142}
	if a == b {
		t.Error("keys with different types compare equal")
	}
}

func TestLocationFilterAllows(t *testing.T) {
	jita := SystemInfo{ID: 30000142, ConstellationID: 20000020, RegionID: 10000002}

	tests := []struct {
		name   string
		filter LocationFilter
		want   bool
	}{
		{"none", LocationFilter{Kind: LocationNone}, true},
		{"zero value", LocationFilter{}, true},
		{"region hit", LocationFilter{Kind: LocationRegion, IDs: []int64{10000043, 10000002}}, true},
		{"region miss", LocationFilter{Kind: LocationRegion, IDs: []int64{10000043}}, false},
		{"constellation hit", LocationFilter{Kind: LocationConstellation, IDs: []int64{20000020}}, true},
		{"system miss", LocationFilter{Kind: LocationSystem, IDs: []int64{30002187}}, false},
		{"active but empty", LocationFilter{Kind: LocationSystem}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Allows(jita); got != tt.want {
				t.Errorf("Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseIDList(t *testing.T) {
	ids, err := ParseIDList("10000002, 10000043,,")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []int64{10000002, 10000043}) {
		t.Errorf("ids = %v", ids)
	}
	if _, err := ParseIDList("10000002,abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
	f := LocationFilter{Kind: LocationRegion, IDs: ids}
	if got := f.FormatIDs(); got != "10000002,10000043" {
		t.Errorf("FormatIDs() = %q", got)
	}
}

func TestSubscriptionValidate(t *testing.T) {
	dest := Destination{GuildID: "g", ChannelID: "c"}
	tests := []struct {
		name    string
		sub     Subscription
		wantErr bool
	}{
		{"public", Subscription{Type: SubjectPublic, Destination: dest}, false},
		{"public with id", Subscription{Type: SubjectPublic, ID: 5, Destination: dest}, true},
		{"corp without id", Subscription{Type: SubjectCorporation, Destination: dest}, true},
		{"corp losses", Subscription{Type: SubjectCorporation, ID: 1, Direction: DirectionLosses, Destination: dest}, false},
		{"bad direction", Subscription{Type: SubjectCorporation, ID: 1, Direction: "both-ish", Destination: dest}, true},
		{"negative value", Subscription{Type: SubjectPublic, MinValue: -1, Destination: dest}, true},
		{"filter without ids", Subscription{Type: SubjectPublic, Location: LocationFilter{Kind: LocationRegion}, Destination: dest}, true},
		{"no destination", Subscription{Type: SubjectPublic}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKillFinalBlow(t *testing.T) {
	k := Kill{Attackers: []Attacker{
		{Party: Party{CharacterID: 1}},
		{Party: Party{CharacterID: 2}, FinalBlow: true},
	}}
	fb, ok := k.FinalBlow()
	if !ok || fb.CharacterID != 2 {
		t.Fatalf("FinalBlow() = %+v, %v", fb, ok)
	}
	if _, ok := (&Kill{}).FinalBlow(); ok {
		t.Error("empty kill reported a final blow")
	}
}

func TestDeliveryTaskDedupKeyIgnoresSubscription(t *testing.T) {
	a := DeliveryTask{Destination: Destination{ChannelID: "c1"}, SubjectType: SubjectPublic}
	a.Kill.Kill.ID = 42
	b := a
	b.SubjectType = SubjectCorporation
	b.SubjectID = 500
	if a.DedupKey() != b.DedupKey() {
		t.Errorf("dedup keys differ: %q vs %q", a.DedupKey(), b.DedupKey())
	}
	if a.DedupKey() != "c1:42" {
		t.Errorf("DedupKey() = %q", a.DedupKey())
	}
}
