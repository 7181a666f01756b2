// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package delivery

import (
	"strings"
	"testing"

	"github.com/tomtom215/killfeed/internal/models"
)

func TestFormatISK(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{1694939.15, "1,694,939.15"},
		{166915678.88, "166,915,678.88"},
		{999.999, "1,000.00"},
	}
	for _, tt := range tests {
		if got := FormatISK(tt.in); got != tt.want {
			t.Errorf("FormatISK(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func renderedKill(victimChar int64, finalCorp string) *models.DeliveryTask {
	ek := models.EnrichedKill{
		Kill: models.Kill{
			ID:       1,
			SystemID: 30003504,
			URL:      "https://zkillboard.com/kill/1/",
			Victim: models.Victim{Party: models.Party{
				CharacterID: victimChar, CorporationID: 98000001, ShipTypeID: 2233,
			}},
			Attackers: []models.Attacker{{
				Party:     models.Party{CharacterID: 90000003, CorporationID: 98000002, ShipTypeID: 28661},
				FinalBlow: true,
			}},
			Value: models.Value{Total: 166915678.88},
		},
		System: models.SystemInfo{ID: 30003504, Name: "Kor-Azor Prime", RegionName: "Kor-Azor"},
		VictimInfo: models.PartyInfo{
			CharacterName:   "Incana Pirahnas",
			CorporationName: "Red Fang Holding INC",
			Ship:            models.ShipInfo{TypeID: 2233, Name: "Customs Office"},
		},
		FinalBlowInfo: &models.PartyInfo{
			CharacterName:   "Nathan Steeles",
			CorporationName: finalCorp,
			Ship:            models.ShipInfo{TypeID: 28661, Name: "Kronos"},
		},
	}
	return &models.DeliveryTask{Tag: models.TagLoss, Kill: ek}
}

func TestRenderStructureLoss(t *testing.T) {
	msg := Render(renderedKill(0, "Aegis Contractors"))
	if msg.Title != "Customs Office | Red Fang Holding INC | Killmail" {
		t.Errorf("title = %q", msg.Title)
	}
	want := "Red Fang Holding INC lost their Customs Office in Kor-Azor Prime (Kor-Azor). " +
		"Final Blow by Nathan Steeles (Aegis Contractors) flying in a Kronos. Total Value: 166,915,678.88 ISK"
	if msg.Description != want {
		t.Errorf("description = %q\nwant          %q", msg.Description, want)
	}
	if msg.ThumbnailURL != "https://images.evetech.net/types/2233/render?size=128" {
		t.Errorf("thumbnail = %q", msg.ThumbnailURL)
	}
	if msg.Color != ColorLoss || msg.URL != "https://zkillboard.com/kill/1/" {
		t.Errorf("color/url = %x %q", msg.Color, msg.URL)
	}
}

func TestRenderPilotLossWithFinalBlow(t *testing.T) {
	msg := Render(renderedKill(95465499, "Aegis Contractors"))
	if msg.Title != "Incana Pirahnas (Red Fang Holding INC) | Customs Office | Killmail" {
		t.Errorf("title = %q", msg.Title)
	}
	if !strings.Contains(msg.Description, "Final Blow by Nathan Steeles (Aegis Contractors) flying in a Kronos.") {
		t.Errorf("description = %q", msg.Description)
	}
}

func TestRenderPilotLossWithoutFinalBlowCorp(t *testing.T) {
	msg := Render(renderedKill(95465499, ""))
	if msg.Title != "Incana Pirahnas | Red Fang Holding INC | Killmail" {
		t.Errorf("title = %q", msg.Title)
	}
	if strings.Contains(msg.Description, "Final Blow") {
		t.Errorf("description should omit the final blow: %q", msg.Description)
	}
}

func TestRenderFactionOwnedStructure(t *testing.T) {
	task := renderedKill(0, "Aegis Contractors")
	k := &task.Kill.Kill
	k.Victim.CorporationID = 0
	k.Victim.FactionID = 500001
	task.Kill.VictimInfo.CorporationName = ""
	task.Kill.VictimInfo.FactionName = "Caldari State"

	msg := Render(task)
	if msg.Title != "Customs Office | Caldari State | Killmail" {
		t.Errorf("title = %q", msg.Title)
	}
	if !strings.HasPrefix(msg.Description, "Caldari State lost their Customs Office") {
		t.Errorf("description = %q", msg.Description)
	}

	// Unresolved faction falls back to its id.
	task.Kill.VictimInfo.FactionName = ""
	if msg := Render(task); msg.Title != "Customs Office | 500001 | Killmail" {
		t.Errorf("title = %q", msg.Title)
	}
}

func TestRenderFactionFinalBlow(t *testing.T) {
	task := renderedKill(95465499, "")
	fb := &task.Kill.Kill.Attackers[0]
	fb.CorporationID = 0
	fb.FactionID = 500004
	task.Kill.FinalBlowInfo.FactionName = "Gallente Federation"

	msg := Render(task)
	if !strings.Contains(msg.Description, "Final Blow by Nathan Steeles (Gallente Federation) flying in a Kronos.") {
		t.Errorf("description = %q", msg.Description)
	}
}

func TestRenderFallsBackToIDs(t *testing.T) {
	task := &models.DeliveryTask{Tag: models.TagKill, Kill: models.EnrichedKill{Kill: models.Kill{
		ID: 2, SystemID: 30000142,
		Victim: models.Victim{Party: models.Party{CharacterID: 7, CorporationID: 8, ShipTypeID: 587}},
	}}}
	msg := Render(task)
	if msg.Title != "7 | 8 | Killmail" {
		t.Errorf("title = %q", msg.Title)
	}
	if !strings.Contains(msg.Description, "lost their 587 in 30000142 (Unknown).") {
		t.Errorf("description = %q", msg.Description)
	}
	if msg.Color != ColorKill {
		t.Errorf("color = %x", msg.Color)
	}
}

func TestColorFor(t *testing.T) {
	if ColorFor(models.TagNeutral) != ColorNeutral || ColorFor(models.TagLoss) != ColorLoss || ColorFor(models.TagKill) != ColorKill {
		t.Error("unexpected tag colors")
	}
}
