// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package api

import (
	"errors"
	"testing"

	"github.com/tomtom215/killfeed/internal/models"
)

func TestParseLink(t *testing.T) {
	tests := []struct {
		link    string
		want    Link
		wantErr bool
	}{
		{"https://zkillboard.com/corporation/98000001/", Link{Type: models.SubjectCorporation, ID: 98000001}, false},
		{"https://zkillboard.com/character/90000001/losses/", Link{Type: models.SubjectCharacter, ID: 90000001, Direction: models.DirectionLosses}, false},
		{"https://zkillboard.com/alliance/99000001/kills", Link{Type: models.SubjectAlliance, ID: 99000001, Direction: models.DirectionKills}, false},
		{"https://zkillboard.com/ship/587/", Link{Type: models.SubjectShip, ID: 587}, false},
		{"https://zkillboard.com/group/25/", Link{Type: models.SubjectGroup, ID: 25}, false},
		{"https://zkillboard.com/region/10000002/", Link{Type: models.SubjectRegion, ID: 10000002}, false},
		{"https://zkillboard.com/system/30000142/", Link{Type: models.SubjectSystem, ID: 30000142}, false},
		{"https://zkillboard.com/constellation/20000020/", Link{Type: models.SubjectConstellation, ID: 20000020}, false},
		{"http://zkillboard.com/corporation/1/", Link{}, true},
		{"https://zkillboard.com/kill/123456/", Link{}, true},
		{"https://zkillboard.com/corporation/abc/", Link{}, true},
		{"https://zkillboard.com/corporation/0/", Link{}, true},
		{"https://zkillboard.com/corporation/1/top/", Link{}, true},
		{"https://evil.example/zkillboard.com/corporation/1/", Link{}, true},
		{"", Link{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			got, err := ParseLink(tt.link)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLink) {
					t.Fatalf("ParseLink() error = %v, want ErrInvalidLink", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLink() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLink() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
