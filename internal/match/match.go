// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package match decides which subscriptions a kill is delivered to.
package match

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/killfeed/internal/models"
	"github.com/tomtom215/killfeed/internal/subscription"
)

// Route returns one delivery task per subscription in idx that kill
// matches. It has no side effects; idx is only read.
func Route(kill *models.EnrichedKill, idx subscription.Index) []models.DeliveryTask {
	if kill == nil {
		return nil
	}
	now := time.Now().UTC()

	var tasks []models.DeliveryTask
	for guildID, guild := range idx {
		for channelID, ch := range guild {
			for _, sub := range ch {
				tag, ok := Match(kill, &sub)
				if !ok {
					continue
				}
				tasks = append(tasks, models.DeliveryTask{
					ID:          uuid.NewString(),
					Destination: models.Destination{GuildID: guildID, ChannelID: channelID},
					SubjectType: sub.Type,
					SubjectID:   sub.ID,
					Tag:         tag,
					Kill:        *kill,
					CreatedAt:   now,
				})
			}
		}
	}
	return tasks
}

// Match reports whether kill satisfies sub and, if so, which side of the
// kill the subject was on.
func Match(kill *models.EnrichedKill, sub *models.Subscription) (models.Tag, bool) {
	if sub.MinValue > kill.Kill.Value.Total {
		return "", false
	}

	switch {
	case sub.Type == models.SubjectPublic:
		if !sub.Location.Allows(kill.System) {
			return "", false
		}
		return models.TagNeutral, true

	case sub.Type.IsLocation():
		if sub.ID == 0 || kill.System.LocationID(sub.Type.LocationKind()) != sub.ID {
			return "", false
		}
		return models.TagNeutral, true

	case sub.Type.IsEntity():
		tag, ok := matchEntity(kill, sub)
		if !ok || !sub.Location.Allows(kill.System) {
			return "", false
		}
		return tag, true

	default:
		return "", false
	}
}

// matchEntity checks the victim first and then the attackers. A victim
// match is a loss; an attacker match alone is a kill.
func matchEntity(kill *models.EnrichedKill, sub *models.Subscription) (models.Tag, bool) {
	if sub.ID == 0 {
		return "", false
	}

	if sub.Direction != models.DirectionKills {
		if victimID(kill, sub.Type) == sub.ID {
			return models.TagLoss, true
		}
	}
	if sub.Direction != models.DirectionLosses {
		for i := range kill.Kill.Attackers {
			if attackerID(kill, i, sub.Type) == sub.ID {
				return models.TagKill, true
			}
		}
	}
	return "", false
}

func victimID(kill *models.EnrichedKill, t models.SubjectType) int64 {
	if t == models.SubjectGroup {
		return kill.VictimInfo.Ship.GroupID
	}
	return kill.Kill.Victim.EntityID(t)
}

func attackerID(kill *models.EnrichedKill, i int, t models.SubjectType) int64 {
	if t == models.SubjectGroup {
		return kill.AttackerGroup(i)
	}
	return kill.Kill.Attackers[i].EntityID(t)
}
