// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package delivery

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tomtom215/killfeed/internal/models"
)

// Embed accent colors.
const (
	ColorLoss    = 0xE74C3C
	ColorKill    = 0x2ECC71
	ColorNeutral = 0x95A5A6
)

const shipRenderURL = "https://images.evetech.net/types/%d/render?size=128"

// Message is a rendered kill notification.
type Message struct {
	Title        string
	Description  string
	URL          string
	Color        int
	ThumbnailURL string
}

var iskPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatISK renders v with thousands separators and two decimals.
func FormatISK(v float64) string {
	return iskPrinter.Sprintf("%.2f", v)
}

// ColorFor returns the accent color of a tag.
func ColorFor(tag models.Tag) int {
	switch tag {
	case models.TagLoss:
		return ColorLoss
	case models.TagKill:
		return ColorKill
	default:
		return ColorNeutral
	}
}

// Render builds the notification for a task. Names that could not be
// resolved are shown as raw ids.
func Render(task *models.DeliveryTask) Message {
	ek := &task.Kill
	k := &ek.Kill
	v := ek.VictimInfo

	victimCorp := owner(v, k.Victim.Party)
	victimShip := orID(v.Ship.Name, k.Victim.ShipTypeID)
	location := fmt.Sprintf("%s (%s)", orID(ek.System.Name, k.SystemID), orID(ek.System.RegionName, ek.System.RegionID))
	total := "Total Value: " + FormatISK(k.Value.Total) + " ISK"

	var finalBlow string
	if fb, ok := k.FinalBlow(); ok && ek.FinalBlowInfo != nil {
		fi := ek.FinalBlowInfo
		finalBlow = fmt.Sprintf(" Final Blow by %s (%s) flying in a %s.",
			orID(fi.CharacterName, fb.CharacterID),
			owner(*fi, fb.Party),
			orID(fi.Ship.Name, fb.ShipTypeID))
	}

	var title, desc string
	switch {
	case k.Victim.CharacterID == 0:
		// Structures and other unpiloted losses.
		title = fmt.Sprintf("%s | %s | Killmail", victimShip, victimCorp)
		desc = fmt.Sprintf("%s lost their %s in %s.%s %s", victimCorp, victimShip, location, finalBlow, total)
	case finalBlow != "" && (ek.FinalBlowInfo.CorporationName != "" || ek.FinalBlowInfo.FactionName != ""):
		victim := orID(v.CharacterName, k.Victim.CharacterID)
		title = fmt.Sprintf("%s (%s) | %s | Killmail", victim, victimCorp, victimShip)
		desc = fmt.Sprintf("%s (%s) lost their %s in %s.%s %s", victim, victimCorp, victimShip, location, finalBlow, total)
	default:
		victim := orID(v.CharacterName, k.Victim.CharacterID)
		title = fmt.Sprintf("%s | %s | Killmail", victim, victimCorp)
		desc = fmt.Sprintf("%s (%s) lost their %s in %s. %s", victim, victimCorp, victimShip, location, total)
	}

	msg := Message{
		Title:       title,
		Description: desc,
		URL:         k.URL,
		Color:       ColorFor(task.Tag),
	}
	if k.Victim.ShipTypeID > 0 {
		msg.ThumbnailURL = fmt.Sprintf(shipRenderURL, k.Victim.ShipTypeID)
	}
	return msg
}

// OwnerNotice is sent to a guild owner after the bot lost write access to
// one of its channels.
func OwnerNotice(channelName, guildName string) string {
	return fmt.Sprintf("The bot unsubscribed from channel %s on %s because it was not able to write in it! "+
		"Fix the permissions and subscribe again!", channelName, guildName)
}

// owner names the corporation a party flies for, or its faction when it has
// no corporation (faction warfare structures, some NPCs).
func owner(info models.PartyInfo, p models.Party) string {
	if p.CorporationID == 0 && p.FactionID != 0 {
		return orID(info.FactionName, p.FactionID)
	}
	return orID(info.CorporationName, p.CorporationID)
}

func orID(name string, id int64) string {
	if name != "" {
		return name
	}
	if id == 0 {
		return "Unknown"
	}
	return strconv.FormatInt(id, 10)
}
