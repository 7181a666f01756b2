// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package normalizer turns zKillboard feed payloads into models.Kill and
// enriches them with reference data for matching and display.
package normalizer

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/killfeed/internal/esi"
)

// Source names where a raw event came from.
const (
	SourceRedisQ    = "redisq"
	SourceWebsocket = "websocket"
)

// ZKB is the zKillboard metadata block attached to every feed entry.
type ZKB struct {
	LocationID     int64    `json:"locationID,omitempty"`
	Hash           string   `json:"hash"`
	FittedValue    float64  `json:"fittedValue"`
	DroppedValue   float64  `json:"droppedValue"`
	DestroyedValue float64  `json:"destroyedValue"`
	TotalValue     float64  `json:"totalValue"`
	Points         int      `json:"points"`
	NPC            bool     `json:"npc"`
	Solo           bool     `json:"solo"`
	Awox           bool     `json:"awox"`
	ESI            string   `json:"esi,omitempty"`
	URL            string   `json:"url,omitempty"`
	Href           string   `json:"href,omitempty"`
	Labels         []string `json:"labels,omitempty"`
}

// RawEvent is one feed entry as published on the raw topic. Killmail is nil
// when the feed only delivered a pointer (kill id and hash).
type RawEvent struct {
	Source     string        `json:"source"`
	ReceivedAt time.Time     `json:"received_at"`
	KillID     int64         `json:"kill_id"`
	Killmail   *esi.Killmail `json:"killmail,omitempty"`
	ZKB        ZKB           `json:"zkb"`
}

// HasKillmail reports whether the event carries the killmail content.
func (e *RawEvent) HasKillmail() bool {
	return e.Killmail != nil && e.Killmail.KillmailID != 0
}

type redisQResponse struct {
	Package *struct {
		KillID   int64         `json:"killID"`
		Killmail *esi.Killmail `json:"killmail"`
		ZKB      ZKB           `json:"zkb"`
	} `json:"package"`
}

// DecodeRedisQ decodes a listen.php response. It returns nil and no error
// when the queue had nothing to hand out.
func DecodeRedisQ(body []byte) (*RawEvent, error) {
	var resp redisQResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode redisq response: %w", err)
	}
	if resp.Package == nil {
		return nil, nil
	}
	p := resp.Package
	ev := &RawEvent{
		Source:     SourceRedisQ,
		ReceivedAt: time.Now().UTC(),
		KillID:     p.KillID,
		Killmail:   p.Killmail,
		ZKB:        p.ZKB,
	}
	if ev.KillID == 0 && ev.HasKillmail() {
		ev.KillID = ev.Killmail.KillmailID
	}
	return ev, nil
}

// killstreamMessage is a websocket killstream entry: the ESI killmail
// fields at the top level with zkb alongside. Older messages carry only
// killID and zkb.
type killstreamMessage struct {
	esi.Killmail
	KillID int64 `json:"killID"`
	ZKB    *ZKB  `json:"zkb"`
}

// DecodeKillstream decodes one websocket message. Messages without a zkb
// block (subscription acks, tq status) return nil and no error.
func DecodeKillstream(msg []byte) (*RawEvent, error) {
	var m killstreamMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("decode killstream message: %w", err)
	}
	if m.ZKB == nil {
		return nil, nil
	}
	ev := &RawEvent{
		Source:     SourceWebsocket,
		ReceivedAt: time.Now().UTC(),
		KillID:     m.KillID,
		ZKB:        *m.ZKB,
	}
	if m.KillmailID != 0 {
		km := m.Killmail
		ev.Killmail = &km
		if ev.KillID == 0 {
			ev.KillID = km.KillmailID
		}
	}
	return ev, nil
}

// Marshal encodes the event for the raw topic.
func (e *RawEvent) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal raw event: %w", err)
	}
	return data, nil
}

// UnmarshalRawEvent decodes an event read from the raw topic.
func UnmarshalRawEvent(data []byte) (*RawEvent, error) {
	var ev RawEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal raw event: %w", err)
	}
	return &ev, nil
}
