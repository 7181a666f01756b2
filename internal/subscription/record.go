// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package subscription

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/killfeed/internal/models"
)

// guildRecord is the persisted shape of one guild:
//
//	{"channels": {"<channel>": {"subscriptions": {"<type><id>": {...}}}}}
type guildRecord struct {
	Channels map[string]channelRecord `json:"channels"`
}

type channelRecord struct {
	Subscriptions map[string]subscriptionRecord `json:"subscriptions"`
}

type subscriptionRecord struct {
	SubType   string  `json:"subType"`
	ID        int64   `json:"id,omitempty"`
	MinValue  float64 `json:"minValue"`
	LimitType string  `json:"limitType,omitempty"`
	LimitIDs  idList  `json:"limitIds,omitempty"`
	KillType  string  `json:"killType,omitempty"`
}

// idList is written as a comma separated string. Older records hold a
// string, a single number or an array; all three are read.
type idList []int64

func (l idList) MarshalJSON() ([]byte, error) {
	return json.Marshal(models.LocationFilter{IDs: l}.FormatIDs())
}

func (l *idList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		ids, err := models.ParseIDList(s)
		if err != nil {
			return err
		}
		*l = ids
		return nil
	case data[0] == '[':
		var ids []int64
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}
		*l = ids
		return nil
	default:
		id, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid limitIds %s", data)
		}
		*l = idList{id}
		return nil
	}
}

func encodeGuild(g Guild) ([]byte, error) {
	rec := guildRecord{Channels: make(map[string]channelRecord, len(g))}
	for channelID, ch := range g {
		subs := make(map[string]subscriptionRecord, len(ch))
		for key, sub := range ch {
			r := subscriptionRecord{
				SubType:   string(sub.Type),
				ID:        sub.ID,
				MinValue:  sub.MinValue,
				LimitType: string(models.LocationNone),
				KillType:  string(sub.Direction),
			}
			if sub.Location.Active() {
				r.LimitType = string(sub.Location.Kind)
				r.LimitIDs = sub.Location.IDs
			}
			subs[key.String()] = r
		}
		rec.Channels[channelID] = channelRecord{Subscriptions: subs}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal guild record: %w", err)
	}
	return data, nil
}

// decodeGuild parses a persisted record and migrates it to the current
// shape. Entries that cannot be migrated are dropped with a warning; only
// a record that is not JSON at all is an error.
func decodeGuild(guildID string, data []byte, logger zerolog.Logger) (Guild, error) {
	var rec guildRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode guild %s: %w", guildID, err)
	}

	g := make(Guild, len(rec.Channels))
	for channelID, chRec := range rec.Channels {
		ch := make(Channel, len(chRec.Subscriptions))
		for recordKey, r := range chRec.Subscriptions {
			sub, err := migrate(r)
			if err != nil {
				logger.Warn().Err(err).
					Str("guild_id", guildID).
					Str("channel_id", channelID).
					Str("key", recordKey).
					Msg("Dropping unreadable subscription")
				continue
			}
			sub.Destination = models.Destination{GuildID: guildID, ChannelID: channelID}
			ch[sub.Key()] = sub
		}
		if len(ch) > 0 {
			g[channelID] = ch
		}
	}
	return g, nil
}

// migrate applies the load-time defaults: a missing limitType is none, a
// missing killType is both, shipType is ship and limitIds becomes an id set.
func migrate(r subscriptionRecord) (models.Subscription, error) {
	var sub models.Subscription

	typ, err := models.ParseSubjectType(r.SubType)
	if err != nil {
		return sub, err
	}
	dir, err := models.ParseKillDirection(r.KillType)
	if err != nil {
		return sub, err
	}
	kind, err := models.ParseLocationKind(r.LimitType)
	if err != nil {
		return sub, err
	}

	sub = models.Subscription{
		Type:      typ,
		ID:        r.ID,
		MinValue:  r.MinValue,
		Direction: dir,
		Location:  models.LocationFilter{Kind: kind},
	}
	if !typ.RequiresID() {
		sub.ID = 0
	}
	if kind != models.LocationNone {
		sub.Location.IDs = normalizeIDs(r.LimitIDs)
		if len(sub.Location.IDs) == 0 {
			sub.Location = models.LocationFilter{Kind: models.LocationNone}
		}
	}
	if sub.MinValue < 0 {
		sub.MinValue = 0
	}
	if typ.RequiresID() && sub.ID <= 0 {
		return sub, fmt.Errorf("subject type %s without id", typ)
	}
	return sub, nil
}

// normalizeIDs sorts and deduplicates ids, dropping non-positive values.
func normalizeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
