// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package api

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/tomtom215/killfeed/internal/models"
)

// ErrInvalidLink is returned for anything that is not a zKillboard
// entity or location page.
var ErrInvalidLink = errors.New("invalid link format, expected a zKillboard link")

var zkillLink = regexp.MustCompile(
	`^https://zkillboard\.com/(corporation|character|alliance|system|constellation|region|ship|group)/(\d+)/(losses|kills)?/?$`)

// Link is a parsed zKillboard page such as
// https://zkillboard.com/corporation/98000001/losses/.
type Link struct {
	Type      models.SubjectType
	ID        int64
	Direction models.KillDirection
}

// ParseLink parses a zKillboard page URL. The kills or losses suffix
// becomes the subscription direction.
func ParseLink(raw string) (Link, error) {
	m := zkillLink.FindStringSubmatch(raw)
	if m == nil {
		return Link{}, ErrInvalidLink
	}

	t, err := models.ParseSubjectType(m[1])
	if err != nil {
		return Link{}, ErrInvalidLink
	}
	id, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || id <= 0 {
		return Link{}, ErrInvalidLink
	}
	dir, err := models.ParseKillDirection(m[3])
	if err != nil {
		return Link{}, ErrInvalidLink
	}
	return Link{Type: t, ID: id, Direction: dir}, nil
}

// Key is the subscription key the link refers to.
func (l Link) Key() models.SubscriptionKey {
	return models.SubscriptionKey{Type: l.Type, ID: l.ID}
}
