// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package models

import (
	"strconv"
	"time"
)

// Tag says which side of a kill a delivery is about. It selects the message color.
type Tag string

const (
	// TagLoss: the subject was the victim.
	TagLoss Tag = "loss"
	// TagKill: the subject was among the attackers.
	TagKill Tag = "kill"
	// TagNeutral is used for public and location subscriptions.
	TagNeutral Tag = "neutral"
)

// DeliveryTask is one kill to be sent to one channel because of one subscription.
type DeliveryTask struct {
	ID          string       `json:"id"`
	Destination Destination  `json:"destination"`
	SubjectType SubjectType  `json:"subject_type"`
	SubjectID   int64        `json:"subject_id,omitempty"`
	Tag         Tag          `json:"tag"`
	Kill        EnrichedKill `json:"kill"`
	CreatedAt   time.Time    `json:"created_at"`
}

// SubscriptionKey returns the key of the subscription that produced the task.
func (t *DeliveryTask) SubscriptionKey() SubscriptionKey {
	return SubscriptionKey{Type: t.SubjectType, ID: t.SubjectID}
}

// DedupKey identifies the (channel, kill) pair. The subscription is not part
// of the key: a channel receives a kill once however many subscriptions match.
func (t *DeliveryTask) DedupKey() string {
	return t.Destination.ChannelID + ":" + strconv.FormatInt(t.Kill.Kill.ID, 10)
}
