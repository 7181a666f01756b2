// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package eventprocessor

import (
	"strconv"

	"github.com/spaolacci/murmur3"
)

// Topics.
const (
	TopicRaw    = "kills.raw"
	TopicPoison = "kills.poison"

	// TopicDeliverPrefix is followed by the shard number.
	TopicDeliverPrefix = "kills.deliver."

	// StreamSubjects covers every topic above.
	StreamSubjects = "kills.>"
)

// DefaultDeliveryShards is the number of delivery topics, and therefore the
// number of deliveries that may run concurrently.
const DefaultDeliveryShards = 10

// DeliveryTopic returns the topic for shard.
func DeliveryTopic(shard int) string {
	return TopicDeliverPrefix + strconv.Itoa(shard)
}

// DeliveryTopics returns the topics for shards 0..n-1.
func DeliveryTopics(n int) []string {
	if n < 1 {
		n = 1
	}
	topics := make([]string, n)
	for i := range topics {
		topics[i] = DeliveryTopic(i)
	}
	return topics
}

// ShardFor maps a channel to one of n shards. The mapping is murmur3 x86_32
// with seed 0 and must not change, since durable consumers are per shard.
func ShardFor(channelID string, n int) int {
	if n <= 1 {
		return 0
	}
	// The digest walks blocks by slice index; Sum32 does raw pointer
	// arithmetic that checkptr rejects under -race.
	h := murmur3.New32()
	_, _ = h.Write([]byte(channelID))
	return int(h.Sum32() % uint32(n))
}
