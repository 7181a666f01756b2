// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package eventprocessor

import "fmt"

// RegisterHandlers adds the process handler, one delivery handler per shard
// and the poison consumer to r, all consuming from t.
func RegisterHandlers(r *Router, t *Transport, p *Processor, d *Dispatcher, shards int) {
	r.AddConsumerHandler("process-kills", TopicRaw, t.Subscriber, p.HandleRaw)
	for i, topic := range DeliveryTopics(shards) {
		r.AddConsumerHandler(fmt.Sprintf("deliver-%d", i), topic, t.Subscriber, d.HandleTask)
	}
	r.AddConsumerHandler("poison", TopicPoison, t.Subscriber, HandlePoison)
}
