// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package eventprocessor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
)

func TestHandlePoisonLogsAndDrops(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "info", Format: "json", Output: &buf})
	defer logging.Init(logging.DefaultConfig())

	topic := DeliveryTopic(3)
	before := testutil.ToFloat64(metrics.MessagesPoisoned.WithLabelValues(topic))

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	msg.Metadata.Set(middleware.PoisonedTopicKey, topic)
	msg.Metadata.Set(middleware.ReasonForPoisonedKey, "discord unavailable")
	msg.Metadata.Set(MetadataKillID, "123456")
	msg.Metadata.Set(MetadataCorrelationID, "abc123")

	if err := HandlePoison(msg); err != nil {
		t.Fatalf("HandlePoison() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.MessagesPoisoned.WithLabelValues(topic)) - before; got != 1 {
		t.Errorf("poisoned counter delta = %v, want 1", got)
	}
	out := buf.String()
	for _, want := range []string{
		`"component":"poison"`,
		`"level":"error"`,
		`"topic":"` + topic + `"`,
		`"kill_id":"123456"`,
		`"reason":"discord unavailable"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}
