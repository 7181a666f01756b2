// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package eventprocessor

import "time"

// RouterConfig configures the Watermill router and its middleware.
type RouterConfig struct {
	CloseTimeout time.Duration

	// RetryMaxRetries is the number of retries after the first attempt.
	RetryMaxRetries int
	// RetryInterval is the fixed delay between attempts.
	RetryInterval time.Duration

	// PoisonQueueTopic receives messages that exhausted their retries.
	// Empty disables the poison queue.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns ten attempts one minute apart.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:     30 * time.Second,
		RetryMaxRetries:  9,
		RetryInterval:    time.Minute,
		PoisonQueueTopic: TopicPoison,
	}
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig listens on localhost only.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "./data/nats",
		JetStreamMaxMem:   64 << 20,
		JetStreamMaxStore: 1 << 30,
	}
}

// NATSConfig configures the JetStream publisher and subscriber.
type NATSConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int

	// QueueGroup and DurableName let several killfeed instances share one
	// consumer per topic.
	QueueGroup       string
	DurableName      string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration

	// TrackMsgID sends the message UUID as Nats-Msg-Id so the stream drops
	// republished kills inside its duplicate window.
	TrackMsgID bool
}

// DefaultNATSConfig returns settings for a single ordered consumer per topic.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:              url,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 << 20,
		QueueGroup:       "killfeed",
		DurableName:      "killfeed",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       -1,
		MaxAckPending:    1,
		CloseTimeout:     30 * time.Second,
		TrackMsgID:       true,
	}
}

// StreamConfig configures the JetStream stream backing every topic.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig keeps a day of kills.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "KILLFEED",
		Subjects:        []string{StreamSubjects},
		MaxAge:          24 * time.Hour,
		MaxBytes:        1 << 30,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}
