// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package metrics holds the Prometheus collectors for killfeed. Collectors are
// registered on the default registry at init and exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	KillsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_kills_received_total",
			Help: "Kills received from the zKillboard feed",
		},
		[]string{"source"}, // redisq, websocket
	)

	IngestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_ingest_errors_total",
			Help: "Errors while reading the zKillboard feed",
		},
		[]string{"source"},
	)

	KillsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_kills_processed_total",
			Help: "Kills run through normalize, enrich and match",
		},
		[]string{"result"}, // matched, unmatched, error
	)

	ProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "killfeed_process_duration_seconds",
			Help:    "Time to normalize, enrich and route one kill",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Matching
	DeliveryTasksRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_delivery_tasks_routed_total",
			Help: "Delivery tasks produced by the match engine",
		},
		[]string{"subject_type", "tag"},
	)

	// Delivery
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_deliveries_total",
			Help: "Delivery attempts by outcome",
		},
		[]string{"outcome"}, // sent, duplicate, locked, permission_denied, channel_missing, failed
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "killfeed_delivery_duration_seconds",
			Help:    "Time spent sending one kill message to Discord",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	SubscriptionsRetracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_subscriptions_retracted_total",
			Help: "Subscriptions removed automatically after delivery failures",
		},
		[]string{"reason"},
	)

	// Messaging
	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_messages_published_total",
			Help: "Messages published to the event router by topic group",
		},
		[]string{"topic", "result"},
	)

	MessagesPoisoned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_messages_poisoned_total",
			Help: "Messages dropped after exhausting retries",
		},
		[]string{"topic"},
	)

	KillsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "killfeed_kills_deduplicated_total",
			Help: "Kills dropped at ingestion because the feed repeated them",
		},
	)

	// Subscription store
	SubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "killfeed_subscriptions_active",
			Help: "Subscriptions currently held in the index",
		},
	)

	SubscriptionPersistErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_subscription_persist_errors_total",
			Help: "Failed writes of a guild subscription record",
		},
		[]string{"backend"},
	)

	// Reference data
	RefDataLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_refdata_lookups_total",
			Help: "Reference data lookups by kind and result",
		},
		[]string{"kind", "result"}, // hit, miss, unknown
	)

	RefDataFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_refdata_flushes_total",
			Help: "Reference data cache file rewrites",
		},
		[]string{"result"},
	)

	// ESI
	ESIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_esi_requests_total",
			Help: "Requests to the EVE Swagger Interface",
		},
		[]string{"endpoint", "status"},
	)

	ESIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "killfeed_esi_request_duration_seconds",
			Help:    "ESI request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Command API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_api_requests_total",
			Help: "Command API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "killfeed_api_request_duration_seconds",
			Help:    "Command API latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "killfeed_api_requests_in_flight",
			Help: "Command API requests being served",
		},
	)
)

// Delivery outcomes.
const (
	OutcomeSent             = "sent"
	OutcomeDuplicate        = "duplicate"
	OutcomeLocked           = "locked"
	OutcomePermissionDenied = "permission_denied"
	OutcomeChannelMissing   = "channel_missing"
	OutcomeFailed           = "failed"
)

// RecordKillReceived counts one kill read from a feed source.
func RecordKillReceived(source string) {
	KillsReceived.WithLabelValues(source).Inc()
}

// RecordIngestError counts a feed read failure.
func RecordIngestError(source string) {
	IngestErrors.WithLabelValues(source).Inc()
}

// RecordKillProcessed records the result and duration of processing one kill.
func RecordKillProcessed(tasks int, duration time.Duration, err error) {
	ProcessDuration.Observe(duration.Seconds())
	switch {
	case err != nil:
		KillsProcessed.WithLabelValues("error").Inc()
	case tasks == 0:
		KillsProcessed.WithLabelValues("unmatched").Inc()
	default:
		KillsProcessed.WithLabelValues("matched").Inc()
	}
}

// RecordRouted counts one delivery task produced by the match engine.
func RecordRouted(subjectType, tag string) {
	DeliveryTasksRouted.WithLabelValues(subjectType, tag).Inc()
}

// RecordDelivery records a delivery outcome. Duration is observed only for
// attempts that reached Discord.
func RecordDelivery(outcome string, duration time.Duration) {
	Deliveries.WithLabelValues(outcome).Inc()
	if duration > 0 {
		DeliveryDuration.Observe(duration.Seconds())
	}
}

// RecordPublish counts one publish to topic. Delivery shard topics should be
// passed as their common prefix to keep cardinality flat.
func RecordPublish(topic string, err error) {
	if err != nil {
		MessagesPublished.WithLabelValues(topic, "error").Inc()
		return
	}
	MessagesPublished.WithLabelValues(topic, "ok").Inc()
}

// RecordPoisoned counts a message that reached the poison queue.
func RecordPoisoned(topic string) {
	MessagesPoisoned.WithLabelValues(topic).Inc()
}

// RecordDuplicateKill counts a kill the feed delivered more than once.
func RecordDuplicateKill() {
	KillsDeduplicated.Inc()
}

// RecordRetraction counts n subscriptions removed for reason.
func RecordRetraction(reason string, n int) {
	if n > 0 {
		SubscriptionsRetracted.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordPersistError counts a failed subscription write.
func RecordPersistError(backend string) {
	SubscriptionPersistErrors.WithLabelValues(backend).Inc()
}

// RecordRefDataLookup counts a reference data lookup.
func RecordRefDataLookup(kind, result string) {
	RefDataLookups.WithLabelValues(kind, result).Inc()
}

// RecordRefDataFlush counts a cache file rewrite.
func RecordRefDataFlush(err error) {
	if err != nil {
		RefDataFlushes.WithLabelValues("error").Inc()
		return
	}
	RefDataFlushes.WithLabelValues("ok").Inc()
}

// RecordESIRequest records one ESI round trip.
func RecordESIRequest(endpoint, status string, duration time.Duration) {
	ESIRequests.WithLabelValues(endpoint, status).Inc()
	ESIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAPIRequest records one command API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIRequestsInFlight.Inc()
		return
	}
	APIRequestsInFlight.Dec()
}
