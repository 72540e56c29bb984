// Package metrics exposes prometheus collectors for the match and delivery pipeline.
package metrics

import (
	"database/sql"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dinq_match"

var (
	proposalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interest_proposals_total",
		Help:      "Interest proposals by result (created, duplicate, rejected, matched_already).",
	}, []string{"result"})

	matchesConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "matches_confirmed_total",
		Help:      "Pairs transitioned to matched.",
	})

	eventsEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_events_enqueued_total",
		Help:      "Notification events enqueued by template kind.",
	}, []string{"kind"})

	deliveryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_delivery_attempts_total",
		Help:      "Delivery attempts by outcome (sent, retry, failed, skipped).",
	}, []string{"outcome"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "delivery_batch_duration_seconds",
		Help:      "Wall time of one delivery batch.",
		Buckets:   prometheus.DefBuckets,
	})
)

// RecordProposal counts one interest proposal outcome.
func RecordProposal(result string) {
	proposalsTotal.WithLabelValues(result).Inc()
}

// RecordMatchConfirmed counts one confirmed mutual match.
func RecordMatchConfirmed() {
	matchesConfirmedTotal.Inc()
}

// RecordEventEnqueued counts one enqueued notification event.
func RecordEventEnqueued(kind string) {
	eventsEnqueuedTotal.WithLabelValues(kind).Inc()
}

// RecordDeliveryAttempt counts one delivery attempt outcome.
func RecordDeliveryAttempt(outcome string) {
	deliveryAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveBatchDuration records a batch duration in seconds.
func ObserveBatchDuration(seconds float64) {
	batchDuration.Observe(seconds)
}

// RegisterDBStats exposes connection pool stats of db on the default registry.
// Registering the same pool twice is a no-op.
func RegisterDBStats(db *sql.DB) error {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, namespace))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
