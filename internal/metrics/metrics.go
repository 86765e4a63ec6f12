// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the recommendation engine:
// - Prediction throughput per task
// - Feedback ingestion and ledger growth
// - Retraining cycles and model versions
// - API endpoint latency and status codes

var (
	// Prediction Metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_predictions_total",
			Help: "Total number of predictions served, by task",
		},
		[]string{"task"},
	)

	// Feedback Metrics
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_feedback_total",
			Help: "Total number of feedback entries recorded, by prediction type",
		},
		[]string{"prediction_type"},
	)

	LedgerSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_feedback_ledger_entries",
			Help: "Current number of entries in the feedback ledger",
		},
	)

	// Retraining Metrics
	RetrainingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_retrainings_total",
			Help: "Total number of completed retraining cycles",
		},
	)

	RetrainingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_retraining_failures_total",
			Help: "Total number of failed retraining cycles",
		},
	)

	RetrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advisor_retraining_duration_seconds",
			Help:    "Duration of retraining cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_model_version",
			Help: "Version of the currently published model set",
		},
	)

	TrainingRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_training_rows",
			Help: "Number of rows in the training corpus of the published model set",
		},
	)

	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_events_published_total",
			Help: "Total number of events published to the bus, by topic",
		},
		[]string{"topic"},
	)
)

// PredictionServed records one served prediction for a task.
func PredictionServed(task string) {
	PredictionsTotal.WithLabelValues(task).Inc()
}

// FeedbackRecorded records one ingested feedback entry.
func FeedbackRecorded(predictionType string) {
	FeedbackTotal.WithLabelValues(predictionType).Inc()
}

// SetLedgerSize updates the feedback ledger size gauge.
func SetLedgerSize(n int) {
	LedgerSize.Set(float64(n))
}

// RetrainingCompleted records one successful retraining cycle.
func RetrainingCompleted(duration time.Duration) {
	RetrainingsTotal.Inc()
	RetrainingDuration.Observe(duration.Seconds())
}

// RetrainingFailed records one failed retraining cycle.
func RetrainingFailed() {
	RetrainingFailures.Inc()
}

// SetModelVersion updates the published model version gauge.
func SetModelVersion(version int) {
	ModelVersion.Set(float64(version))
}

// SetTrainingRows updates the training corpus size gauge.
func SetTrainingRows(n int) {
	TrainingRows.Set(float64(n))
}

// RecordAPIRequest records latency and count for one API request.
func RecordAPIRequest(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	APIRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
}

// EventPublished records one event published to the bus.
func EventPublished(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}
