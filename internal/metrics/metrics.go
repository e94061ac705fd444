// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Metric groups:
//   - HTTP: request counts and latency by route and status
//   - Recommendations: per-tier counts, degraded batches
//   - Signals: historical fallbacks by adapter
//   - Retraining: cycles, discards, active model version info
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics

	// HTTPRequestsTotal counts API requests by route, method, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration tracks request latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockpilot_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"route"},
	)

	// Recommendation metrics

	// RecommendationsTotal counts generated recommendations by confidence tier.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_recommendations_total",
			Help: "Total number of recommendations generated, by confidence tier",
		},
		[]string{"tier"},
	)

	// DegradedBatchesTotal counts recommendation batches generated without
	// an active model.
	DegradedBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockpilot_degraded_batches_total",
			Help: "Total number of recommendation batches generated in degraded mode",
		},
	)

	// ProductErrorsTotal counts per-product generation failures that were
	// skipped without failing the batch.
	ProductErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockpilot_product_errors_total",
			Help: "Total number of per-product recommendation failures",
		},
	)

	// Signal metrics

	// SignalFallbacksTotal counts historical fallbacks by adapter.
	SignalFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_signal_fallbacks_total",
			Help: "Total number of external signal fallbacks, by adapter",
		},
		[]string{"adapter"},
	)

	// Retraining metrics

	// RetrainingRunsTotal counts retraining cycles by outcome.
	RetrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_retraining_runs_total",
			Help: "Total number of retraining cycles, by outcome (activated, discarded, failed)",
		},
		[]string{"outcome"},
	)

	// FeedbackSubmissionsTotal counts feedback submissions by result.
	FeedbackSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_feedback_submissions_total",
			Help: "Total number of feedback submissions, by result (accepted, duplicate)",
		},
		[]string{"result"},
	)

	// ActiveModelInfo carries the active model version ID as a label on a
	// gauge pinned to 1.
	ActiveModelInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stockpilot_active_model_info",
			Help: "Active model version (value is always 1; version in the label)",
		},
		[]string{"version_id"},
	)
)

// SetActiveModel resets the active-model gauge to the given version.
func SetActiveModel(versionID string) {
	ActiveModelInfo.Reset()
	ActiveModelInfo.WithLabelValues(versionID).Set(1)
}
