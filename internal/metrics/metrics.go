// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

// Package metrics provides Prometheus instrumentation for Affinity:
//
//   - Profile store query performance (DuckDB)
//   - Cache efficiency per tier and domain
//   - Scoring pipeline latency and fault counts
//   - API endpoint latency and throughput
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Profile store metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_store_query_duration_seconds",
			Help:    "Duration of profile store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_store_query_errors_total",
			Help: "Total number of profile store query errors",
		},
		[]string{"operation"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier", "domain"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"tier", "domain"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_cache_evictions_total",
			Help: "Total number of cache entries evicted (expired or invalidated)",
		},
		[]string{"tier"},
	)

	CacheKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "affinity_cache_entries",
			Help: "Current number of cache entries",
		},
		[]string{"tier"},
	)

	CacheBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_cache_breaker_open",
			Help: "1 when the persistent cache circuit breaker is open, 0 otherwise",
		},
	)

	// Scoring pipeline metrics
	ScoringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_scoring_duration_seconds",
			Help:    "Duration of per-scorer computation in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"scorer"},
	)

	ScoringFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_scoring_faults_total",
			Help: "Total number of recovered per-candidate scoring faults",
		},
		[]string{"scorer"},
	)

	ScoringBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_scoring_batches_total",
			Help: "Total number of candidate batches scored",
		},
	)

	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_recommendation_requests_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"}, // "hit", "computed", "error"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affinity_recommendation_duration_seconds",
			Help:    "End-to-end recommendation generation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordStoreQuery records a profile store query observation.
func RecordStoreQuery(operation string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request observation.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordScorer records a single scorer observation.
func RecordScorer(scorer string, start time.Time) {
	ScoringDuration.WithLabelValues(scorer).Observe(time.Since(start).Seconds())
}
