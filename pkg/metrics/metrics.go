// Package metrics exposes Prometheus instrumentation for the aggregation
// pipeline: source fetch outcomes, circuit breaker state, and run totals.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SourceFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cost_advisor_source_fetch_total",
			Help: "Total source fetch attempts by outcome",
		},
		[]string{"source", "status"}, // status: success, failure, rejected
	)

	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cost_advisor_source_fetch_duration_seconds",
			Help:    "Duration of source fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cost_advisor_circuit_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	RecommendationsProduced = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cost_advisor_recommendations",
			Help: "Recommendations in the latest aggregation run by priority",
		},
		[]string{"priority"},
	)

	AggregationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cost_advisor_aggregation_runs_total",
			Help: "Completed aggregation runs by degradation status",
		},
		[]string{"status"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cost_advisor_cache_hits_total",
			Help: "Source cache hits per source",
		},
		[]string{"source"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cost_advisor_cache_misses_total",
			Help: "Source cache misses per source",
		},
		[]string{"source"},
	)
)
