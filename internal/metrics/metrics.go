// Package metrics provides Prometheus metrics for rssfeed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rssfeed"

var (
	SourceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Feed sources skipped during aggregation, by reason",
		},
		[]string{"reason"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	CacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Cache writes by status",
		},
		[]string{"status"},
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of full aggregation runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	AggregatedItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregated_items",
			Help:      "Number of items returned by an aggregation run",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)
)
