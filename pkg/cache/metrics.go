package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/rest-client/pkg/metrics"
)

var factory = promauto.With(metrics.Registry)

var (
	// CacheHits tracks cache hits by kind ("fresh", "revalidated")
	CacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rest_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"kind"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "rest_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// CacheSize holds the size of the most recently stored entry
	CacheSize = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "rest_cache_size_bytes",
			Help: "Size in bytes of the most recently stored cache entry",
		},
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "rest_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks requests sent with If-None-Match or If-Modified-Since
	ConditionalRequestsSent = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "rest_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rest_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
