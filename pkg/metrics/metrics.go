// Package metrics exposes the Prometheus metrics of the REST client packages.
// Metrics are declared with promauto in the packages that update them
// (client, fanout, cache); this package serves and documents them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer the client, fanout and cache packages build
// their metrics with (promauto.With(Registry)). It is read once at package
// initialisation.
var Registry = prometheus.DefaultRegisterer

// Handler returns an HTTP handler serving the metrics of the default
// Prometheus gatherer, which Registry feeds.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - rest_requests_total{method, status} (Counter): Transport calls by method and HTTP status ("network_error" on failure)
//   - rest_request_duration_seconds{method} (Histogram): Transport call duration
//   - rest_errors_total{class} (Counter): Failed attempts by class (client, server, network, configuration)
//
// Retry Metrics (pkg/client):
//   - rest_retries_total{error_class} (Counter): Retries scheduled
//   - rest_retry_backoff_seconds{error_class} (Histogram): Backoff slept before a retry
//   - rest_retry_exhausted_total{error_class} (Counter): Operations that used up every attempt
//
// Fan-out Metrics (pkg/fanout):
//   - rest_fanout_in_flight (Gauge): Operations currently executing
//   - rest_fanout_operations_total{outcome} (Counter): succeeded, failed, cancelled
//
// Cache Metrics (pkg/cache):
//   - rest_cache_hits_total{kind} (Counter): fresh and revalidated hits
//   - rest_cache_misses_total (Counter): Cache misses
//   - rest_cache_size_bytes (Gauge): Size of the most recently stored entry
//   - rest_304_responses_total (Counter): 304 Not Modified responses
//   - rest_conditional_requests_total (Counter): Requests sent with If-None-Match or If-Modified-Since
//   - rest_cache_errors_total{operation} (Counter): Redis operation errors
//
// Example Prometheus Queries:
//
//   # Retry rate per error class
//   sum by (error_class) (rate(rest_retries_total[5m]))
//
//   # Share of operations that exhausted retries
//   sum(rate(rest_retry_exhausted_total[5m])) / sum(rate(rest_requests_total[5m]))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(rest_request_duration_seconds_bucket[5m]))
//
//   # Cache hit rate
//   sum(rate(rest_cache_hits_total[5m])) /
//   (sum(rate(rest_cache_hits_total[5m])) + sum(rate(rest_cache_misses_total[5m])))
