// Package metrics exposes the Prometheus registry used by the SWAPI roster.
// All metrics are defined in their respective packages (swapi, cache,
// ratelimit, enrich, pagination, roster) to keep them next to the code that
// updates them.
//
// This package provides the HTTP handler and a reference of every series.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the roster packages.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the metrics registered on Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves all registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/swapi):
//   - swapi_requests_total{resource, status} (Counter): Requests by resource and HTTP status ("cache" for fresh hits)
//   - swapi_request_duration_seconds{resource} (Histogram): Request duration by resource
//   - swapi_errors_total{class} (Counter): Errors by class (network, http, parse)
//   - swapi_retries_total{class} (Counter): Retry attempts by error class
//   - swapi_retry_exhausted_total{class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - swapi_cache_hits_total{state} (Counter): Cache hits by entry state (fresh, stale)
//   - swapi_cache_misses_total (Counter): Cache misses
//   - swapi_cache_stored_bytes_total (Counter): Bytes written to the cache
//   - swapi_conditional_requests_total (Counter): Conditional requests sent
//   - swapi_304_responses_total (Counter): 304 Not Modified responses
//   - swapi_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Budget Metrics (pkg/ratelimit):
//   - swapi_budget_remaining (Gauge): Requests left in the current window
//   - swapi_budget_blocks_total (Counter): Requests blocked by an exhausted budget
//   - swapi_budget_throttles_total (Counter): Requests delayed by a low budget
//
// Enrichment Metrics (pkg/enrich):
//   - swapi_enrich_skipped_total{kind, class} (Counter): Vehicles/species left out after a failed fetch
//   - swapi_enrich_duration_seconds{kind} (Histogram): Time to enrich one reference list
//   - swapi_enrich_jobs_total{kind} (Counter): Jobs processed by the worker pool
//   - swapi_enrich_queue_depth (Gauge): Jobs waiting for a worker
//   - swapi_detail_failures_total{resource} (Counter): Detail views degraded to "Error"
//
// Pagination and Roster Metrics (pkg/pagination, pkg/roster):
//   - swapi_pages_fetched_total{outcome} (Counter): Pages fetched by outcome (ok, error)
//   - swapi_roster_characters (Gauge): Characters held in the roster
//   - swapi_roster_duplicates_total (Counter): Characters dropped as duplicates
//   - swapi_roster_loads_total{outcome} (Counter): Roster loads by outcome
//   - swapi_roster_load_duration_seconds (Histogram): Duration of a full load
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(swapi_cache_hits_total[5m])) /
//   (sum(rate(swapi_cache_hits_total[5m])) + sum(rate(swapi_cache_misses_total[5m])))
//
//   # Budget Status
//   swapi_budget_remaining < 1000
//
//   # Enrichment Skip Rate
//   sum(rate(swapi_enrich_skipped_total[5m])) by (kind)
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(swapi_request_duration_seconds_bucket[5m]))
