// Package metrics provides the centralized Prometheus metrics registry for
// the Substack client. All metrics are defined in their respective packages
// (client, cache, paginate, ratelimit) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - substack_requests_total{endpoint, status} (Counter): Requests by endpoint and outcome
//     (HTTP status, "cached", or "network_error")
//   - substack_request_duration_seconds{endpoint} (Histogram): Logical request duration,
//     including backoff waits
//   - substack_errors_total{class} (Counter): Failures by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - substack_retries_total{error_class} (Counter): Retry attempts by error class
//   - substack_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - substack_retry_exhausted_total{error_class} (Counter): Requests that exhausted the retry budget
//
// Cache Metrics (pkg/cache):
//   - substack_cache_hits_total{layer="redis"} (Counter): Response cache hits
//   - substack_cache_misses_total (Counter): Response cache misses
//   - substack_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - substack_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pagination Metrics (pkg/paginate):
//   - substack_pages_fetched_total{mode} (Counter): Pages fetched by pagination mode
//   - substack_collections_truncated_total (Counter): Collections ended early by an
//     absorbed fetch failure
//
// Pacing Metrics (pkg/ratelimit):
//   - substack_pacer_wait_seconds_total (Counter): Time spent in courtesy waits
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(substack_cache_hits_total[5m])) /
//   (sum(rate(substack_cache_hits_total[5m])) + sum(rate(substack_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(substack_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(substack_request_duration_seconds_bucket[5m]))
//
//   # Retry Exhaustion by Class
//   rate(substack_retry_exhausted_total[5m])
