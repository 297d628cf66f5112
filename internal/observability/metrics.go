// Package observability provides metrics and tracing instrumentation.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogCacheHits counts store reads answered without an upstream fetch,
	// by read path (detail, list, search, stream).
	CatalogCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onstream_catalog_cache_hits_total",
		Help: "Total catalog store reads served from cache",
	}, []string{"path"})

	// CatalogCacheMisses counts store reads that triggered an upstream fetch.
	CatalogCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onstream_catalog_cache_misses_total",
		Help: "Total catalog store reads that fell through to upstream",
	}, []string{"path"})

	// UpstreamRequests counts outbound provider calls by endpoint.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onstream_upstream_requests_total",
		Help: "Total outbound catalog/source provider requests",
	}, []string{"provider", "endpoint"})

	// UpstreamErrors counts degraded provider calls (transport failure or non-2xx).
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onstream_upstream_errors_total",
		Help: "Total upstream calls degraded to empty results",
	}, []string{"provider", "endpoint"})

	// GatewayMemoHits counts upstream responses served from the short-lived
	// gateway memoization instead of the network.
	GatewayMemoHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onstream_gateway_memo_hits_total",
		Help: "Total upstream responses served from the gateway memo cache",
	}, []string{"provider"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onstream_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// SweepDeletedRows counts rows removed by the expiry sweep, by collection.
	SweepDeletedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onstream_sweep_deleted_rows_total",
		Help: "Total expired rows hard-deleted by the sweep",
	}, []string{"collection"})
)
