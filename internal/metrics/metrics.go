// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultHit   = "hit"
	ResultMiss  = "miss"
)

var (
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recshelf_storage_operations_total",
			Help: "Storage facade calls by backend, operation and result",
		},
		[]string{"backend", "op", "result"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recshelf_storage_operation_duration_seconds",
			Help:    "Duration of storage facade calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	TransferItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recshelf_transfer_items_total",
			Help: "Visitor recommendations copied into new accounts, by result",
		},
		[]string{"result"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recshelf_cache_requests_total",
			Help: "Query cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recshelf_http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	VisitorStores = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recshelf_visitor_stores_active",
			Help: "Visitor stores held in memory",
		},
	)
)

// RecordStorageOp records one storage facade call.
func RecordStorageOp(backend, op string, duration time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	StorageOperations.WithLabelValues(backend, op, result).Inc()
	StorageOperationDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordTransferItem counts one transfer insert attempt.
func RecordTransferItem(ok bool) {
	if ok {
		TransferItems.WithLabelValues(ResultOK).Inc()
		return
	}
	TransferItems.WithLabelValues(ResultError).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheRequests.WithLabelValues(ResultHit).Inc()
		return
	}
	CacheRequests.WithLabelValues(ResultMiss).Inc()
}

// RecordHTTPRequest counts one served request. route is the router pattern,
// not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
