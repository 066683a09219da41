package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_updated_total",
		Help: "Total number of orders updated",
	})

	OrdersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_deleted_total",
		Help: "Total number of orders deleted",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order mutations",
	}, []string{"operation", "reason"})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Total number of stock increments and decrements",
	}, []string{"direction"})

	TransactionRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transaction_retries_total",
		Help: "Total number of transactions re-run after a serialization failure or deadlock",
	})

	StockLockLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_lock_latency_seconds",
		Help:    "Time spent acquiring the product row lock",
		Buckets: prometheus.DefBuckets,
	})

	IndexOperationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_index_operations_failed_total",
		Help: "Total number of failed search index operations",
	}, []string{"operation"})

	IndexEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_index_events_dropped_total",
		Help: "Total number of index events dropped because the queue was full",
	})

	IndexSyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_index_sync_duration_seconds",
		Help:    "Duration of full index resynchronizations",
		Buckets: []float64{.1, .5, 1, 5, 15, 60, 300},
	})

	SearchFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_engine_fallback_total",
		Help: "Total number of engine searches served from the database after an engine error",
	})

	CacheOperationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_operations_failed_total",
		Help: "Total number of failed cache operations",
	}, []string{"operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
