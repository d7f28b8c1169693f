package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StockInTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_stock_in_total",
		Help: "Total number of stock-in operations",
	})

	StockOutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_stock_out_total",
		Help: "Total number of stock-out operations",
	})

	StockAdjustmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_stock_adjustments_total",
		Help: "Total number of stock adjustments",
	})

	StockOperationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_stock_operations_failed_total",
		Help: "Total number of failed stock operations",
	}, []string{"reason"})

	InsufficientStockTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_insufficient_stock_total",
		Help: "Total number of stock-outs rejected for insufficient stock",
	})

	LowStockNotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_low_stock_notifications_total",
		Help: "Total number of low-stock notifications queued",
	})

	WholesaleOrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_wholesale_created_total",
		Help: "Total number of wholesale orders created",
	})

	WholesaleOrdersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_wholesale_deleted_total",
		Help: "Total number of wholesale orders deleted",
	})

	OrdersAggregatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_aggregated_total",
		Help: "Total number of order records merged by the aggregator",
	})

	OrderAggregationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orders_aggregation_latency_seconds",
		Help:    "Latency of multi-source order aggregation",
		Buckets: prometheus.DefBuckets,
	})

	AggregatorCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_aggregator_cache_total",
		Help: "Aggregator snapshot cache lookups",
	}, []string{"result"})

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
