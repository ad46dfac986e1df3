// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inventory"

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Store scope metrics
	StoreScopeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_scope_duration_seconds",
			Help:      "Duration of transactional store scopes in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Ledger metrics
	StockMovementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Committed stock movements by type",
		},
		[]string{"type"},
	)

	InsufficientStockTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_stock_total",
			Help:      "Conditional decrements rejected for insufficient stock",
		},
	)

	// Order and procurement metrics
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders by resulting status",
		},
		[]string{"status"},
	)

	UnitsReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_units_received_total",
			Help:      "Units received against purchase orders",
		},
	)

	// Background job metrics
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Background jobs by type and result",
		},
		[]string{"type", "result"},
	)

	LowStockAlertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_alerts_sent_total",
			Help:      "Low-stock alert e-mails sent",
		},
	)
)

// TrackScope returns a function that records the duration of a store scope.
func TrackScope(operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		StoreScopeDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}

// RecordMovements counts committed movements of the given type.
func RecordMovements(movementType string, n int) {
	StockMovementsTotal.WithLabelValues(movementType).Add(float64(n))
}

// RecordOrder counts an order that settled in status.
func RecordOrder(status string) {
	OrdersTotal.WithLabelValues(status).Inc()
}

// RecordJob counts a processed background job.
func RecordJob(jobType, result string) {
	JobsProcessedTotal.WithLabelValues(jobType, result).Inc()
}
