package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global collectors, registered on the default registry through promauto.

var (
	// 1. HTTP Requests Total (Counter)
	// Labeled by method, route pattern and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelsdb_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// 2. HTTP Request Duration (Histogram)
	// Requests are served from memory, so the buckets start well below a millisecond.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travelsdb_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1, 1},
		},
		[]string{"method", "path"},
	)

	// 3. Entity Count (Gauge)
	// Tracks stored records per collection.
	EntitiesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "travelsdb_entities_total",
			Help: "Total number of stored records",
		},
		[]string{"entity"},
	)

	// 4. Store Operations (Counter)
	// Labeled by operation and outcome kind (ok, not_found, invalid, bad_request, internal).
	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelsdb_store_ops_total",
			Help: "Total number of store operations by outcome",
		},
		[]string{"op", "kind"},
	)

	// 5. Archive Load (Counter)
	// Records loaded or skipped at startup, per collection.
	LoadedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travelsdb_loaded_records_total",
			Help: "Records read from the startup archive",
		},
		[]string{"entity", "result"},
	)
)
