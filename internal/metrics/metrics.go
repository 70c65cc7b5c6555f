// Package metrics holds the prometheus collectors shared by the ETL and the dashboard API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion cycles partitioned by currency and outcome status
	IngestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metal_ingest_runs_total",
			Help: "Ingestion cycles by currency and outcome",
		},
		[]string{"currency", "status"},
	)

	// Facts upserted into fact_metal_prices
	FactsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metal_facts_written_total",
			Help: "Price facts upserted",
		},
		[]string{"currency"},
	)

	// Instruments dropped during ingestion, by reason
	InstrumentsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metal_instruments_skipped_total",
			Help: "Instruments skipped during ingestion",
		},
		[]string{"currency", "reason"},
	)

	// Price table loads that reached the store (cache misses)
	TableLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metal_table_loads_total",
			Help: "Bulk price table loads from the store",
		},
		[]string{"currency", "status"},
	)

	// Total HTTP requests partitioned by method, route, and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)
