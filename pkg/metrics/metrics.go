// Package metrics defines the Prometheus collectors of the indexer and
// serves them for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Reasons a posting does not make it onto a page.
const (
	DropDuplicate     = "duplicate"
	DropCapacity      = "capacity"
	DropTermNotOnPage = "term_not_on_page"
)

// Metrics holds all Prometheus collectors for the indexer.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	DocumentsExtracted prometheus.Counter
	PostingsProduced   prometheus.Counter
	PagesWritten       prometheus.Counter
	PostingsDropped    *prometheus.CounterVec
	PageMergeDuration  prometheus.Histogram

	ChunksTotal      *prometheus.CounterVec
	ChunkDuration    *prometheus.HistogramVec
	BatchTransitions *prometheus.CounterVec
	BatchesIngested  *prometheus.CounterVec
	SnapshotUploads  *prometheus.CounterVec
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of admin HTTP requests by method, route, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Admin HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of admin HTTP requests currently being processed.",
			},
		),
		DocumentsExtracted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_documents_extracted_total",
				Help: "Indexable documents extracted from crawl batches.",
			},
		),
		PostingsProduced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_postings_produced_total",
				Help: "Postings produced by tokenizing documents.",
			},
		),
		PagesWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_pages_written_total",
				Help: "Index pages rewritten by merges.",
			},
		),
		PostingsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_postings_dropped_total",
				Help: "Postings left off a page, by reason.",
			},
			[]string{"reason"},
		),
		PageMergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "indexer_page_merge_seconds",
				Help:    "Time to read, merge and write one page.",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
		),
		ChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_chunks_total",
				Help: "Batch chunks processed by stage and outcome (committed, failed, empty).",
			},
			[]string{"stage", "outcome"},
		),
		ChunkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_chunk_duration_seconds",
				Help:    "Time to process one chunk, by stage.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"stage"},
		),
		BatchTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_batch_transitions_total",
				Help: "Batches moved between statuses.",
			},
			[]string{"from", "to"},
		),
		BatchesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_batches_total",
				Help: "Crawl batches received from Kafka by result (stored, duplicate, invalid).",
			},
			[]string{"result"},
		),
		SnapshotUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_uploads_total",
				Help: "Index snapshot uploads by status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocumentsExtracted,
		m.PostingsProduced,
		m.PagesWritten,
		m.PostingsDropped,
		m.PageMergeDuration,
		m.ChunksTotal,
		m.ChunkDuration,
		m.BatchTransitions,
		m.BatchesIngested,
		m.SnapshotUploads,
	)

	return m
}
