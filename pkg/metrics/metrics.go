// Package metrics defines the Prometheus collectors used by the indexing
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	DocsReadTotal       prometheus.Counter
	DocsNormalizedTotal prometheus.Counter
	DocsSkippedTotal    prometheus.Counter
	WorkerFailuresTotal *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	PartitionSize       *prometheus.HistogramVec
	IndexTerms          prometheus.Gauge
	IndexSizeBytes      prometheus.Gauge
}

// New creates all collectors and registers them with reg. A nil reg
// registers with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		DocsReadTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "corpus_documents_read_total",
				Help: "Total documents read from the corpus source.",
			},
		),
		DocsNormalizedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "corpus_documents_normalized_total",
				Help: "Total documents turned into term sequences.",
			},
		),
		DocsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "corpus_documents_skipped_total",
				Help: "Documents skipped because they could not be decoded.",
			},
		),
		WorkerFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_worker_failures_total",
				Help: "Worker failures by pipeline stage.",
			},
			[]string{"stage"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Wall time of each pipeline stage in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		PartitionSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_partition_size",
				Help:    "Number of items assigned to each worker partition.",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
			},
			[]string{"stage"},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inverted_index_terms",
				Help: "Distinct terms in the most recently built index.",
			},
		),
		IndexSizeBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inverted_index_size_bytes",
				Help: "Estimated memory footprint of the most recently built index.",
			},
		),
	}

	reg.MustRegister(
		m.DocsReadTotal,
		m.DocsNormalizedTotal,
		m.DocsSkippedTotal,
		m.WorkerFailuresTotal,
		m.StageDuration,
		m.PartitionSize,
		m.IndexTerms,
		m.IndexSizeBytes,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for g. A nil g serves
// the default registry.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
