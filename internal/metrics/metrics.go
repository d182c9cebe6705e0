// Package metrics defines the Prometheus collectors for the indexing
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for indexhub.
type Metrics struct {
	JobsSubmitted *prometheus.CounterVec
	JobsCommitted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobsCancelled *prometheus.CounterVec
	JobRetries    *prometheus.CounterVec
	QueueDepth    *prometheus.GaugeVec
	CommitLatency *prometheus.HistogramVec
	FacetLatency  *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers all collectors on a private registry, so tests
// and embedded managers never collide on the global default.
func New() *Metrics {
	m := &Metrics{
		JobsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexhub_jobs_submitted_total",
				Help: "Total indexing jobs submitted, by index.",
			},
			[]string{"index"},
		),
		JobsCommitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexhub_jobs_committed_total",
				Help: "Total indexing jobs committed, by index.",
			},
			[]string{"index"},
		),
		JobsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexhub_jobs_failed_total",
				Help: "Total indexing jobs failed after retry exhaustion, by index.",
			},
			[]string{"index"},
		),
		JobsCancelled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexhub_jobs_cancelled_total",
				Help: "Total indexing jobs cancelled before running, by index.",
			},
			[]string{"index"},
		),
		JobRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexhub_job_retries_total",
				Help: "Total retry attempts across jobs, by index.",
			},
			[]string{"index"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "indexhub_queue_depth",
				Help: "Jobs currently queued, by index.",
			},
			[]string{"index"},
		),
		CommitLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexhub_commit_duration_seconds",
				Help:    "Apply-and-commit latency per job in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"index"},
		),
		FacetLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexhub_facet_duration_seconds",
				Help:    "Facet computation latency in seconds, by facet type.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"type"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.JobsSubmitted,
		m.JobsCommitted,
		m.JobsFailed,
		m.JobsCancelled,
		m.JobRetries,
		m.QueueDepth,
		m.CommitLatency,
		m.FacetLatency,
	)
	return m
}

// Handler returns the scrape handler for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
