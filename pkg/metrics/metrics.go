// Package metrics exposes Prometheus collectors for distinct queries and
// document ingest.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docq"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	PagesServed          *prometheus.CounterVec
	DocumentsScanned     *prometheus.CounterVec
	DocumentsReturned    *prometheus.CounterVec
	DuplicatesSuppressed *prometheus.CounterVec
	MalformedTokens      *prometheus.CounterVec
	PageDuration         *prometheus.HistogramVec
	IngestJobs           *prometheus.CounterVec
	IngestQueueDepth     prometheus.Gauge
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		PagesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distinct",
			Name:      "pages_served_total",
			Help:      "Pages of distinct queries served.",
		}, []string{"collection", "query_type", "environment"}),

		DocumentsScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distinct",
			Name:      "documents_scanned_total",
			Help:      "Documents pulled from the source by distinct queries.",
		}, []string{"collection"}),

		DocumentsReturned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distinct",
			Name:      "documents_returned_total",
			Help:      "First-seen documents returned by distinct queries.",
		}, []string{"collection"}),

		DuplicatesSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distinct",
			Name:      "duplicates_suppressed_total",
			Help:      "Duplicate documents dropped by distinct queries.",
		}, []string{"collection"}),

		MalformedTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distinct",
			Name:      "malformed_tokens_total",
			Help:      "Continuation tokens rejected as malformed.",
		}, []string{"endpoint"}),

		PageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "distinct",
			Name:      "page_duration_seconds",
			Help:      "Time to serve one page of a distinct query.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"environment"}),

		IngestJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "jobs_total",
			Help:      "Ingest jobs by result.",
		}, []string{"result"}),

		IngestQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "queue_depth",
			Help:      "Ingest jobs waiting for a worker.",
		}),
	}

	m.registry.MustRegister(
		m.PagesServed,
		m.DocumentsScanned,
		m.DocumentsReturned,
		m.DuplicatesSuppressed,
		m.MalformedTokens,
		m.PageDuration,
		m.IngestJobs,
		m.IngestQueueDepth,
	)

	return m
}

// ObservePage records one served page.
func (m *Metrics) ObservePage(collection, queryType, environment string, scanned, returned int, elapsed time.Duration) {
	m.PagesServed.WithLabelValues(collection, queryType, environment).Inc()
	m.DocumentsScanned.WithLabelValues(collection).Add(float64(scanned))
	m.DocumentsReturned.WithLabelValues(collection).Add(float64(returned))
	m.DuplicatesSuppressed.WithLabelValues(collection).Add(float64(scanned - returned))
	m.PageDuration.WithLabelValues(environment).Observe(elapsed.Seconds())
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
