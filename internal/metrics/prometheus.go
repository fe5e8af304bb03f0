// Package metrics exposes ingestion counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adluc/discovery-service/internal/model"
)

// Ingest holds the ingestion metrics on a dedicated registry.
// A nil *Ingest is valid and records nothing.
type Ingest struct {
	Registry *prometheus.Registry

	ListingsInserted prometheus.Counter
	Duplicates       prometheus.Counter
	Rejected         prometheus.Counter
	Filtered         prometheus.Counter
	Fallbacks        prometheus.Counter
	SourceFailures   *prometheus.CounterVec
	Cycles           *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
}

// New creates and registers the ingestion metrics under namespace.
func New(namespace string) *Ingest {
	m := &Ingest{
		Registry: prometheus.NewRegistry(),
		ListingsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_inserted_total",
			Help:      "External listings committed to the store.",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Feed entries skipped because their link already exists.",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_rejected_total",
			Help:      "Feed entries dropped for a missing title or link.",
		}),
		Filtered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_filtered_total",
			Help:      "Feed entries dropped by the blocked-term filter.",
		}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Cycles in which no source produced entries and seeds were used.",
		}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Feed sources that failed to fetch or parse.",
		}, []string{"source"}),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Ingestion cycles by result.",
		}, []string{"result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of ingestion cycles.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
	}

	m.Registry.MustRegister(
		m.ListingsInserted,
		m.Duplicates,
		m.Rejected,
		m.Filtered,
		m.Fallbacks,
		m.SourceFailures,
		m.Cycles,
		m.CycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SourceFailed counts one failed source.
func (m *Ingest) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.SourceFailures.WithLabelValues(source).Inc()
}

// ObserveCycle records a finished cycle. err is the cycle's commit error.
func (m *Ingest) ObserveCycle(r *model.IngestReport, err error) {
	if m == nil || r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Cycles.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(r.Duration.Seconds())
	m.ListingsInserted.Add(float64(r.Inserted))
	m.Duplicates.Add(float64(r.Duplicates))
	m.Rejected.Add(float64(r.Rejected))
	m.Filtered.Add(float64(r.Filtered))
	if r.FallbackUsed {
		m.Fallbacks.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Ingest) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
