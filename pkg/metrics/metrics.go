// Package metrics defines the Prometheus collectors for the corpus build and
// similarity pipeline and exposes an HTTP handler for scraping. All helper
// methods are safe to call on a nil *Metrics so components can run without
// instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	DocumentsTotal        *prometheus.CounterVec
	VocabularySize        *prometheus.GaugeVec
	CorpusDocuments       prometheus.Gauge
	BuildDuration         *prometheus.HistogramVec
	TopicCacheTotal       *prometheus.CounterVec
	DistancePairsTotal    prometheus.Counter
	InvalidDistributions  prometheus.Counter
	UnknownEntitiesTotal  prometheus.Counter
	MatrixComputeDuration prometheus.Histogram
}

// NewWithRegistry creates the collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_documents_total",
				Help: "Documents seen per pass by outcome (tokenized, skipped).",
			},
			[]string{"pass", "outcome"},
		),
		VocabularySize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vocabulary_size",
				Help: "Distinct tokens before and after document-frequency pruning.",
			},
			[]string{"stage"},
		),
		CorpusDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_documents",
				Help: "Bag-of-words vectors in the most recently built or loaded corpus.",
			},
		),
		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corpus_pass_duration_seconds",
				Help:    "Duration of each pass over the document stream.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"pass"},
		),
		TopicCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "topic_cache_lookups_total",
				Help: "Topic vector cache lookups by tier and result.",
			},
			[]string{"tier", "result"},
		),
		DistancePairsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "distance_pairs_total",
				Help: "Hellinger distances computed (upper triangle including diagonal).",
			},
		),
		InvalidDistributions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "invalid_distributions_total",
				Help: "Topic vectors excluded from a matrix for being malformed.",
			},
		),
		UnknownEntitiesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "unknown_entities_total",
				Help: "Entity ids that did not resolve to a corpus position.",
			},
		),
		MatrixComputeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "distance_matrix_duration_seconds",
				Help:    "Time to compute one distance matrix.",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
			},
		),
	}

	reg.MustRegister(
		m.DocumentsTotal,
		m.VocabularySize,
		m.CorpusDocuments,
		m.BuildDuration,
		m.TopicCacheTotal,
		m.DistancePairsTotal,
		m.InvalidDistributions,
		m.UnknownEntitiesTotal,
		m.MatrixComputeDuration,
	)

	return m
}

func (m *Metrics) Document(pass string, skipped bool) {
	if m == nil {
		return
	}
	outcome := "tokenized"
	if skipped {
		outcome = "skipped"
	}
	m.DocumentsTotal.WithLabelValues(pass, outcome).Inc()
}

// Skipped records n documents dropped by the source during pass.
func (m *Metrics) Skipped(pass string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DocumentsTotal.WithLabelValues(pass, "skipped").Add(float64(n))
}

func (m *Metrics) Vocabulary(before, after int) {
	if m == nil {
		return
	}
	m.VocabularySize.WithLabelValues("raw").Set(float64(before))
	m.VocabularySize.WithLabelValues("pruned").Set(float64(after))
}

func (m *Metrics) Corpus(docs int) {
	if m == nil {
		return
	}
	m.CorpusDocuments.Set(float64(docs))
}

func (m *Metrics) Pass(pass string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BuildDuration.WithLabelValues(pass).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheLookup(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.TopicCacheTotal.WithLabelValues(tier, result).Inc()
}

func (m *Metrics) Matrix(pairs int, invalid int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DistancePairsTotal.Add(float64(pairs))
	m.InvalidDistributions.Add(float64(invalid))
	m.MatrixComputeDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) UnknownEntity() {
	if m == nil {
		return
	}
	m.UnknownEntitiesTotal.Inc()
}

// Registry returns a registry holding the Go runtime and process
// collectors, ready for NewWithRegistry and Listen.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g in the exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
