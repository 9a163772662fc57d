// Package metrics defines the Prometheus collectors recorded during an
// indexing run. Collectors live on a private registry so several indexers
// can coexist in one process (and in tests) without registration clashes.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "ssfi"

// Failure reasons used as the "reason" label of FilesFailed.
const (
	ReasonOpen  = "open"
	ReasonRead  = "read"
	ReasonPanic = "panic"
)

// Metrics holds all collectors for one indexer.
type Metrics struct {
	registry *prometheus.Registry

	FilesDiscovered prometheus.Counter
	FilesProcessed  prometheus.Counter
	FilesFailed     *prometheus.CounterVec
	TokensTotal     prometheus.Counter
	BytesRead       prometheus.Counter
	DirsTraversed   prometheus.Counter
	DirsFailed      prometheus.Counter
	SymlinksSkipped prometheus.Counter
	QueueDepth      prometheus.Gauge
	FileDuration    prometheus.Histogram
	UniqueWords     prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_discovered_total",
			Help:      "Files matching the suffix filter that were queued for processing.",
		}),
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Files tokenized to completion.",
		}),
		FilesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Files that could not be fully processed, by reason (open, read, panic).",
		}, []string{"reason"}),
		TokensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Words fed into the accumulator.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_read_total",
			Help:      "Bytes consumed by the tokenizer.",
		}),
		DirsTraversed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dirs_traversed_total",
			Help:      "Directories read by the walker.",
		}),
		DirsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dirs_failed_total",
			Help:      "Directories that could not be read and were skipped.",
		}),
		SymlinksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symlinks_skipped_total",
			Help:      "Symbolic links encountered and ignored.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Jobs waiting in the worker pool queue.",
		}),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time spent tokenizing a single file.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		UniqueWords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unique_words",
			Help:      "Distinct words at the end of the last run.",
		}),
	}

	m.registry.MustRegister(
		m.FilesDiscovered,
		m.FilesProcessed,
		m.FilesFailed,
		m.TokensTotal,
		m.BytesRead,
		m.DirsTraversed,
		m.DirsFailed,
		m.SymlinksSkipped,
		m.QueueDepth,
		m.FileDuration,
		m.UniqueWords,
	)

	return m
}

// Registry exposes the underlying registry, e.g. for promhttp or testutil.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteText writes every collector in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
