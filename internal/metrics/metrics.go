// Package metrics provides Prometheus metrics for a cleanup session.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics owns a private registry so that sessions and tests never share
// counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	entriesScanned prometheus.Counter
	candidates     *prometheus.CounterVec
	warnings       *prometheus.CounterVec
	cleanOutcomes  *prometheus.CounterVec
	bytesFreed     prometheus.Counter
	scanDuration   prometheus.Histogram
}

// New registers every session metric on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Scan metrics
		entriesScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "sweep_scan_entries_total",
			Help: "Total number of filesystem entries visited",
		}),
		candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_scan_candidates_total",
			Help: "Candidates reported, by plugin and risk level",
		}, []string{"plugin", "risk"}),
		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_scan_warnings_total",
			Help: "Recovered scan errors, by kind",
		}, []string{"kind"}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sweep_scan_duration_seconds",
			Help:    "Wall time of a full scan",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),

		// Cleanup metrics
		cleanOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_clean_results_total",
			Help: "Cleanup results, by outcome",
		}, []string{"outcome"}),
		bytesFreed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sweep_clean_bytes_freed_total",
			Help: "Bytes freed (or that would be freed in a dry run)",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordScan records a finished scan.
func (m *Metrics) RecordScan(entries int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.entriesScanned.Add(float64(entries))
	m.scanDuration.Observe(duration.Seconds())
}

// RecordCandidate counts one reported candidate.
func (m *Metrics) RecordCandidate(plugin, risk string) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(plugin, risk).Inc()
}

// RecordWarning counts one recovered error of the given kind.
func (m *Metrics) RecordWarning(kind string) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(kind).Inc()
}

// RecordClean counts one cleanup result.
func (m *Metrics) RecordClean(outcome string, bytes int64) {
	if m == nil {
		return
	}
	m.cleanOutcomes.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		m.bytesFreed.Add(float64(bytes))
	}
}

// WriteTextfile writes every metric to path in the node-exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
