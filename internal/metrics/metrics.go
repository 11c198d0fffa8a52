// Package metrics provides Prometheus metrics for the document engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	HistoryTotal      *prometheus.CounterVec

	SavesTotal   *prometheus.CounterVec
	SaveDuration prometheus.Histogram

	Sections prometheus.Gauge
	Blocks   prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportstudio_operations_total",
				Help: "Total number of document operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reportstudio_operation_duration_seconds",
				Help:    "Duration of document operations in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"operation"},
		),
		HistoryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportstudio_history_transitions_total",
				Help: "Total number of undo and redo transitions",
			},
			[]string{"direction"},
		),
		SavesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportstudio_saves_total",
				Help: "Total number of document persistence writes",
			},
			[]string{"status"},
		),
		SaveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reportstudio_save_duration_seconds",
				Help:    "Duration of document persistence writes in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		Sections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "reportstudio_document_sections",
				Help: "Number of sections in the open document",
			},
		),
		Blocks: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "reportstudio_document_blocks",
				Help: "Number of blocks in the open document",
			},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordOperation records a document operation and its outcome.
func (m *Metrics) RecordOperation(op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, status(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordHistory counts an undo or redo that changed the tree.
func (m *Metrics) RecordHistory(direction string) {
	if m == nil {
		return
	}
	m.HistoryTotal.WithLabelValues(direction).Inc()
}

// RecordSave records a persistence write.
func (m *Metrics) RecordSave(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.SavesTotal.WithLabelValues(status(err)).Inc()
	m.SaveDuration.Observe(duration.Seconds())
}

// SetTreeSize updates the node gauges.
func (m *Metrics) SetTreeSize(sections, blocks int) {
	if m == nil {
		return
	}
	m.Sections.Set(float64(sections))
	m.Blocks.Set(float64(blocks))
}
