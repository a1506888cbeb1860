// Package metrics counts pipeline activity on a per-run Prometheus registry
// and writes it in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Item outcome label values.
const (
	OutcomeRecord        = "record"
	OutcomeError         = "error"
	OutcomeBlank         = "blank"
	OutcomeSkipped       = "skipped"
	OutcomeBudgetSkipped = "budget_skipped"
)

// Unit status label values.
const (
	UnitCompleted   = "completed"
	UnitIncomplete  = "incomplete"
	UnitEmpty       = "empty"
	UnitMissing     = "missing"
	UnitUnreadable  = "unreadable"
	UnitInterrupted = "interrupted"
)

// Recorder owns the pipeline collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	items        *prometheus.CounterVec
	calls        prometheus.Counter
	callDuration prometheus.Histogram
	units        *prometheus.CounterVec
	rowsFlushed  prometheus.Counter
}

// New builds a recorder on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadet_items_total",
				Help: "Items handled, by outcome",
			},
			[]string{"outcome"},
		),
		calls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cadet_extraction_calls_total",
			Help: "Recognition service calls issued",
		}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cadet_extraction_duration_seconds",
			Help:    "Wall time of one extraction including image preparation",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}),
		units: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadet_units_total",
				Help: "Work units finished, by status",
			},
			[]string{"status"},
		),
		rowsFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cadet_rows_flushed_total",
			Help: "Record rows appended to the records table",
		}),
	}
	r.registry.MustRegister(r.items, r.calls, r.callDuration, r.units, r.rowsFlushed)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Item counts one item outcome.
func (r *Recorder) Item(outcome string) {
	if r == nil {
		return
	}
	r.items.WithLabelValues(outcome).Inc()
}

// Call counts one recognition call and its duration.
func (r *Recorder) Call(elapsed time.Duration) {
	if r == nil {
		return
	}
	r.calls.Inc()
	r.callDuration.Observe(elapsed.Seconds())
}

// Unit counts one finished work unit.
func (r *Recorder) Unit(status string) {
	if r == nil {
		return
	}
	r.units.WithLabelValues(status).Inc()
}

// RowsFlushed counts appended record rows.
func (r *Recorder) RowsFlushed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rowsFlushed.Add(float64(n))
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
