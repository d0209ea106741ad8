// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the cleaning job.
//
// The package exposes a narrow interface (Backend) of counters and timings
// behind a global, pluggable backend that defaults to a no-op, so
// instrumentation is always safe to call even when nothing is configured.
// Concrete systems live in subpackages (prompush, datadog).
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal    = "tbetl_step_total"
	StepDuration = "tbetl_step_duration_seconds"
	RowsTotal    = "tbetl_rows_total"
	SourceTotal  = "tbetl_source_total"
)

// Row kinds recorded with RecordRows.
const (
	RowsLoaded   = "loaded"
	RowsSkipped  = "skipped"
	RowsDropped  = "dropped"
	RowsFilled   = "filled"
	RowsClipped  = "clipped"
	RowsInvalid  = "invalid"
	RowsOutliers = "outliers"
	RowsCleaned  = "cleaned"
	RowsStored   = "stored"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep counts one execution of a cleaning stage and its latency.
func RecordStep(job, source, step string, err error, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"source": source,
		"step":   step,
		"status": status(err),
	}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta rows of the given kind (see the Rows* constants).
// Non-positive deltas are ignored.
func RecordRows(job, source, kind string, delta int) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":    job,
		"source": source,
		"kind":   kind,
	})
}

// RecordSource counts the outcome of cleaning one source end to end.
func RecordSource(job, source string, err error) {
	current().IncCounter(SourceTotal, 1, Labels{
		"job":    job,
		"source": source,
		"status": status(err),
	})
}
