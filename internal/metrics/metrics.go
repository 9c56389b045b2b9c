// Package metrics records export run metrics through a pluggable backend.
//
// Callers use the package-level helpers (RecordStep, RecordRecords,
// RecordPages). They go to a global Backend which defaults to a no-op, so
// instrumentation is always safe to call. Concrete systems live in
// subpackages (prompush, datadog) and are installed with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal           = "export_step_total"
	StepDurationSeconds = "export_step_duration_seconds"
	RecordsTotal        = "export_records_total"
	PagesTotal          = "export_pages_total"
)

// Record kinds used with RecordRecords.
const (
	KindFetched       = "fetched"
	KindRows          = "rows"
	KindResolveFailed = "resolve_failed"
	KindSkippedTypes  = "skipped_types"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

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

// RecordStep counts one execution of an export step (fetch, flatten, write)
// and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRecords adds delta to the record counter of the given kind
// (KindFetched, KindRows, ...). Non-positive deltas are ignored.
func RecordRecords(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordPages adds delta fetched pages for the job.
func RecordPages(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(PagesTotal, float64(delta), Labels{"job": job})
}
