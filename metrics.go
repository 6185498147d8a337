package confset

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; index construction reports through it so long scans and
// builds are observable.
type MetricsCollector interface {
	// RecordScan is called after each qualification scan.
	// scanned is the number of candidate domains examined, qualified the
	// number that passed every filter, frames the accumulated total.
	RecordScan(scanned, qualified, frames int, duration time.Duration)

	// RecordBuild is called after each flat-index build attempt.
	// entries is the number of index entries produced (0 on failure).
	RecordBuild(entries int, duration time.Duration, err error)

	// RecordGet is called after each sample retrieval.
	RecordGet(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordScan(int, int, int, time.Duration) {}
func (NoopMetricsCollector) RecordBuild(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordGet(time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ScanCount      atomic.Int64
	ScanFrames     atomic.Int64
	BuildCount     atomic.Int64
	BuildErrors    atomic.Int64
	BuildEntries   atomic.Int64
	BuildTotalNano atomic.Int64
	GetCount       atomic.Int64
	GetErrors      atomic.Int64
	GetTotalNano   atomic.Int64
}

func (m *BasicMetricsCollector) RecordScan(scanned, qualified, frames int, duration time.Duration) {
	m.ScanCount.Add(1)
	m.ScanFrames.Add(int64(frames))
}

func (m *BasicMetricsCollector) RecordBuild(entries int, duration time.Duration, err error) {
	m.BuildCount.Add(1)
	m.BuildEntries.Add(int64(entries))
	m.BuildTotalNano.Add(int64(duration))
	if err != nil {
		m.BuildErrors.Add(1)
	}
}

func (m *BasicMetricsCollector) RecordGet(duration time.Duration, err error) {
	m.GetCount.Add(1)
	m.GetTotalNano.Add(int64(duration))
	if err != nil {
		m.GetErrors.Add(1)
	}
}
