package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FileSystemMetrics observes lifecycle operations.
//
// The lifecycle manager records every public operation with its outcome
// so dashboards can track rates, latencies and error codes per
// operation (save, read, trash, restore and so on).
type FileSystemMetrics interface {
	// RecordOperation records a completed operation with its duration
	// and outcome. result is "ok" or the error code string.
	RecordOperation(op string, duration time.Duration, result string)

	// RecordBytes records content payload bytes moving through saves
	// ("write") and reads ("read").
	RecordBytes(direction string, bytes int)

	// SetIndexedItems updates the current metadata index size.
	SetIndexedItems(count int)

	// RecordSweep records one garbage collection run.
	RecordSweep(orphaned, deleted uint64, duration time.Duration)
}

var (
	sharedOnce sync.Once
	shared     *promMetrics
)

// NewFileSystemMetrics returns the process-wide Prometheus-backed
// implementation, or a no-op one when the registry was never
// initialized. Collectors register once; every caller shares them.
func NewFileSystemMetrics() FileSystemMetrics {
	reg := GetRegistry()
	if reg == nil {
		return noopMetrics{}
	}
	sharedOnce.Do(func() {
		shared = newPromMetrics(reg)
	})
	return shared
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	factory := promauto.With(reg)
	return &promMetrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskfs",
			Name:      "operations_total",
			Help:      "File system operations by name and result.",
		}, []string{"op", "result"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deskfs",
			Name:      "operation_duration_seconds",
			Help:      "File system operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskfs",
			Name:      "content_bytes_total",
			Help:      "Content bytes transferred by direction.",
		}, []string{"direction"}),
		indexedItems: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "deskfs",
			Name:      "indexed_items",
			Help:      "Items currently held by the metadata index.",
		}),
		sweepOrphaned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deskfs",
			Name:      "gc_orphaned_total",
			Help:      "Orphaned content records found by gc sweeps.",
		}),
		sweepDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deskfs",
			Name:      "gc_deleted_total",
			Help:      "Orphaned content records deleted by gc sweeps.",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "deskfs",
			Name:      "gc_sweep_duration_seconds",
			Help:      "Garbage collection sweep duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

type promMetrics struct {
	operations    *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	bytes         *prometheus.CounterVec
	indexedItems  prometheus.Gauge
	sweepOrphaned prometheus.Counter
	sweepDeleted  prometheus.Counter
	sweepDuration prometheus.Histogram
}

func (m *promMetrics) RecordOperation(op string, duration time.Duration, result string) {
	m.operations.WithLabelValues(op, result).Inc()
	m.durations.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *promMetrics) RecordBytes(direction string, bytes int) {
	m.bytes.WithLabelValues(direction).Add(float64(bytes))
}

func (m *promMetrics) SetIndexedItems(count int) {
	m.indexedItems.Set(float64(count))
}

func (m *promMetrics) RecordSweep(orphaned, deleted uint64, duration time.Duration) {
	m.sweepOrphaned.Add(float64(orphaned))
	m.sweepDeleted.Add(float64(deleted))
	m.sweepDuration.Observe(duration.Seconds())
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(string, time.Duration, string) {}
func (noopMetrics) RecordBytes(string, int)                       {}
func (noopMetrics) SetIndexedItems(int)                           {}
func (noopMetrics) RecordSweep(uint64, uint64, time.Duration)     {}
