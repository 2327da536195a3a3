// Package jobmetrics instruments queue producers and task handlers.
package jobmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics exposes Prometheus collectors for background tasks. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	purged   *prometheus.CounterVec
	enqueued *prometheus.CounterVec
}

// NewMetrics registers the task collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "tasks",
			Name:      "processed_total",
			Help:      "Processed tasks by type and outcome.",
		}, []string{"type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "backoffice",
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "Task handler latency by type.",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 30},
		}, []string{"type"}),
		purged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "retention",
			Name:      "purged_total",
			Help:      "Documents physically removed by retention tasks.",
		}, []string{"collection"}),
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "tasks",
			Name:      "enqueued_total",
			Help:      "Tasks handed to the queue by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	registerer.MustRegister(m.runs, m.duration, m.purged, m.enqueued)
	return m
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}

// Run measures one handler invocation.
type Run struct {
	metrics  *Metrics
	taskType string
	started  time.Time
}

// Track starts measuring a handler for taskType.
func (m *Metrics) Track(taskType string) *Run {
	return &Run{metrics: m, taskType: taskType, started: time.Now()}
}

// End records the outcome and returns err unchanged, so it can be used in
// a deferred assignment to a named result.
func (r *Run) End(err error) error {
	if r == nil || r.metrics == nil {
		return err
	}
	r.metrics.runs.WithLabelValues(r.taskType, outcome(err)).Inc()
	r.metrics.duration.WithLabelValues(r.taskType).Observe(time.Since(r.started).Seconds())
	return err
}

// AddPurged counts documents removed from collection.
func (m *Metrics) AddPurged(collection string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.purged.WithLabelValues(collection).Add(float64(count))
}

// Enqueued counts a producer hand-off.
func (m *Metrics) Enqueued(taskType string, err error) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(taskType, outcome(err)).Inc()
}
