// Package metrics exposes sync counters on a private Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sync aggregates the engine's operational metrics. A nil *Sync is valid and
// records nothing, so wiring metrics stays optional.
type Sync struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	queueDepth prometheus.Gauge
	duration   *prometheus.HistogramVec
}

// NewSync builds the collectors on a fresh registry.
func NewSync() *Sync {
	reg := prometheus.NewRegistry()
	s := &Sync{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canvassync_sync_operations_total",
			Help: "Sync operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "canvassync_offline_queue_depth",
			Help: "Entries currently pending in the offline queue.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "canvassync_sync_duration_seconds",
			Help:    "Wall time of sync operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(s.operations, s.queueDepth, s.duration)
	return s
}

// Registry returns the registry backing the /metrics endpoint.
func (s *Sync) Registry() *prometheus.Registry {
	if s == nil {
		return prometheus.NewRegistry()
	}
	return s.registry
}

// ObserveOperation counts one finished operation.
func (s *Sync) ObserveOperation(operation string, err error) {
	if s == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveDuration records the wall time of one operation in seconds.
func (s *Sync) ObserveDuration(operation string, seconds float64) {
	if s == nil {
		return
	}
	s.duration.WithLabelValues(operation).Observe(seconds)
}

// SetQueueDepth publishes the current offline queue length.
func (s *Sync) SetQueueDepth(n int) {
	if s == nil {
		return
	}
	s.queueDepth.Set(float64(n))
}
