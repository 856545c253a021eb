// Package metrics exposes Prometheus collectors for the store writer and the
// compute engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements persist.Observer and compute.StepObserver.
type Metrics struct {
	storeWrites *prometheus.CounterVec
	queueDepth  prometheus.Gauge
	stepSeconds prometheus.Histogram
	generation  prometheus.Gauge
	gatherer    prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		storeWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cubefield_store_writes_total",
			Help: "Store writes by operation and outcome",
		}, []string{"op", "status"}),

		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "cubefield_store_queue_depth",
			Help: "Writes waiting in the persistence queue",
		}),

		stepSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cubefield_compute_step_seconds",
			Help:    "Duration of one full-grid compute step",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),

		generation: f.NewGauge(prometheus.GaugeOpts{
			Name: "cubefield_compute_generation",
			Help: "Current compute engine generation",
		}),

		gatherer: reg,
	}
}

// ObserveWrite counts one store write.
func (m *Metrics) ObserveWrite(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.storeWrites.WithLabelValues(op, status).Inc()
}

// ObserveQueueDepth records the persistence queue length.
func (m *Metrics) ObserveQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// ObserveStep records one compute step.
func (m *Metrics) ObserveStep(d time.Duration, generation uint64) {
	m.stepSeconds.Observe(d.Seconds())
	m.generation.Set(float64(generation))
}

// Handler serves the registered collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
