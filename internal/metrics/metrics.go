// Package metrics exposes Prometheus counters for predictions, alerts and
// scheduled tasks.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prediction outcomes.
const (
	OutcomeAlert      = "alert"
	OutcomeBelow      = "below_threshold"
	OutcomeFallback   = "unstructured"
	OutcomeFailed     = "failed"
	OutcomeNotEnabled = "skipped"
)

// Recorder holds the service metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	predictions  *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	purged       prometheus.Counter
	taskDuration *prometheus.HistogramVec
}

// New creates a Recorder on its own registry, including the Go and process collectors.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_alerts_predictions_total",
			Help: "Risk predictions by key location and outcome.",
		}, []string{"location", "outcome"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_alerts_created_total",
			Help: "Alerts created by location.",
		}, []string{"location"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_alerts_purged_total",
			Help: "Alerts removed by the retention cleanup.",
		}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_alerts_task_duration_seconds",
			Help:    "Duration of scheduled task runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
	}

	registry.MustRegister(r.predictions)
	registry.MustRegister(r.alerts)
	registry.MustRegister(r.purged)
	registry.MustRegister(r.taskDuration)

	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Prediction(location, outcome string) {
	if r == nil {
		return
	}
	r.predictions.WithLabelValues(location, outcome).Inc()
}

func (r *Recorder) AlertCreated(location string) {
	if r == nil {
		return
	}
	r.alerts.WithLabelValues(location).Inc()
}

func (r *Recorder) AlertsPurged(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.purged.Add(float64(n))
}

func (r *Recorder) TaskDuration(task string, d time.Duration) {
	if r == nil {
		return
	}
	r.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
