// Package metrics exposes Prometheus instrumentation for the task engine.
//
// Metrics attach to the engine through task lifecycle hooks, so the engine
// itself stays free of any Prometheus dependency. Attach with:
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	manager := task.NewManager(task.WithManagerHooks(m.Hooks()))
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fyrsmithlabs/taskmill/internal/task"
)

// Metrics holds Prometheus metrics for task dispatching.
type Metrics struct {
	registry prometheus.Registerer

	// DispatchesTotal counts finished dispatches.
	// Labels: task, status (success, failure)
	DispatchesTotal *prometheus.CounterVec

	// ExecuteDuration tracks task body execution times.
	ExecuteDuration *prometheus.HistogramVec

	// DependencyWait tracks time spent awaiting dependencies before the body
	// ran.
	DependencyWait *prometheus.HistogramVec

	// InFlight gauges dispatches currently between start and completion.
	InFlight prometheus.Gauge
}

// New creates and registers task engine metrics against reg. Pass a fresh
// registry in tests; pass prometheus.DefaultRegisterer in the binary.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		DispatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmill_dispatches_total",
				Help: "Total number of finished task dispatches",
			},
			[]string{"task", "status"},
		),

		ExecuteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskmill_execute_duration_seconds",
				Help:    "Duration of task body execution in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
			},
			[]string{"task"},
		),

		DependencyWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskmill_dependency_wait_seconds",
				Help:    "Time spent resolving dependencies before the task body ran",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"task"},
		),

		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskmill_dispatches_in_flight",
				Help: "Dispatches currently executing",
			},
		),
	}
}

// Hooks adapts the metrics into task lifecycle hooks.
func (m *Metrics) Hooks() task.Hooks {
	return task.Hooks{
		OnStart: func(task.Event) {
			m.InFlight.Inc()
		},
		OnSuccess: func(event task.Event) {
			m.InFlight.Dec()
			m.record(event, "success")
		},
		OnFailure: func(event task.Event) {
			m.InFlight.Dec()
			m.record(event, "failure")
		},
	}
}

func (m *Metrics) record(event task.Event, status string) {
	m.DispatchesTotal.WithLabelValues(event.Task, status).Inc()
	m.ExecuteDuration.WithLabelValues(event.Task).Observe(event.ExecuteTime.Seconds())
	m.DependencyWait.WithLabelValues(event.Task).Observe(event.DependencyTime.Seconds())
}

// Handler serves the metrics in Prometheus exposition format. The registerer
// must also be a prometheus.Gatherer (true for prometheus.NewRegistry and the
// default registry).
func (m *Metrics) Handler() http.Handler {
	if gatherer, ok := m.registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
