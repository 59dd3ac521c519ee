package pool

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	submitted *prometheus.CounterVec
	finished  *prometheus.CounterVec
	dropped   prometheus.Counter
	pending   prometheus.Gauge
	duration  *prometheus.HistogramVec
}

// newMetrics builds the pool collectors. A nil registerer leaves them
// unregistered, which keeps the recording code unconditional. Pools sharing a
// registerer share its collectors, so their series add up.
func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		submitted: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "imageopt",
				Subsystem: "pool",
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks submitted to the worker pool",
			},
			[]string{"kind"},
		)),
		finished: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "imageopt",
				Subsystem: "pool",
				Name:      "tasks_finished_total",
				Help:      "Total number of tasks that reached a final state",
			},
			[]string{"kind", "state"},
		)),
		dropped: register(reg, prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "imageopt",
				Subsystem: "pool",
				Name:      "results_dropped_total",
				Help:      "Results received for task IDs with no pending responder",
			},
		)),
		pending: register(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "imageopt",
				Subsystem: "pool",
				Name:      "tasks_pending",
				Help:      "Tasks submitted but not yet resolved",
			},
		)),
		duration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "imageopt",
				Subsystem: "pool",
				Name:      "task_duration_seconds",
				Help:      "Time workers spend executing a task",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		)),
	}
}

// register adds c to reg and returns the collector to record into. When an
// identical collector is already registered that one is returned instead. Any
// other registration failure leaves c recording unexported.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	return c
}
