package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks pipeline step outcomes and durations.
type Metrics struct {
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	runsTotal    *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "launchpad",
			Name:      "pipeline_steps_total",
			Help:      "Pipeline step outcomes by step and state.",
		}, []string{"step", "state"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "launchpad",
			Name:      "pipeline_step_duration_seconds",
			Help:      "Wall time per pipeline step, submission through confirmation.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"step"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "launchpad",
			Name:      "pipeline_runs_total",
			Help:      "Completed pipeline runs by terminal status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.stepsTotal, m.stepDuration, m.runsTotal)
	}
	return m
}

func (m *Metrics) observeStep(step Step, state StepState, started time.Time) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(string(step), string(state)).Inc()
	m.stepDuration.WithLabelValues(string(step)).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeRun(status RunStatus) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(status)).Inc()
}
