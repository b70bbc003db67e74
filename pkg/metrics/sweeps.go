package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics records runs of the background inventory sweeps.
type SweepMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	alerts   prometheus.Counter
}

// NewSweepMetrics registers the sweep metrics on the provided registerer.
func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	if reg == nil {
		return &SweepMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweep_job_duration_seconds",
		Help:    "Duration of sweep jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_job_runs_total",
		Help: "Sweep job executions by outcome.",
	}, []string{"job", "outcome"})
	alerts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Low stock alerts published by the sweeper.",
	})
	reg.MustRegister(duration, runs, alerts)
	return &SweepMetrics{duration: duration, runs: runs, alerts: alerts}
}

// ObserveRun records the outcome and duration of one job execution.
func (m *SweepMetrics) ObserveRun(job string, err error, duration time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(duration.Seconds())
	m.runs.WithLabelValues(job, outcome).Inc()
}

func (m *SweepMetrics) AddAlerts(n int) {
	if m == nil || m.alerts == nil || n <= 0 {
		return
	}
	m.alerts.Add(float64(n))
}
