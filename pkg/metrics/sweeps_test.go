package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestSweepMetricsSplitsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepMetrics(reg)
	m.ObserveRun("low_stock", nil, 40*time.Millisecond)
	m.ObserveRun("low_stock", errors.New("db down"), time.Second)
	m.ObserveRun("", nil, time.Millisecond)
	m.AddAlerts(3)
	m.AddAlerts(0)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	failures, err := fetchCounterValue(mfs, "sweep_job_runs_total", "outcome", "failure")
	require.NoError(t, err)
	require.Equal(t, float64(1), failures)

	unknown, err := fetchCounterValue(mfs, "sweep_job_runs_total", "job", "unknown")
	require.NoError(t, err)
	require.Equal(t, float64(1), unknown)

	alerts := findMetricFamily(mfs, "low_stock_alerts_total")
	require.NotNil(t, alerts)
	require.Equal(t, float64(3), alerts.GetMetric()[0].GetCounter().GetValue())
}

func TestSweepMetricsNilSafe(t *testing.T) {
	var m *SweepMetrics
	m.ObserveRun("low_stock", nil, time.Second)
	m.AddAlerts(1)
	NewSweepMetrics(nil).ObserveRun("low_stock", nil, time.Second)
}
