package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DraftMetrics records the lifecycle of service record drafts.
type DraftMetrics struct {
	opened       prometheus.Counter
	reservations *prometheus.CounterVec
	commits      *prometheus.CounterVec
	abandoned    prometheus.Counter
	duration     prometheus.Histogram
}

// NewDraftMetrics registers the draft metrics on the provided registerer.
func NewDraftMetrics(reg prometheus.Registerer) *DraftMetrics {
	if reg == nil {
		return &DraftMetrics{}
	}
	opened := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "draft_sessions_opened_total",
		Help: "Service record draft sessions opened.",
	})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draft_reservations_total",
		Help: "Part reservation attempts against a draft snapshot.",
	}, []string{"result"})
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draft_commits_total",
		Help: "Draft submissions by outcome.",
	}, []string{"outcome"})
	abandoned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "draft_abandoned_total",
		Help: "Drafts cancelled by the operator.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "draft_commit_duration_seconds",
		Help:    "Duration of draft submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(opened, reservations, commits, abandoned, duration)
	return &DraftMetrics{
		opened:       opened,
		reservations: reservations,
		commits:      commits,
		abandoned:    abandoned,
		duration:     duration,
	}
}

func (d *DraftMetrics) IncOpened() {
	if d == nil || d.opened == nil {
		return
	}
	d.opened.Inc()
}

// IncReservation counts a reserve attempt; result is "ok" or the error code.
func (d *DraftMetrics) IncReservation(result string) {
	if d == nil || d.reservations == nil {
		return
	}
	d.reservations.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveCommit records the outcome and duration of one submit.
func (d *DraftMetrics) ObserveCommit(outcome string, duration time.Duration) {
	if d == nil || d.commits == nil {
		return
	}
	d.commits.WithLabelValues(normalizeLabel(outcome)).Inc()
	d.duration.Observe(duration.Seconds())
}

func (d *DraftMetrics) IncAbandoned() {
	if d == nil || d.abandoned == nil {
		return
	}
	d.abandoned.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
