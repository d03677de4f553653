// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eventdesk"

var (
	// Updates counts participant update attempts by outcome.
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "participant_updates_total",
		Help:      "Participant update attempts by outcome.",
	}, []string{"outcome"})

	// Transitions counts milestone flips by milestone and direction (set/unset).
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "milestone_transitions_total",
		Help:      "Milestone flips by milestone and direction.",
	}, []string{"milestone", "direction"})

	// Attendance mirrors the cached dashboard counts.
	Attendance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "attendance",
		Help:      "Cached participant counts by kind.",
	}, []string{"kind"})

	// Searches observes search latency.
	Searches = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_duration_seconds",
		Help:      "Latency of participant searches.",
		Buckets:   prometheus.DefBuckets,
	})

	// ImportJobs counts processed import jobs by outcome.
	ImportJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_jobs_total",
		Help:      "Processed import jobs by outcome.",
	}, []string{"outcome"})

	// ImportedRows counts participants created by imports.
	ImportedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "imported_participants_total",
		Help:      "Participants created through bulk import.",
	})

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	}, []string{"backend"})
)

// ObserveAttendance publishes the four dashboard counts.
func ObserveAttendance(checkedIn, notCheckedIn, snack, lunch int) {
	Attendance.WithLabelValues("checked_in").Set(float64(checkedIn))
	Attendance.WithLabelValues("not_checked_in").Set(float64(notCheckedIn))
	Attendance.WithLabelValues("snack_distributed").Set(float64(snack))
	Attendance.WithLabelValues("lunch_distributed").Set(float64(lunch))
}

// ObserveDelta records the milestone flips of one transition. Each argument is
// -1, 0 or +1.
func ObserveDelta(checkedIn, snack, lunch int) {
	observeFlip("check_in", checkedIn)
	observeFlip("snack_box", snack)
	observeFlip("lunch_box_ticket", lunch)
}

func observeFlip(milestone string, d int) {
	switch {
	case d > 0:
		Transitions.WithLabelValues(milestone, "set").Inc()
	case d < 0:
		Transitions.WithLabelValues(milestone, "unset").Inc()
	}
}
