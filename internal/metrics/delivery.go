package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// deliveryOutcomesTotal counts terminal task outcomes by template category and result.
	// Labels:
	// - category: event_announcement | mentorship_invite | registration_confirmation | general
	// - result: sent | failed
	deliveryOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmis",
			Subsystem: "delivery",
			Name:      "outcomes_total",
			Help:      "Terminal delivery task outcomes by category and result.",
		},
		[]string{"category", "result"},
	)

	// enqueueTotal counts enqueue attempts by result.
	// Labels:
	// - result: accepted | rejected | error
	enqueueTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmis",
			Subsystem: "delivery",
			Name:      "enqueue_total",
			Help:      "Enqueue attempts by result.",
		},
		[]string{"result"},
	)

	// claimConflictsTotal counts tasks that were already claimed by a concurrent processor.
	claimConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cmis",
			Subsystem: "delivery",
			Name:      "claim_conflicts_total",
			Help:      "Tasks skipped because a concurrent processor claimed them first.",
		},
	)

	// batchDurationSeconds observes the wall time of one ProcessQueue invocation.
	batchDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cmis",
			Subsystem: "delivery",
			Name:      "batch_duration_seconds",
			Help:      "Duration of one queue processing batch in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// IncDeliveryOutcome increments the delivery outcome counter.
func IncDeliveryOutcome(category, result string) {
	if category == "" {
		category = "unknown"
	}
	if result == "" {
		result = "unknown"
	}
	deliveryOutcomesTotal.WithLabelValues(category, result).Inc()
}

// IncEnqueue increments the enqueue counter.
func IncEnqueue(result string) {
	if result == "" {
		result = "unknown"
	}
	enqueueTotal.WithLabelValues(result).Inc()
}

// IncClaimConflict increments the claim conflict counter.
func IncClaimConflict() { claimConflictsTotal.Inc() }

// ObserveBatchDuration records the duration of a ProcessQueue invocation in seconds.
func ObserveBatchDuration(seconds float64) { batchDurationSeconds.Observe(seconds) }
