// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InterviewsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_interviews_started_total",
			Help: "Total number of interviews started",
		},
	)

	InterviewsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_interviews_completed_total",
			Help: "Total number of interviews completed and sent to review",
		},
	)

	InterviewsAborted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_interviews_aborted_total",
			Help: "Total number of interviews aborted before review",
		},
		[]string{"reason"},
	)

	InterviewDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_interview_duration_seconds",
			Help:    "Duration of completed interviews in seconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
	)

	ApplicationsDecided = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_applications_decided_total",
			Help: "Total number of staff decisions by outcome",
		},
		[]string{"outcome"},
	)

	ResolverLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_resolver_lookups_total",
			Help: "Total number of character name lookups by result",
		},
		[]string{"result"},
	)

	SnapshotWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_snapshot_writes_total",
			Help: "Total number of whitelist snapshot writes",
		},
	)
)
