package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexdraft", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexdraft", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	VersionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexdraft", Name: "versions_created_total", Help: "Document versions appended, by origin (commit|restore)."},
		[]string{"origin"},
	)
	ChangeRecordsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexdraft", Name: "change_records_written_total", Help: "Change log rows written, by change type."},
		[]string{"type"},
	)
	DegradedWrites = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "lexdraft", Name: "version_degraded_writes_total", Help: "Versions created whose change log could not be written."},
	)
	VersionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "lexdraft", Name: "version_conflicts_total", Help: "Version number collisions reported by the store."},
	)
	DiffDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "lexdraft", Name: "diff_duration_seconds", Help: "Time spent computing character diffs.", Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8)},
		[]string{"op"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(VersionsCreated)
	reg.MustRegister(ChangeRecordsWritten)
	reg.MustRegister(DegradedWrites)
	reg.MustRegister(VersionConflicts)
	reg.MustRegister(DiffDuration)
}
