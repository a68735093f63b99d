package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlgw_jobs_total",
			Help: "Job admission outcomes by result and source",
		},
		[]string{"outcome", "source"}, // admitted|rejected_validation|rejected_quota|rejected_source
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlgw_rate_limited_total",
			Help: "Requests rejected by the rate-limit stage",
		},
		[]string{"key_by"}, // ip|account
	)

	AuditDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawlgw_audit_events_dropped_total",
			Help: "Usage events dropped because the audit buffer was full",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		JobsTotal,
		RateLimitedTotal,
		AuditDroppedTotal,
	)
}
