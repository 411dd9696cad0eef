package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vikal_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vikal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	StudyActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vikal_study_actions_total",
			Help: "Total number of study actions by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	QuotaDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vikal_quota_denials_total",
			Help: "Total number of actions refused because the free limit was reached.",
		},
		[]string{"kind"},
	)

	CompletionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vikal_completion_duration_seconds",
			Help:    "Completion call duration in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"kind"},
	)

	ParseMissingSectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vikal_parse_missing_sections_total",
			Help: "Total number of expected sections absent from model replies.",
		},
		[]string{"kind", "section"},
	)
)

// Outcome label values for StudyActionsTotal.
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeUpstreamError = "upstream_error"
	OutcomeError         = "error"
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		StudyActionsTotal,
		QuotaDenialsTotal,
		CompletionDuration,
		ParseMissingSectionsTotal,
	)
}
