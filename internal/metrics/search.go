package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and access Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total searches by requested mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: ok / invalid / throttled / error
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	SearchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_candidates",
			Help:      "Candidates scored per search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_degraded_total",
			Help:      "Searches that ran without the vector strategy they asked for",
		},
		[]string{"mode"},
	)

	SearchDroppedCandidatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_dropped_candidates_total",
			Help:      "Candidates dropped after a scoring fault",
		},
	)

	AccessDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access gate decisions by phase",
		},
		[]string{"phase"},
	)

	UsageDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_dispatch_total",
			Help:      "Usage events by dispatch result",
		},
		[]string{"result"}, // recorded / failed / timeout / rejected
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search, access and usage metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		SearchRequestsTotal,
		SearchDuration,
		SearchCandidates,
		SearchDegradedTotal,
		SearchDroppedCandidatesTotal,
		AccessDecisionsTotal,
		UsageDispatchTotal,
	)
	searchMetricsRegistered = true
}
