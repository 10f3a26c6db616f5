package gwtelemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsCollector mirrors the agentflow metrics.Collector's
// promauto-registered CounterVec/HistogramVec/GaugeVec fields, scoped
// to the gateway's own metric names instead of HTTP/agent/db ones.
type metricsCollector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	providerAttempts *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	providerErrors   *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	breakerState      *prometheus.GaugeVec
	rateLimitRejected *prometheus.CounterVec

	costTotal *prometheus.CounterVec
}

func newMetricsCollector(namespace string, reg prometheus.Registerer) *metricsCollector {
	factory := promauto.With(reg)

	return &metricsCollector{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total gateway requests by outcome.",
		}, []string{"outcome", "strategy"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end gateway request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),

		providerAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Dispatch attempts per provider/model.",
		}, []string{"provider", "model", "result"}),

		providerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Observed latency per provider/model attempt.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "model"}),

		providerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider attempt failures by classification.",
		}, []string{"provider", "model", "kind"}),

		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Semantic cache hits.",
		}, []string{}),

		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Semantic cache misses.",
		}, []string{}),

		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per provider: 0=closed,1=half_open,2=open.",
		}, []string{"provider"}),

		rateLimitRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejected_total",
			Help:      "Requests rejected by the fixed-window rate limiter.",
		}, []string{"identity"}),

		costTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_usd_total",
			Help:      "Accumulated estimated cost in USD.",
		}, []string{"provider", "model"}),
	}
}

// breakerStateValue maps a breaker's string state to the gauge encoding
// used by breakerState above.
func breakerStateValue(state string) float64 {
	switch state {
	case "half_open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
