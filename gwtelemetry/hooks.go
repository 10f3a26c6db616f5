package gwtelemetry

import (
	"context"
	"strconv"

	"github.com/relaygate/gateway/core"
)

// RequestTrace accumulates everything the gateway orchestrator learns
// about one request over its lifetime. Hooks.Finish converts it into
// the span attributes and metric emissions the terminal outcome
// requires: {request_id, strategy, complexity, provider_attempts[],
// cache_hit, total_latency_ms, total_cost_usd, warnings[], outcome}.
type RequestTrace struct {
	RequestID        string
	Strategy         string
	Complexity       float64
	ProviderAttempts []string // "provider/model" per dispatch attempt
	CacheHit         bool
	TotalLatencyMS   float64
	TotalCostUSD     float64
	Warnings         []string
	Outcome          string // "success", "rate_limited", "blocked_pii", "blocked_injection", "no_eligible_model", "all_providers_failed", "cancelled"
}

// Hooks is the Observability Hooks component: it owns the span for one
// request and knows how to translate the accumulated RequestTrace into
// span attributes and metric emissions at the end.
type Hooks struct {
	telemetry core.Telemetry
}

// NewHooks wraps telemetry (nil falls back to a no-op sink).
func NewHooks(telemetry core.Telemetry) *Hooks {
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}
	return &Hooks{telemetry: telemetry}
}

// Start begins the request-level span.
func (h *Hooks) Start(ctx context.Context, requestID string) (context.Context, core.Span) {
	ctx, span := h.telemetry.StartSpan(ctx, "gateway.request")
	span.SetAttribute("request_id", requestID)
	return ctx, span
}

// Finish attaches trace's final attributes to span, records the
// terminal metrics, and ends the span. Call exactly once per request.
func (h *Hooks) Finish(span core.Span, trace RequestTrace) {
	span.SetAttribute("strategy", trace.Strategy)
	span.SetAttribute("complexity", trace.Complexity)
	span.SetAttribute("cache_hit", trace.CacheHit)
	span.SetAttribute("total_latency_ms", trace.TotalLatencyMS)
	span.SetAttribute("total_cost_usd", trace.TotalCostUSD)
	span.SetAttribute("outcome", trace.Outcome)
	span.SetAttribute("provider_attempts_count", len(trace.ProviderAttempts))
	for i, attempt := range trace.ProviderAttempts {
		span.SetAttribute(attemptKey(i), attempt)
	}
	for i, warning := range trace.Warnings {
		span.SetAttribute(warningKey(i), warning)
	}
	span.End()

	h.telemetry.RecordMetric("gateway.requests.total", 1, map[string]string{
		"outcome":  trace.Outcome,
		"strategy": trace.Strategy,
	})
	h.telemetry.RecordMetric("gateway.request.duration_ms", trace.TotalLatencyMS, map[string]string{
		"outcome": trace.Outcome,
	})
	if trace.CacheHit {
		h.telemetry.RecordMetric("gateway.cache_hit", 1, nil)
	} else {
		h.telemetry.RecordMetric("gateway.cache_miss", 1, nil)
	}
}

// Attempt records one dispatch attempt's per-(provider,model) metrics.
func (h *Hooks) Attempt(provider, model string, success bool, latencyMs float64) {
	result := "success"
	if !success {
		result = "failure"
	}
	h.telemetry.RecordMetric("gateway.provider_attempt", 1, map[string]string{
		"provider": provider,
		"model":    model,
		"result":   result,
	})
	h.telemetry.RecordMetric("gateway.provider_latency_ms", latencyMs, map[string]string{
		"provider": provider,
		"model":    model,
	})
}

// Cost records the estimated dollar cost of one completed dispatch.
func (h *Hooks) Cost(provider, model string, usd float64) {
	if usd <= 0 {
		return
	}
	h.telemetry.RecordMetric("gateway.cost_usd", usd, map[string]string{
		"provider": provider,
		"model":    model,
	})
}

// RateLimited counts a request rejected by the fixed-window limiter.
func (h *Hooks) RateLimited(identity string) {
	h.telemetry.RecordMetric("gateway.rate_limit_rejected", 1, map[string]string{
		"identity": identity,
	})
}

func attemptKey(i int) string {
	return "provider_attempts." + strconv.Itoa(i)
}

func warningKey(i int) string {
	return "warnings." + strconv.Itoa(i)
}
