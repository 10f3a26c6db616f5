// Package gwtelemetry implements core.Telemetry by pairing an
// OpenTelemetry trace provider (adapted from telemetry/otel.go's
// OTelProvider, trimmed to OTLP/HTTP traces only) with a prometheus
// metrics collector (grounded on the agentflow metrics Collector), in
// place of a single otel-meter-backed RecordMetric. Tracing stays on
// OpenTelemetry because spans are where
// the gateway attaches its per-request observability attributes
// (strategy, complexity, provider_attempts, cache_hit, ...); metrics
// move to Prometheus because it is the scrape target every other
// pack example wires its gauges/counters through.
package gwtelemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaygate/gateway/core"
)

// Provider implements core.Telemetry. Zero value is usable (falls back
// to no-op spans) but Start constructs the real OTLP pipeline.
type Provider struct {
	tracer        trace.Tracer
	traceProvider *sdktrace.TracerProvider
	metrics       *metricsCollector
	namespace     string

	mu           sync.RWMutex
	shutdown     bool
	shutdownOnce sync.Once
}

var _ core.Telemetry = (*Provider)(nil)

// Start builds a Provider exporting traces to endpoint over OTLP/HTTP
// and registering Prometheus metrics under namespace against reg (pass
// prometheus.DefaultRegisterer unless tests want isolation).
func Start(ctx context.Context, serviceName, endpoint, namespace string, reg prometheus.Registerer) (*Provider, error) {
	if serviceName == "" {
		return nil, core.NewFrameworkError("gwtelemetry.Start", "telemetry", core.ErrInvalidConfiguration)
	}
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, core.NewFrameworkError("gwtelemetry.Start", "telemetry", err)
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, core.NewFrameworkError("gwtelemetry.Start", "telemetry", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return &Provider{
		tracer:        tp.Tracer(serviceName),
		traceProvider: tp,
		metrics:       newMetricsCollector(namespace, reg),
		namespace:     namespace,
	}, nil
}

// NewDisabled returns a Provider with no-op tracing but real metrics,
// useful for local demo runs without a collector endpoint.
func NewDisabled(namespace string, reg prometheus.Registerer) *Provider {
	return &Provider{metrics: newMetricsCollector(namespace, reg)}
}

// StartSpan implements core.Telemetry.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	p.mu.RLock()
	shut := p.shutdown
	p.mu.RUnlock()
	if shut || p.tracer == nil {
		return ctx, &core.NoOpSpan{}
	}
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric implements core.Telemetry, routing by name pattern the
// same way OTelProvider.RecordMetric does, except against prometheus
// vectors instead of otel instruments.
func (p *Provider) RecordMetric(name string, value float64, labels map[string]string) {
	if p.metrics == nil {
		return
	}
	switch {
	case strings.Contains(name, "provider_latency"):
		if strings.HasSuffix(name, "_ms") {
			value /= 1000 // the histogram is in seconds
		}
		p.metrics.providerLatency.WithLabelValues(labels["provider"], labels["model"]).Observe(value)
	case strings.Contains(name, "duration") || strings.Contains(name, "latency"):
		if strings.HasSuffix(name, "_ms") {
			value /= 1000 // the histogram is in seconds
		}
		p.metrics.requestDuration.WithLabelValues(labels["outcome"]).Observe(value)
	case strings.Contains(name, "provider_attempt"):
		p.metrics.providerAttempts.WithLabelValues(labels["provider"], labels["model"], labels["result"]).Add(value)
	case strings.Contains(name, "provider_error"):
		p.metrics.providerErrors.WithLabelValues(labels["provider"], labels["model"], labels["kind"]).Add(value)
	case strings.Contains(name, "cache_hit"):
		p.metrics.cacheHits.WithLabelValues().Add(value)
	case strings.Contains(name, "cache_miss"):
		p.metrics.cacheMisses.WithLabelValues().Add(value)
	case strings.Contains(name, "rate_limit_rejected"):
		p.metrics.rateLimitRejected.WithLabelValues(labels["identity"]).Add(value)
	case strings.Contains(name, "cost"):
		p.metrics.costTotal.WithLabelValues(labels["provider"], labels["model"]).Add(value)
	case strings.Contains(name, "request"):
		p.metrics.requestsTotal.WithLabelValues(labels["outcome"], labels["strategy"]).Add(value)
	}
}

// RecordBreakerState sets the per-provider breaker_state gauge; it
// implements breaker.StateGauge, which breaker.NewRegistry discovers
// by type assertion on its core.Telemetry argument. Separate from
// RecordMetric because the name-sniffing path can't express a gauge
// Set (only Add).
func (p *Provider) RecordBreakerState(provider, state string) {
	if p.metrics == nil {
		return
	}
	p.metrics.breakerState.WithLabelValues(provider).Set(breakerStateValue(state))
}

// Shutdown flushes the trace exporter. Safe to call multiple times.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.shutdown = true
		p.mu.Unlock()
		if p.traceProvider != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err = p.traceProvider.Shutdown(shutdownCtx)
		}
	})
	return err
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}
