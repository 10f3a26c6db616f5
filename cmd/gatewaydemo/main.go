// Command gatewaydemo wires every gateway component into a single
// runnable process: load configuration, build the provider inventory,
// register a mock adapter per provider, and send one request through
// the Orchestrator end to end. A library-style gateway needs at least
// one concrete entry point to be runnable, the same way
// core/cmd/example/main.go ships alongside the core package it drives.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relaygate/gateway/breaker"
	"github.com/relaygate/gateway/cache"
	"github.com/relaygate/gateway/gateway"
	"github.com/relaygate/gateway/gwconfig"
	"github.com/relaygate/gateway/gwlog"
	"github.com/relaygate/gateway/gwtelemetry"
	"github.com/relaygate/gateway/model"
	"github.com/relaygate/gateway/provider"
	"github.com/relaygate/gateway/ratelimit"
	"github.com/relaygate/gateway/registry"
	"github.com/relaygate/gateway/reliability"
	"github.com/relaygate/gateway/router"
)

func demoInventory() []model.ProviderDescriptor {
	return []model.ProviderDescriptor{
		{
			Provider: "acme", Enabled: true, Weight: 1,
			Models: []model.ModelDescriptor{
				{
					Provider: "acme", Model: "acme-economy", Tier: model.TierEconomy,
					Capabilities:    []model.Capability{model.CapabilityReasoning},
					CostPer1kInput:  0.0005, CostPer1kOutput: 0.0015,
					LatencyP50Ms: 180, LatencyP95Ms: 350, ContextWindowTokens: 16000, Enabled: true,
				},
			},
		},
		{
			Provider: "globex", Enabled: true, Weight: 1,
			Models: []model.ModelDescriptor{
				{
					Provider: "globex", Model: "globex-premium", Tier: model.TierPremium,
					Capabilities:    []model.Capability{model.CapabilityReasoning, model.CapabilityCoding},
					CostPer1kInput:  0.01, CostPer1kOutput: 0.03,
					LatencyP50Ms: 400, LatencyP95Ms: 900, ContextWindowTokens: 128000, Enabled: true,
				},
			},
		},
	}
}

func main() {
	yamlPath := flag.String("config", "", "optional YAML config overlay")
	prompt := flag.String("prompt", "Summarize the latest quarterly earnings call in two sentences.", "prompt to send through the gateway")
	flag.Parse()

	logger, err := gwlog.New(gwlog.DefaultConfig())
	if err != nil {
		log.Fatalf("gwlog.New: %v", err)
	}
	defer logger.Sync()

	cfg, err := gwconfig.Load(*yamlPath, logger)
	if err != nil {
		log.Fatalf("gwconfig.Load: %v", err)
	}
	cfg.Providers = demoInventory()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	telemetry := gwtelemetry.NewDisabled("relaygate_demo", prometheus.NewRegistry())
	hooks := gwtelemetry.NewHooks(telemetry)

	reg := registry.New(cfg.Providers)
	tracker := reliability.New()
	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold:         cfg.Breaker.FailureThreshold,
		OpenDuration:             time.Duration(cfg.Breaker.OpenDurationMs) * time.Millisecond,
		HalfOpenSuccessThreshold: cfg.Breaker.HalfOpenSuccessThreshold,
	}, logger, telemetry)
	limiter := ratelimit.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.TokensPerMinute)
	guard, err := cfg.BuildGuard()
	if err != nil {
		log.Fatalf("invalid security config: %v", err)
	}
	thresholds := registry.ComplexityThresholds{
		Simple:  cfg.Routing.ComplexityThresholdSimple,
		Complex: cfg.Routing.ComplexityThresholdComplex,
	}
	rtr := router.New(reg, tracker, thresholds)
	rtr.SetDefaultStrategy(model.Strategy(cfg.Routing.DefaultStrategy))

	providers := provider.NewRegistry()
	providers.Register("acme", provider.NewMockAdapter("acme: here is a concise summary."))
	providers.Register("globex", provider.NewMockAdapter("globex: here is a thorough, detailed summary."))

	var respCache cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisURL != "" {
			redisCache, err := cache.NewRedisCache(cache.RedisCacheOptions{
				RedisURL: cfg.Cache.RedisURL, TTL: cfg.Cache.TTL, Logger: logger,
			})
			if err != nil {
				logger.Warn("semantic cache disabled: redis unavailable", map[string]interface{}{"error": err.Error()})
			} else {
				respCache = redisCache
			}
		} else {
			respCache = cache.NewInMemoryCache(cfg.Cache.TTL)
		}
	}

	orchestrator := gateway.New(gateway.Deps{
		Registry:    reg,
		Reliability: tracker,
		Breakers:    breakers,
		Limiter:     limiter,
		Guard:       guard,
		Router:      rtr,
		Providers:   providers,
		Cache:       respCache,
		Audit:       gateway.NewInMemoryAuditLog(1000),
		CostLedger:  gateway.NewCostLedger(cfg.Cost.Budgets.Daily, cfg.Cost.Budgets.Monthly),
		Hooks:       hooks,
		Logger:      logger,
	}, gateway.Config{FallbackEnabled: true})

	req := &model.Request{
		ID: "demo-1",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: []model.ContentBlock{{Type: "text", Text: *prompt}}},
		},
		Preferences: model.RoutingPreferences{Strategy: model.StrategyBalanced},
		Meta:        model.Metadata{TenantKey: "demo-tenant"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := orchestrator.Process(ctx, req)
	if err != nil {
		log.Fatalf("gateway request failed: %v", err)
	}

	logger.Info("gateway request succeeded", map[string]interface{}{
		"provider":   resp.ProviderUsed,
		"model":      resp.ModelUsed,
		"cost_usd":   resp.Cost.TotalCost,
		"latency_ms": resp.LatencyMs,
		"content":    resp.Content,
	})
}
