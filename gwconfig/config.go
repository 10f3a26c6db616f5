// Package gwconfig implements the typed configuration surface covering
// providers, routing, cache, security, rate limiting, breaker, and
// cost-budget options, loaded from environment variables with an
// optional YAML-file overlay.
//
// Grounded on core/config.go: the explicit os.Getenv-per-field
// LoadFromEnv pattern (reused here instead of a reflection-based tag
// loader, since core/config.go's own loader doesn't use one either)
// and its three-layer priority comment (defaults, then env, then
// explicit overrides) — this package's
// three layers are DefaultGatewayConfig(), LoadFromEnv(), then
// FromYAML() as the final, highest-priority overlay, matching
// "functional options (highest priority)" in spirit even though YAML
// here plays that role instead of Option values.
package gwconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/relaygate/gateway/core"
	"github.com/relaygate/gateway/model"
)

// PIIDetectionConfig mirrors security.piiDetection.*.
type PIIDetectionConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
	Action   string   `yaml:"action"` // block | mask | warn
}

// PromptInjectionConfig mirrors security.promptInjection.*.
type PromptInjectionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Action  string `yaml:"action"` // block | warn
}

// OutputSanitizationConfig mirrors security.outputSanitization.*.
type OutputSanitizationConfig struct {
	Enabled         bool     `yaml:"enabled"`
	BlockedPatterns []string `yaml:"blockedPatterns"`
}

// SecurityConfig groups the three Security Guard sub-configs.
type SecurityConfig struct {
	PIIDetection       PIIDetectionConfig       `yaml:"piiDetection"`
	PromptInjection    PromptInjectionConfig    `yaml:"promptInjection"`
	OutputSanitization OutputSanitizationConfig `yaml:"outputSanitization"`
}

// RoutingConfig mirrors routing.* options.
type RoutingConfig struct {
	DefaultStrategy            string  `yaml:"defaultStrategy"`
	ComplexityThresholdSimple  float64 `yaml:"complexityThresholdSimple"`
	ComplexityThresholdComplex float64 `yaml:"complexityThresholdComplex"`
}

// CacheConfig mirrors cache.* options.
type CacheConfig struct {
	Enabled                     bool          `yaml:"enabled"`
	SemanticSimilarityThreshold float64       `yaml:"semanticSimilarityThreshold"`
	RedisURL                    string        `yaml:"redisURL"`
	TTL                         time.Duration `yaml:"ttl"`
}

// RateLimitConfig mirrors rateLimit.* options.
type RateLimitConfig struct {
	RequestsPerMinute int   `yaml:"requestsPerMinute"`
	TokensPerMinute   int64 `yaml:"tokensPerMinute"`
}

// BreakerConfig mirrors breaker.* options (a global default;
// per-provider overrides are applied by the caller constructing
// breaker.Registry, one per provider, from this default).
type BreakerConfig struct {
	FailureThreshold         int   `yaml:"failureThreshold"`
	OpenDurationMs           int64 `yaml:"openDurationMs"`
	HalfOpenSuccessThreshold int   `yaml:"halfOpenSuccessThreshold"`
}

// CostBudgetsConfig mirrors cost.budgets.* — advisory only.
type CostBudgetsConfig struct {
	Daily   float64 `yaml:"daily"`
	Monthly float64 `yaml:"monthly"`
}

// GatewayConfig is the full typed configuration surface.
type GatewayConfig struct {
	Providers []model.ProviderDescriptor `yaml:"providers"`
	Routing   RoutingConfig              `yaml:"routing"`
	Cache     CacheConfig                `yaml:"cache"`
	Security  SecurityConfig             `yaml:"security"`
	RateLimit RateLimitConfig            `yaml:"rateLimit"`
	Breaker   BreakerConfig              `yaml:"breaker"`
	Cost      struct {
		Budgets CostBudgetsConfig `yaml:"budgets"`
	} `yaml:"cost"`
}

// DefaultGatewayConfig returns the gateway's baseline defaults:
// complexityThresholds.simple=0.3/.complex=0.7, balanced strategy,
// breaker N=5/T=30s/M=1, no providers (the caller always supplies its
// own inventory).
func DefaultGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		Routing: RoutingConfig{
			DefaultStrategy:            string(model.StrategyBalanced),
			ComplexityThresholdSimple:  0.3,
			ComplexityThresholdComplex: 0.7,
		},
		Cache: CacheConfig{TTL: 5 * time.Minute},
		Security: SecurityConfig{
			PIIDetection:    PIIDetectionConfig{Enabled: true, Action: "mask"},
			PromptInjection: PromptInjectionConfig{Enabled: true, Action: "block"},
		},
		RateLimit: RateLimitConfig{RequestsPerMinute: 60, TokensPerMinute: 100000},
		Breaker: BreakerConfig{
			FailureThreshold:         5,
			OpenDurationMs:           30000,
			HalfOpenSuccessThreshold: 1,
		},
	}
}

// LoadFromEnv overlays recognized GATEWAY_* environment variables onto
// cfg, following core/config.go's explicit-per-field os.Getenv idiom
// rather than a reflection-based tag loader.
func (c *GatewayConfig) LoadFromEnv(logger core.Logger) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	if v := os.Getenv("GATEWAY_ROUTING_DEFAULT_STRATEGY"); v != "" {
		c.Routing.DefaultStrategy = v
	}
	if v := os.Getenv("GATEWAY_ROUTING_COMPLEXITY_SIMPLE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Routing.ComplexityThresholdSimple = f
		} else {
			logger.Warn("invalid GATEWAY_ROUTING_COMPLEXITY_SIMPLE", map[string]interface{}{"value": v})
		}
	}
	if v := os.Getenv("GATEWAY_ROUTING_COMPLEXITY_COMPLEX"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Routing.ComplexityThresholdComplex = f
		} else {
			logger.Warn("invalid GATEWAY_ROUTING_COMPLEXITY_COMPLEX", map[string]interface{}{"value": v})
		}
	}
	if v := os.Getenv("GATEWAY_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("GATEWAY_CACHE_REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("GATEWAY_RATELIMIT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.RequestsPerMinute = n
		} else {
			logger.Warn("invalid GATEWAY_RATELIMIT_RPM", map[string]interface{}{"value": v})
		}
	}
	if v := os.Getenv("GATEWAY_RATELIMIT_TPM"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.RateLimit.TokensPerMinute = n
		} else {
			logger.Warn("invalid GATEWAY_RATELIMIT_TPM", map[string]interface{}{"value": v})
		}
	}
	if v := os.Getenv("GATEWAY_BREAKER_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Breaker.FailureThreshold = n
		} else {
			logger.Warn("invalid GATEWAY_BREAKER_FAILURE_THRESHOLD", map[string]interface{}{"value": v})
		}
	}
	if v := os.Getenv("GATEWAY_COST_BUDGET_DAILY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Cost.Budgets.Daily = f
		} else {
			logger.Warn("invalid GATEWAY_COST_BUDGET_DAILY", map[string]interface{}{"value": v})
		}
	}
	if v := os.Getenv("GATEWAY_COST_BUDGET_MONTHLY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Cost.Budgets.Monthly = f
		} else {
			logger.Warn("invalid GATEWAY_COST_BUDGET_MONTHLY", map[string]interface{}{"value": v})
		}
	}
}

// Validate rejects a config that can't drive the gateway: an empty
// provider inventory, an unrecognized strategy/action, or a
// simple-threshold that isn't below complex.
func (c *GatewayConfig) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("gwconfig: providers must not be empty: %w", core.ErrMissingConfiguration)
	}
	if c.Routing.ComplexityThresholdSimple >= c.Routing.ComplexityThresholdComplex {
		return fmt.Errorf("gwconfig: complexityThresholds.simple must be < .complex: %w", core.ErrInvalidConfiguration)
	}
	switch c.Routing.DefaultStrategy {
	case "", string(model.StrategyCostOptimized), string(model.StrategyLatencyOptimized),
		string(model.StrategyQualityOptimized), string(model.StrategyBalanced):
	default:
		return fmt.Errorf("gwconfig: unknown routing.defaultStrategy %q: %w", c.Routing.DefaultStrategy, core.ErrInvalidConfiguration)
	}
	switch c.Security.PIIDetection.Action {
	case "", "block", "mask", "warn":
	default:
		return fmt.Errorf("gwconfig: unknown piiDetection.action %q: %w", c.Security.PIIDetection.Action, core.ErrInvalidConfiguration)
	}
	switch c.Security.PromptInjection.Action {
	case "", "block", "warn":
	default:
		return fmt.Errorf("gwconfig: unknown promptInjection.action %q: %w", c.Security.PromptInjection.Action, core.ErrInvalidConfiguration)
	}
	return nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
