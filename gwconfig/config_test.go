package gwconfig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaygate/gateway/model"
)

func TestDefaultGatewayConfigValidateRequiresProviders(t *testing.T) {
	cfg := DefaultGatewayConfig()
	require.Error(t, cfg.Validate())

	cfg.Providers = []model.ProviderDescriptor{{Provider: "providerA", Enabled: true, Weight: 1}}
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := DefaultGatewayConfig()
	cfg.Providers = []model.ProviderDescriptor{{Provider: "providerA", Enabled: true, Weight: 1}}
	cfg.Routing.ComplexityThresholdSimple = 0.8
	cfg.Routing.ComplexityThresholdComplex = 0.7
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownAction(t *testing.T) {
	cfg := DefaultGatewayConfig()
	cfg.Providers = []model.ProviderDescriptor{{Provider: "providerA", Enabled: true, Weight: 1}}
	cfg.Security.PIIDetection.Action = "shred"
	require.Error(t, cfg.Validate())
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("GATEWAY_RATELIMIT_RPM", "10")
	t.Setenv("GATEWAY_ROUTING_DEFAULT_STRATEGY", "cost_optimized")

	cfg := DefaultGatewayConfig()
	cfg.LoadFromEnv(nil)

	require.Equal(t, 10, cfg.RateLimit.RequestsPerMinute)
	require.Equal(t, "cost_optimized", cfg.Routing.DefaultStrategy)
}

func TestFromYAMLRejectsUnknownKeys(t *testing.T) {
	cfg := DefaultGatewayConfig()
	err := FromYAML(cfg, []byte("routing:\n  defaultStrategy: balanced\n  totallyMadeUpKey: true\n"))
	require.Error(t, err)
}

func TestFromYAMLAppliesKnownKeys(t *testing.T) {
	cfg := DefaultGatewayConfig()
	err := FromYAML(cfg, []byte(`
providers:
  - provider: providerA
    enabled: true
    weight: 1
    models:
      - provider: providerA
        model: modelEcon
        tier: economy
        enabled: true
`))
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 1)
	require.Equal(t, "providerA", cfg.Providers[0].Provider)
	require.Equal(t, model.TierEconomy, cfg.Providers[0].Models[0].Tier)
}
