package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaygate/gateway/model"
)

func testProviders() []model.ProviderDescriptor {
	return []model.ProviderDescriptor{
		{
			Provider: "providerA",
			Enabled:  true,
			Weight:   1,
			Models: []model.ModelDescriptor{
				{Provider: "providerA", Model: "modelEcon", Tier: model.TierEconomy, Enabled: true,
					CostPer1kInput: 0.002, CostPer1kOutput: 0.006, LatencyP50Ms: 300, LatencyP95Ms: 500},
				{Provider: "providerA", Model: "modelPrem", Tier: model.TierPremium, Enabled: true,
					CostPer1kInput: 0.015, CostPer1kOutput: 0.075, LatencyP50Ms: 900, LatencyP95Ms: 1500,
					Capabilities: []model.Capability{model.CapabilityReasoning}},
			},
		},
		{
			Provider: "providerB",
			Enabled:  true,
			Weight:   0.9,
			Models: []model.ModelDescriptor{
				{Provider: "providerB", Model: "modelStd", Tier: model.TierStandard, Enabled: true,
					CostPer1kInput: 0.005, CostPer1kOutput: 0.015, LatencyP50Ms: 500, LatencyP95Ms: 800},
			},
		},
	}
}

func TestTierGatingExcludesPremiumWhenSimple(t *testing.T) {
	reg := New(testProviders())
	models := reg.EligibleModels(model.RoutingPreferences{}, 0.05, DefaultComplexityThresholds())

	for _, m := range models {
		require.NotEqual(t, model.TierPremium, m.Tier)
	}
}

func TestPreferredProviderBypassesTierGate(t *testing.T) {
	reg := New(testProviders())
	prefs := model.RoutingPreferences{PreferredProviders: []string{"providerA"}}
	models := reg.EligibleModels(prefs, 0.05, DefaultComplexityThresholds())

	found := false
	for _, m := range models {
		if m.Tier == model.TierPremium {
			found = true
		}
	}
	require.True(t, found, "preferred provider should not be tier-gated")
}

func TestExcludeProvidersFiltersOut(t *testing.T) {
	reg := New(testProviders())
	prefs := model.RoutingPreferences{ExcludeProviders: []string{"providerA"}}
	models := reg.EligibleModels(prefs, 0.9, DefaultComplexityThresholds())

	for _, m := range models {
		require.NotEqual(t, "providerA", m.Provider)
	}
	require.NotEmpty(t, models)
}

func TestRequiredCapabilitiesFilter(t *testing.T) {
	reg := New(testProviders())
	prefs := model.RoutingPreferences{RequiredCapabilities: []model.Capability{model.CapabilityReasoning}}
	models := reg.EligibleModels(prefs, 0.9, DefaultComplexityThresholds())

	require.Len(t, models, 1)
	require.Equal(t, "modelPrem", models[0].Model)
}

func TestLatencyBudgetFilter(t *testing.T) {
	reg := New(testProviders())
	prefs := model.RoutingPreferences{Budget: model.BudgetHints{MaxLatencyMs: 600}}
	models := reg.EligibleModels(prefs, 0.9, DefaultComplexityThresholds())

	for _, m := range models {
		require.LessOrEqual(t, m.LatencyP95Ms, 600.0)
	}
}

func TestPreferredWithNoSurvivorsReturnsAll(t *testing.T) {
	reg := New(testProviders())
	prefs := model.RoutingPreferences{PreferredProviders: []string{"providerZ"}}
	models := reg.EligibleModels(prefs, 0.9, DefaultComplexityThresholds())
	require.NotEmpty(t, models)
}

func TestProviderWeightDefaultsToOne(t *testing.T) {
	reg := New(testProviders())
	require.Equal(t, 1.0, reg.ProviderWeight("unknown-provider"))
	require.Equal(t, 0.9, reg.ProviderWeight("providerB"))
}

func TestRegistryIsImmutableAfterLoad(t *testing.T) {
	providers := testProviders()
	reg := New(providers)
	providers[0].Enabled = false
	// mutating the caller's slice after New must not affect the registry
	models := reg.EligibleModels(model.RoutingPreferences{}, 0.9, DefaultComplexityThresholds())
	found := false
	for _, m := range models {
		if m.Provider == "providerA" {
			found = true
		}
	}
	require.True(t, found)
}
