// Package registry implements the model registry: the static
// provider/model inventory loaded once at startup, with an
// eligibility filter combining exclusion, capability, latency-budget,
// and tier-gating rules.
//
// Grounded on ai/registry.go's global provider registry (a
// sync.Map-backed map of name -> ProviderFactory, read far more than
// written) — adapted here from a factory registry to a static
// descriptor inventory, since this gateway's providers are data
// (cost/latency/tier), not constructors.
package registry

import (
	"github.com/relaygate/gateway/model"
)

// Registry holds the immutable provider/model inventory for the
// process lifetime.
type Registry struct {
	providers []model.ProviderDescriptor
}

// New builds a Registry from a static list of provider descriptors.
// The top-level slice is copied, so later changes to the caller's
// provider descriptors (e.g. a provider's Enabled flag) don't affect
// the registry; each provider's Models slice is still shared with the
// caller.
func New(providers []model.ProviderDescriptor) *Registry {
	cp := make([]model.ProviderDescriptor, len(providers))
	copy(cp, providers)
	return &Registry{providers: cp}
}

// Providers returns the full provider inventory.
func (r *Registry) Providers() []model.ProviderDescriptor {
	return r.providers
}

// ComplexityThresholds configures tier gating (the "simple" threshold)
// and is echoed from routing.complexityThresholds.
type ComplexityThresholds struct {
	Simple  float64 // default 0.3
	Complex float64 // default 0.7
}

// DefaultComplexityThresholds returns the gateway's baseline defaults.
func DefaultComplexityThresholds() ComplexityThresholds {
	return ComplexityThresholds{Simple: 0.3, Complex: 0.7}
}

// EligibleModels filters the registry's models down to the ones a
// request may route to, given its complexityScore. It filters by:
//  (a) provider not in excludeProviders,
//  (b) model declares all requiredCapabilities,
//  (c) latencyP95Ms <= budget.maxLatencyMs when a budget hint is present,
//  (d) tier gating: below the "simple" threshold, premium models are
//      excluded unless the caller explicitly preferred that provider.
// Then, if preferredProviders is non-empty and at least one preferred
// model survives, only preferred models are returned; otherwise all
// survivors are returned.
func (r *Registry) EligibleModels(prefs model.RoutingPreferences, complexityScore float64, thresholds ComplexityThresholds) []model.ModelDescriptor {
	excluded := toSet(prefs.ExcludeProviders)
	preferred := toSet(prefs.PreferredProviders)

	var survivors []model.ModelDescriptor
	for _, p := range r.providers {
		if !p.Enabled || excluded[p.Provider] {
			continue
		}
		for _, m := range p.Models {
			if !m.Enabled {
				continue
			}
			if !hasAllCapabilities(m, prefs.RequiredCapabilities) {
				continue
			}
			if prefs.Budget.MaxLatencyMs > 0 && m.LatencyP95Ms > prefs.Budget.MaxLatencyMs {
				continue
			}
			if complexityScore < thresholds.Simple && m.Tier == model.TierPremium && !preferred[p.Provider] {
				continue
			}
			survivors = append(survivors, m)
		}
	}

	if len(preferred) > 0 {
		var onlyPreferred []model.ModelDescriptor
		for _, m := range survivors {
			if preferred[m.Provider] {
				onlyPreferred = append(onlyPreferred, m)
			}
		}
		if len(onlyPreferred) > 0 {
			return onlyPreferred
		}
	}

	return survivors
}

func hasAllCapabilities(m model.ModelDescriptor, required []model.Capability) bool {
	for _, c := range required {
		if !m.HasCapability(c) {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}

// Find returns the descriptor for (provider, modelName), for callers
// (the orchestrator's cost calculation) that need a model's static
// cost/latency parameters after routing has already chosen it.
func (r *Registry) Find(provider, modelName string) (model.ModelDescriptor, bool) {
	for _, p := range r.providers {
		if p.Provider != provider {
			continue
		}
		for _, m := range p.Models {
			if m.Model == modelName {
				return m, true
			}
		}
	}
	return model.ModelDescriptor{}, false
}

// ProviderWeight returns the routing weight configured for provider,
// defaulting to 1.0 when the provider is unknown (so router scoring
// never zeroes out a model it otherwise found eligible).
func (r *Registry) ProviderWeight(provider string) float64 {
	for _, p := range r.providers {
		if p.Provider == provider {
			return p.Weight
		}
	}
	return 1.0
}
