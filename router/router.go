package router

import (
	"fmt"
	"sort"

	"github.com/relaygate/gateway/model"
	"github.com/relaygate/gateway/registry"
	"github.com/relaygate/gateway/reliability"
)

// strategyWeights is the table of (cost, latency, quality,
// reliability) weights per strategy.
type strategyWeights struct {
	cost, latency, quality, reliability float64
}

var weightsByStrategy = map[model.Strategy]strategyWeights{
	model.StrategyCostOptimized:    {0.5, 0.2, 0.2, 0.1},
	model.StrategyLatencyOptimized: {0.1, 0.5, 0.2, 0.2},
	model.StrategyQualityOptimized: {0.1, 0.1, 0.6, 0.2},
	model.StrategyBalanced:         {0.25, 0.25, 0.3, 0.2},
}

// Router scores and selects eligible models end to end. It reads from
// a Reliability Tracker injected at construction (never writes to it),
// which breaks the Router/Orchestrator cyclic dependency: Router
// reads, Orchestrator writes.
type Router struct {
	registry        *registry.Registry
	reliability     *reliability.Tracker
	thresholds      registry.ComplexityThresholds
	defaultStrategy model.Strategy
}

// New builds a Router over reg, scoring reliability via tracker.
func New(reg *registry.Registry, tracker *reliability.Tracker, thresholds registry.ComplexityThresholds) *Router {
	return &Router{registry: reg, reliability: tracker, thresholds: thresholds}
}

// SetDefaultStrategy overrides the strategy used when a request doesn't
// name one (routing.defaultStrategy). The zero default is balanced.
func (r *Router) SetDefaultStrategy(s model.Strategy) {
	r.defaultStrategy = s
}

// scoredModel pairs a model with its combined score for sorting.
type scoredModel struct {
	model model.ModelDescriptor
	score float64
}

// Route runs the full scoring pipeline, returning a RoutingDecision
// or false when no eligible model exists.
func (r *Router) Route(req *model.Request) (model.RoutingDecision, bool) {
	strategy := req.Preferences.Strategy
	if strategy == "" {
		strategy = r.defaultStrategy
	}
	if strategy == "" {
		strategy = model.StrategyBalanced
	}
	weights, ok := weightsByStrategy[strategy]
	if !ok {
		weights = weightsByStrategy[model.StrategyBalanced]
		strategy = model.StrategyBalanced
	}

	complexity := ComplexityScore(req)
	eligible := r.registry.EligibleModels(req.Preferences, complexity, r.thresholds)
	if len(eligible) == 0 {
		return model.RoutingDecision{}, false
	}

	scored := make([]scoredModel, 0, len(eligible))
	for _, m := range eligible {
		s := r.combinedScore(m, weights, complexity, req.Preferences.RequiredCapabilities)
		scored = append(scored, scoredModel{model: m, score: s})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		// Deterministic tie-break: lexicographic (provider, model).
		if scored[i].model.Provider != scored[j].model.Provider {
			return scored[i].model.Provider < scored[j].model.Provider
		}
		return scored[i].model.Model < scored[j].model.Model
	})

	top := scored[0]
	alternatives := make([]model.ProviderModel, 0, 3)
	for i := 1; i < len(scored) && len(alternatives) < 3; i++ {
		alternatives = append(alternatives, model.ProviderModel{
			Provider: scored[i].model.Provider,
			Model:    scored[i].model.Model,
		})
	}

	return model.RoutingDecision{
		Strategy:           strategy,
		SelectedProvider:   top.model.Provider,
		SelectedModel:      top.model.Model,
		ComplexityScore:    complexity,
		Reason:             reasonFor(strategy, top.model, complexity),
		RankedAlternatives: alternatives,
	}, true
}

// GetFallback re-invokes routing with the failed provider excluded.
func (r *Router) GetFallback(req *model.Request, failed model.RoutingDecision) (model.RoutingDecision, bool) {
	clone := req.Clone()
	clone.Preferences.ExcludeProviders = append(append([]string(nil), clone.Preferences.ExcludeProviders...), failed.SelectedProvider)
	return r.Route(clone)
}

func (r *Router) combinedScore(m model.ModelDescriptor, w strategyWeights, complexity float64, requiredCaps []model.Capability) float64 {
	cost := costScore(m)
	latency := latencyScore(m)
	quality := qualityScore(m, complexity)
	rel := r.reliability.Get(m.Provider, m.Model).SuccessRate

	base := w.cost*cost + w.latency*latency + w.quality*quality + w.reliability*rel

	overlap := 0
	for _, c := range requiredCaps {
		if m.HasCapability(c) {
			overlap++
		}
	}
	base += 0.05 * float64(overlap)

	return base * r.registry.ProviderWeight(m.Provider)
}

func costScore(m model.ModelDescriptor) float64 {
	total := m.CostPer1kInput + m.CostPer1kOutput
	v := 1 - min(total/0.1, 1)
	return v
}

func latencyScore(m model.ModelDescriptor) float64 {
	return 1 - min(m.LatencyP50Ms/2000, 1)
}

func qualityScore(m model.ModelDescriptor, complexity float64) float64 {
	var base float64
	switch m.Tier {
	case model.TierPremium:
		base = 0.9 + 0.1*complexity
	case model.TierStandard:
		base = 0.7 + 0.1*complexity
	case model.TierEconomy:
		base = 0.5 + 0.2*(1-complexity)
	default:
		base = 0.5
	}

	if m.HasCapability(model.CapabilityReasoning) {
		base += 0.05
	}
	if m.HasCapability(model.CapabilityCoding) {
		base += 0.03
	}
	if m.HasCapability(model.CapabilityLongContext) {
		base += 0.02
	}

	if base > 1.0 {
		base = 1.0
	}
	return base
}

func reasonFor(strategy model.Strategy, m model.ModelDescriptor, complexity float64) string {
	return fmt.Sprintf("%s selected %s/%s (tier %s, complexity %.2f)", strategy, m.Provider, m.Model, m.Tier, complexity)
}
