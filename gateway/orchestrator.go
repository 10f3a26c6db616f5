// Package gateway implements the gateway orchestrator: the end-to-end
// request pipeline wiring every other component together — cache
// lookup, security pre-check, routing, circuit-breaker-gated dispatch
// with automatic failover, and the reliability/observability updates
// that close the feedback loop.
//
// Grounded on orchestration/orchestrator.go for the overall "one entry
// point sequences every collaborator" shape (its
// ProcessRequest/ProcessRequestStreaming pipeline of
// resolve-capabilities -> build-prompt -> execute -> synthesize), and
// on ai/chain_client.go for the fallback-on-failure loop this
// specializes into breaker-gated dispatch with getFallback-driven
// re-routing instead of a static provider chain.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relaygate/gateway/breaker"
	"github.com/relaygate/gateway/cache"
	"github.com/relaygate/gateway/core"
	"github.com/relaygate/gateway/gatewayerr"
	"github.com/relaygate/gateway/gwtelemetry"
	"github.com/relaygate/gateway/model"
	"github.com/relaygate/gateway/provider"
	"github.com/relaygate/gateway/ratelimit"
	"github.com/relaygate/gateway/registry"
	"github.com/relaygate/gateway/reliability"
	"github.com/relaygate/gateway/router"
	"github.com/relaygate/gateway/security"
)

// defaultDispatchTimeout bounds a request's total dispatch time when
// the caller's context carries no deadline of its own.
const defaultDispatchTimeout = 30 * time.Second

// Config parameterizes one Orchestrator instance beyond the
// collaborators it's built from.
type Config struct {
	// FallbackEnabled gates the final fallback-dispatch step; false
	// means the first dispatch failure is terminal.
	FallbackEnabled bool
	// DispatchTimeout bounds total request time when ctx has no
	// deadline. Defaults to 30s.
	DispatchTimeout time.Duration
}

// Orchestrator runs the full request pipeline. It is the only
// component that writes to the Reliability Tracker and Circuit
// Breaker Registry — Router only reads them, breaking the cyclic
// dependency between the two packages.
type Orchestrator struct {
	registry    *registry.Registry
	reliability *reliability.Tracker
	breakers    *breaker.Registry
	limiter     *ratelimit.Limiter
	guard       *security.Guard
	router      *router.Router
	providers   *provider.Registry
	cache       cache.Cache
	audit       AuditSink
	costLedger  *CostLedger
	hooks       *gwtelemetry.Hooks
	logger      core.Logger

	cfg Config
}

// Deps bundles the collaborators an Orchestrator is constructed from.
// Cache, Audit, CostLedger, Hooks, and Logger may be nil. A nil Cache
// disables caching; every other nil is replaced with a no-op/default
// implementation.
type Deps struct {
	Registry    *registry.Registry
	Reliability *reliability.Tracker
	Breakers    *breaker.Registry
	Limiter     *ratelimit.Limiter
	Guard       *security.Guard
	Router      *router.Router
	Providers   *provider.Registry
	Cache       cache.Cache
	Audit       AuditSink
	CostLedger  *CostLedger
	Hooks       *gwtelemetry.Hooks
	Logger      core.Logger
}

// New builds an Orchestrator from deps and cfg.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = defaultDispatchTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	hooks := deps.Hooks
	if hooks == nil {
		hooks = gwtelemetry.NewHooks(nil)
	}
	audit := deps.Audit
	if audit == nil {
		audit = noOpAuditLog{}
	}
	costLedger := deps.CostLedger
	if costLedger == nil {
		costLedger = NewCostLedger(0, 0)
	}

	return &Orchestrator{
		registry:    deps.Registry,
		reliability: deps.Reliability,
		breakers:    deps.Breakers,
		limiter:     deps.Limiter,
		guard:       deps.Guard,
		router:      deps.Router,
		providers:   deps.Providers,
		cache:       deps.Cache,
		audit:       audit,
		costLedger:  costLedger,
		hooks:       hooks,
		logger:      logger,
		cfg:         cfg,
	}
}

// attempt records one dispatch try for AllProvidersFailed and for the
// trace's provider_attempts list.
type attempt struct {
	provider  string
	model     string
	err       string
	latencyMs float64
}

// Process runs the full request pipeline: trace begin, rate-limit
// check, cache lookup, security pre-check, route, breaker-gated
// dispatch with fallback, then record.
func (o *Orchestrator) Process(ctx context.Context, req *model.Request) (*model.Response, error) {
	start := time.Now()

	// Assign a request ID for callers that didn't set one, the same
	// uuid.New().String()[:8] shape core/agent.go and core/tool.go use
	// for agent/tool IDs, so every trace and audit record has a stable
	// identifier to key off of.
	if req.ID == "" {
		req.ID = uuid.New().String()[:8]
	}

	// Step 1: trace begin.
	ctx, span := o.hooks.Start(ctx, req.ID)
	trace := gwtelemetry.RequestTrace{RequestID: req.ID}
	var blockReason string
	finish := func(outcome string, resp *model.Response) {
		trace.Outcome = outcome
		trace.TotalLatencyMS = float64(time.Since(start).Milliseconds())
		if resp != nil {
			trace.TotalCostUSD = resp.Cost.TotalCost
		}
		o.hooks.Finish(span, trace)
		blocked := outcome == "blocked_pii" || outcome == "blocked_injection"
		providerUsed, modelUsed := "", ""
		if resp != nil {
			providerUsed, modelUsed = resp.ProviderUsed, resp.ModelUsed
		}
		o.audit.Record(model.AuditRecord{
			RequestID:    req.ID,
			TimestampMs:  start.UnixMilli(),
			TenantKey:    req.Meta.TenantKey,
			Outcome:      outcome,
			ProviderUsed: providerUsed,
			ModelUsed:    modelUsed,
			Warnings:     trace.Warnings,
			Blocked:      blocked,
			BlockReason:  blockReason,
		})
	}

	tenantKey := req.Meta.TenantKey
	if tenantKey == "" {
		tenantKey = "default"
	}

	// Step 2: rate-limit check on the caller key.
	allowed, retryAfterMs := o.limiter.Check(tenantKey)
	if !allowed {
		o.hooks.RateLimited(tenantKey)
		finish("rate_limited", nil)
		return nil, gatewayerr.NewRateLimited(retryAfterMs)
	}

	// Step 3: cache lookup.
	if o.cache != nil {
		if cached, hit := o.cache.Lookup(ctx, req); hit {
			trace.CacheHit = true
			// The stored response carries the original dispatch's
			// latency; a hit is served in the time the lookup took.
			cached.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
			finish("success", cached)
			return cached, nil
		}
	}

	// Step 4: security pre-check.
	precheck := o.guard.PreCheck(req)
	if precheck.Blocked {
		blockReason = precheck.BlockReason
		outcome := "blocked_pii"
		if isInjectionBlock(precheck.BlockReason) {
			outcome = "blocked_injection"
		}
		finish(outcome, nil)
		return nil, gatewayerr.NewSecurityBlocked(precheck.BlockReason)
	}
	working := req
	if precheck.SanitizedRequest != nil {
		working = precheck.SanitizedRequest
	}
	trace.Warnings = append(trace.Warnings, precheck.Warnings...)

	// Step 5: route.
	decision, ok := o.router.Route(working)
	if !ok {
		finish("no_eligible_model", nil)
		return nil, gatewayerr.NewNoEligibleModel()
	}
	trace.Strategy = string(decision.Strategy)
	trace.Complexity = decision.ComplexityScore

	// Establish the shared deadline for every dispatch hop: fallback
	// attempts share the original deadline rather than each getting
	// their own.
	dispatchCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(ctx, o.cfg.DispatchTimeout)
		defer cancel()
	}

	resp, err := o.dispatchLoop(dispatchCtx, working, decision, &trace)
	if err != nil {
		outcome := outcomeFor(err)
		finish(outcome, nil)
		return nil, err
	}

	// Security warnings flow into the response alongside any output-
	// sanitization warnings the dispatch produced.
	trace.Warnings = append(trace.Warnings, resp.Warnings...)
	if len(precheck.Warnings) > 0 {
		resp.Warnings = append(append([]string(nil), precheck.Warnings...), resp.Warnings...)
	}

	o.limiter.RecordTokens(tenantKey, int64(resp.TokenUsage.Input+resp.TokenUsage.Output))
	o.hooks.Cost(resp.ProviderUsed, resp.ModelUsed, resp.Cost.TotalCost)

	if warning := o.costLedger.Add(tenantKey, resp.Cost.TotalCost); warning != "" {
		resp.Warnings = append(resp.Warnings, warning)
		trace.Warnings = append(trace.Warnings, warning)
	}

	if o.cache != nil {
		o.cache.Store(ctx, req, resp)
	}

	finish("success", resp)
	return resp, nil
}

// dispatchLoop implements steps 6-7: admit -> dispatch -> record,
// falling back via router.GetFallback until alternatives or the
// shared deadline are exhausted.
func (o *Orchestrator) dispatchLoop(ctx context.Context, req *model.Request, decision model.RoutingDecision, trace *gwtelemetry.RequestTrace) (*model.Response, error) {
	var attempts []attempt

	for {
		if err := ctx.Err(); err != nil {
			return nil, gatewayerr.NewCancelled(err)
		}

		resp, attemptRec, dispatchErr := o.tryDispatch(ctx, req, decision)
		trace.ProviderAttempts = append(trace.ProviderAttempts, attemptRec.provider+"/"+attemptRec.model)
		if dispatchErr == nil {
			return resp, nil
		}
		attempts = append(attempts, attemptRec)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, gatewayerr.NewCancelled(ctxErr)
		}
		if !o.cfg.FallbackEnabled {
			break
		}

		next, ok := o.router.GetFallback(req, decision)
		if !ok {
			break
		}
		// Carry the failed provider's exclusion into the request used
		// for later hops, so a third fallback can't circle back to a
		// provider that already failed this request.
		req = req.Clone()
		req.Preferences.ExcludeProviders = append(req.Preferences.ExcludeProviders, decision.SelectedProvider)
		decision = next
	}

	return nil, gatewayerr.NewAllProvidersFailed(toAttemptSummaries(attempts))
}

// tryDispatch runs one admit -> call -> record cycle for decision's
// selected (provider, model).
func (o *Orchestrator) tryDispatch(ctx context.Context, req *model.Request, decision model.RoutingDecision) (*model.Response, attempt, error) {
	providerName := decision.SelectedProvider
	modelName := decision.SelectedModel

	if !o.breakers.Admit(providerName) {
		return nil, attempt{provider: providerName, model: modelName, err: "circuit breaker open"}, errBreakerRejected
	}

	adapter, ok := o.providers.Get(providerName)
	if !ok {
		o.breakers.OnResult(providerName, false)
		o.reliability.Record(providerName, modelName, false, 0)
		return nil, attempt{provider: providerName, model: modelName, err: "no adapter registered"}, provider.ErrUnregisteredProvider
	}

	attemptStart := time.Now()
	result, err := adapter.Complete(ctx, req, modelName)
	latencyMs := float64(time.Since(attemptStart).Milliseconds())

	if err != nil {
		o.breakers.OnResult(providerName, false)
		o.reliability.Record(providerName, modelName, false, latencyMs)
		o.hooks.Attempt(providerName, modelName, false, latencyMs)
		if ctx.Err() != nil {
			return nil, attempt{provider: providerName, model: modelName, err: "cancelled", latencyMs: latencyMs}, ctx.Err()
		}
		return nil, attempt{provider: providerName, model: modelName, err: err.Error(), latencyMs: latencyMs}, err
	}

	o.breakers.OnResult(providerName, true)
	o.reliability.Record(providerName, modelName, true, latencyMs)
	o.hooks.Attempt(providerName, modelName, true, latencyMs)

	sanitizedContent, outputWarnings := o.guard.Sanitize(result.Content)
	cost := o.costFor(providerName, modelName, result.TokenUsage)

	resp := &model.Response{
		Content:         sanitizedContent,
		TokenUsage:      result.TokenUsage,
		Cost:            cost,
		LatencyMs:       latencyMs,
		ProviderUsed:    providerName,
		ModelUsed:       modelName,
		RoutingDecision: decision,
		Warnings:        outputWarnings,
	}
	return resp, attempt{provider: providerName, model: modelName, latencyMs: latencyMs}, nil
}

func (o *Orchestrator) costFor(providerName, modelName string, usage model.TokenUsage) model.Cost {
	desc, ok := o.registry.Find(providerName, modelName)
	if !ok {
		return model.Cost{}
	}
	input := desc.CostPer1kInput * float64(usage.Input) / 1000
	output := desc.CostPer1kOutput * float64(usage.Output) / 1000
	return model.Cost{InputCost: input, OutputCost: output, TotalCost: input + output}
}

func toAttemptSummaries(attempts []attempt) []gatewayerr.AttemptSummary {
	out := make([]gatewayerr.AttemptSummary, len(attempts))
	for i, a := range attempts {
		out[i] = gatewayerr.AttemptSummary{Provider: a.provider, Model: a.model, Err: a.err, LatencyMs: a.latencyMs}
	}
	return out
}

func outcomeFor(err error) string {
	switch gatewayerr.KindOf(err) {
	case gatewayerr.KindCancelled:
		return "cancelled"
	case gatewayerr.KindAllProvidersFailed:
		return "all_providers_failed"
	default:
		return "all_providers_failed"
	}
}

func isInjectionBlock(reason string) bool {
	return strings.HasPrefix(reason, "prompt injection")
}

// errBreakerRejected is a sentinel used internally to distinguish a
// breaker rejection from a real dispatch error; it never escapes
// dispatchLoop.
var errBreakerRejected = errors.New("circuit breaker rejected admission")
