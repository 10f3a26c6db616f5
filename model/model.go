// Package model defines the value types that cross every gateway
// component boundary: requests, the provider/model inventory, and
// routing/response records. Mirrors core/interfaces.go's convention of
// a small, dependency-free types package that the rest of the tree
// depends on without risking import cycles.
package model

// Role identifies who authored a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentBlock is one piece of a Message's content. Text blocks are
// the only ones Security Guard masking ever rewrites; non-text blocks
// (e.g. images) pass through untouched.
type ContentBlock struct {
	Type string // "text" or a non-text kind such as "image"
	Text string
}

// Message is one turn in the conversation.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// Text concatenates every text block in the message, in order.
func (m Message) Text() string {
	var out string
	for _, b := range m.Content {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

// Clone returns a deep copy so Security Guard masking can rewrite text
// blocks without mutating the caller's request.
func (m Message) Clone() Message {
	blocks := make([]ContentBlock, len(m.Content))
	copy(blocks, m.Content)
	return Message{Role: m.Role, Content: blocks}
}

// Tool is a tool/function definition the model may call.
type Tool struct {
	Name        string
	Description string
}

// BudgetHints carries optional per-request cost/latency ceilings used
// by eligibility filtering.
type BudgetHints struct {
	MaxLatencyMs float64
	MaxCostUSD   float64
}

// RoutingPreferences lets the caller steer routing without bypassing
// it entirely.
type RoutingPreferences struct {
	Strategy             Strategy
	PreferredProviders   []string
	ExcludeProviders     []string
	RequiredCapabilities []Capability
	Budget               BudgetHints
}

// Metadata carries tenant/project attribution and free-form tags.
type Metadata struct {
	TenantKey string
	Tags      []string
}

// Request is the gateway's unified chat-completion input.
type Request struct {
	ID          string
	Messages    []Message
	Tools       []Tool
	Preferences RoutingPreferences
	Meta        Metadata

	// complexity is cached the first time ComplexityScore computes it,
	// so it's stable for the remainder of the request's lifetime.
	complexity      float64
	complexityKnown bool
}

// CachedComplexity returns a previously computed score and whether one
// exists.
func (r *Request) CachedComplexity() (float64, bool) {
	return r.complexity, r.complexityKnown
}

// SetCachedComplexity stores score for reuse within this request.
func (r *Request) SetCachedComplexity(score float64) {
	r.complexity = score
	r.complexityKnown = true
}

// Clone deep-copies everything Security Guard masking might rewrite.
func (r *Request) Clone() *Request {
	messages := make([]Message, len(r.Messages))
	for i, m := range r.Messages {
		messages[i] = m.Clone()
	}
	tags := append([]string(nil), r.Meta.Tags...)
	clone := &Request{
		ID:          r.ID,
		Messages:    messages,
		Tools:       append([]Tool(nil), r.Tools...),
		Preferences: r.Preferences,
		Meta:        Metadata{TenantKey: r.Meta.TenantKey, Tags: tags},
	}
	clone.complexity = r.complexity
	clone.complexityKnown = r.complexityKnown
	return clone
}

// Strategy names a routing weighting profile.
type Strategy string

const (
	StrategyCostOptimized    Strategy = "cost_optimized"
	StrategyLatencyOptimized Strategy = "latency_optimized"
	StrategyQualityOptimized Strategy = "quality_optimized"
	StrategyBalanced         Strategy = "balanced"
)

// Capability is a declared model capability used for eligibility and
// scoring bonuses.
type Capability string

const (
	CapabilityReasoning   Capability = "reasoning"
	CapabilityCoding      Capability = "coding"
	CapabilityLongContext Capability = "long_context"
	CapabilityVision      Capability = "vision"
	CapabilityTools       Capability = "tools"
)

// Tier is a model's declared quality class.
type Tier string

const (
	TierPremium  Tier = "premium"
	TierStandard Tier = "standard"
	TierEconomy  Tier = "economy"
)

// ModelDescriptor is immutable after load.
type ModelDescriptor struct {
	Provider            string
	Model               string
	Tier                Tier
	Capabilities        []Capability
	CostPer1kInput      float64
	CostPer1kOutput     float64
	LatencyP50Ms        float64
	LatencyP95Ms        float64
	ContextWindowTokens int
	Enabled             bool
}

// HasCapability reports whether the model declares cap.
func (m ModelDescriptor) HasCapability(cap Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// ProviderDescriptor groups the models offered by one upstream
// provider under a single enable flag and routing weight.
type ProviderDescriptor struct {
	Provider string
	Enabled  bool
	Weight   float64
	Models   []ModelDescriptor
}

// ReliabilityRecord is a per-(provider,model) online stats snapshot.
// See reliability.Tracker for the mutation rules that maintain the
// successRate = max(0.1, 1 - recentErrors/10) invariant.
type ReliabilityRecord struct {
	SuccessRate   float64
	AvgLatencyMs  float64
	TotalRequests uint64
	RecentErrors  int
}

// BreakerState is one provider's three-state circuit breaker
// snapshot, as read by callers that only need to inspect state (e.g.
// telemetry gauges) without going through breaker.Registry.Admit.
type BreakerState struct {
	State           string // "closed", "open", "half_open"
	ConsecutiveFail int
	OpenExpiryMs    int64
	ProbeInFlight   bool
}

// RateLimitEntry is one tenant/user's current fixed-window counters.
type RateLimitEntry struct {
	RequestsInWindow int
	TokensInWindow   int64
	WindowStartMs    int64
}

// ProviderModel names one (provider, model) pair, used in ranked
// alternatives and attempt histories.
type ProviderModel struct {
	Provider string
	Model    string
}

// RoutingDecision is immutable once produced; a new one is produced
// for each fallback attempt.
type RoutingDecision struct {
	Strategy           Strategy
	SelectedProvider   string
	SelectedModel      string
	ComplexityScore    float64
	Reason             string
	RankedAlternatives []ProviderModel // up to 3
}

// TokenUsage reports tokens consumed by one completion.
type TokenUsage struct {
	Input  int
	Output int
}

// Cost reports the dollar cost of one completion.
type Cost struct {
	InputCost  float64
	OutputCost float64
	TotalCost  float64
}

// Response is the gateway's unified chat-completion output.
type Response struct {
	Content         string
	TokenUsage      TokenUsage
	Cost            Cost
	LatencyMs       float64
	Cached          bool
	ProviderUsed    string
	ModelUsed       string
	RoutingDecision RoutingDecision
	Warnings        []string
}

// AuditRecord is written once per request by the gateway orchestrator
// to its AuditSink, independent of the tracing span, so audit history
// survives even when the tracing backend is unreachable.
type AuditRecord struct {
	RequestID    string
	TimestampMs  int64
	TenantKey    string
	Outcome      string
	ProviderUsed string
	ModelUsed    string
	Warnings     []string
	Blocked      bool
	BlockReason  string
}

// CostLedgerEntry is one tenant's running cost total for a calendar
// day, compared against cost.budgets.daily/.monthly for advisory
// alerts only — it never gates admission.
type CostLedgerEntry struct {
	TenantKey    string
	Date         string // YYYY-MM-DD
	TotalCostUSD float64
}
