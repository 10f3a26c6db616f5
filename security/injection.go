package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/relaygate/gateway/model"
)

// InjectionAction is the configured response to a high-confidence
// injection detection.
type InjectionAction string

const (
	InjectionActionBlock InjectionAction = "block"
	InjectionActionWarn  InjectionAction = "warn"
)

// InjectionPattern is one labeled detection rule with a confidence in
// [0,1], grounded on the Severity field of agentflow's
// guardrails.InjectionPattern (Critical/High/Medium mapped here to a
// numeric confidence score instead of a category).
type InjectionPattern struct {
	Description string
	Pattern     *regexp.Regexp
	Confidence  float64
}

// highConfidenceThreshold marks confidence >= 0.7 as high-confidence.
const highConfidenceThreshold = 0.7

// DefaultInjectionPatterns spans five families: instruction override,
// role manipulation, prompt extraction, jailbreak markers, and
// delimiter injection.
func DefaultInjectionPatterns() []InjectionPattern {
	return []InjectionPattern{
		{
			Description: "instruction override",
			Pattern:     regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+|any\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?)`),
			Confidence:  0.95,
		},
		{
			Description: "role manipulation",
			Pattern:     regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)?|pretend\s+(to\s+be|you\s+are)\s+(a|an|the)?`),
			Confidence:  0.8,
		},
		{
			Description: "prompt extraction",
			Pattern:     regexp.MustCompile(`(?i)(show|reveal|print|repeat)\s+(me\s+)?your\s+(system\s+)?prompt`),
			Confidence:  0.85,
		},
		{
			Description: "jailbreak marker",
			Pattern:     regexp.MustCompile(`(?i)\bDAN\b.{0,40}do\s+anything\s+now|developer\s+mode\s+enabled`),
			Confidence:  0.9,
		},
		{
			Description: "delimiter injection",
			Pattern:     regexp.MustCompile(`(?im)^\s*(system|assistant|user)\s*:|<\|\s*(system|assistant|user)\s*\|>`),
			Confidence:  0.75,
		},
	}
}

// InjectionConfig configures prompt-injection detection.
type InjectionConfig struct {
	Enabled  bool
	Patterns []InjectionPattern
	Action   InjectionAction
}

// DefaultInjectionConfig returns block-on-high-confidence detection.
func DefaultInjectionConfig() InjectionConfig {
	return InjectionConfig{Enabled: true, Patterns: DefaultInjectionPatterns(), Action: InjectionActionBlock}
}

// InjectionMatch is one pattern hit.
type InjectionMatch struct {
	Description string
	Confidence  float64
}

// InjectionResult is the outcome of scanning one request for
// prompt-injection attempts.
type InjectionResult struct {
	Blocked     bool
	BlockReason string
	Warnings    []string
	Matches     []InjectionMatch
}

// ScanInjection applies cfg to req's concatenated message text. req is
// never mutated.
func ScanInjection(cfg InjectionConfig, req *model.Request) InjectionResult {
	if !cfg.Enabled {
		return InjectionResult{}
	}

	text := concatMessages(req)
	var matches []InjectionMatch
	highConfidence := false
	for _, p := range cfg.Patterns {
		if p.Pattern.MatchString(text) {
			matches = append(matches, InjectionMatch{Description: p.Description, Confidence: p.Confidence})
			if p.Confidence >= highConfidenceThreshold {
				highConfidence = true
			}
		}
	}
	if len(matches) == 0 {
		return InjectionResult{}
	}

	if cfg.Action == InjectionActionBlock && highConfidence {
		return InjectionResult{
			Blocked:     true,
			BlockReason: fmt.Sprintf("prompt injection detected: %s", joinDescriptions(matches)),
			Matches:     matches,
		}
	}

	return InjectionResult{
		Warnings: []string{fmt.Sprintf("prompt injection signals: %s", joinDescriptions(matches))},
		Matches:  matches,
	}
}

func concatMessages(req *model.Request) string {
	var sb strings.Builder
	for _, msg := range req.Messages {
		sb.WriteString(msg.Text())
		sb.WriteString("\n")
	}
	return sb.String()
}

func joinDescriptions(matches []InjectionMatch) string {
	strs := make([]string, len(matches))
	for i, m := range matches {
		strs[i] = m.Description
	}
	return strings.Join(strs, ", ")
}

// SanitizeOutput replaces matches of blockedPatterns in content with
// "[REDACTED]", emitting one warning per pattern that matched.
func SanitizeOutput(blockedPatterns []*regexp.Regexp, content string) (sanitized string, warnings []string) {
	sanitized = content
	for _, p := range blockedPatterns {
		if p.MatchString(sanitized) {
			warnings = append(warnings, fmt.Sprintf("output redacted for pattern: %s", p.String()))
			sanitized = p.ReplaceAllString(sanitized, "[REDACTED]")
		}
	}
	return sanitized, warnings
}

// Guard composes PII detection, injection detection, and output
// sanitization behind a single construction-time config, the way the
// orchestrator calls it: one PreCheck per request, one Sanitize per
// response.
type Guard struct {
	PII             PIIConfig
	Injection       InjectionConfig
	BlockedPatterns []*regexp.Regexp
}

// NewDefaultGuard returns a Guard using every default config.
func NewDefaultGuard() *Guard {
	return &Guard{PII: DefaultPIIConfig(), Injection: DefaultInjectionConfig()}
}

// PreCheckResult is what the orchestrator needs from the security
// pre-check step.
type PreCheckResult struct {
	Blocked          bool
	BlockReason      string
	SanitizedRequest *model.Request
	Warnings         []string
}

// PreCheck runs PII detection then injection detection, in that
// order. Injection is evaluated
// against the (possibly PII-masked) request so a caller can't dodge
// injection detection by wrapping it in PII the guard would redact.
func (g *Guard) PreCheck(req *model.Request) PreCheckResult {
	pii := ScanPII(g.PII, req)
	if pii.Blocked {
		return PreCheckResult{Blocked: true, BlockReason: pii.BlockReason}
	}

	working := req
	var warnings []string
	if pii.SanitizedRequest != nil {
		working = pii.SanitizedRequest
	}
	warnings = append(warnings, pii.Warnings...)

	injection := ScanInjection(g.Injection, working)
	if injection.Blocked {
		return PreCheckResult{Blocked: true, BlockReason: injection.BlockReason}
	}
	warnings = append(warnings, injection.Warnings...)

	return PreCheckResult{SanitizedRequest: pii.SanitizedRequest, Warnings: warnings}
}

// Sanitize runs output sanitization against the response content.
func (g *Guard) Sanitize(content string) (string, []string) {
	return SanitizeOutput(g.BlockedPatterns, content)
}
