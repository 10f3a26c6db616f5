// Package security implements the Security Guard: PII detection
// (mask/block/warn) over each text block of a request's messages,
// prompt-injection scoring over its concatenated message text, plus
// output sanitization.
//
// Grounded directly on the agentflow guardrails package
// (agent/guardrails/pii_detector.go and injection_detector.go), whose
// regexp.MustCompile-per-type pattern table and mask/reject/warn
// action switch this package adapts from a single-string Validator
// interface to operating over model.Request messages while preserving
// message ordering, role, and block structure.
package security

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/relaygate/gateway/model"
)

// PIIType labels one kind of detected personal data.
type PIIType string

const (
	PIITypeEmail      PIIType = "email"
	PIITypeNationalID PIIType = "national_id"
	PIITypeCreditCard PIIType = "credit_card"
	PIITypePhone      PIIType = "phone"
)

// PIIAction is the configured response to a PII match.
type PIIAction string

const (
	PIIActionBlock PIIAction = "block"
	PIIActionMask  PIIAction = "mask"
	PIIActionWarn  PIIAction = "warn"
)

// PIIPattern is one labeled detection rule.
type PIIPattern struct {
	Type    PIIType
	Pattern *regexp.Regexp
}

// DefaultPIIPatterns covers email, national-ID, credit-card, and
// phone.
func DefaultPIIPatterns() []PIIPattern {
	return []PIIPattern{
		{PIITypeEmail, regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
		{PIITypeNationalID, regexp.MustCompile(`\b[1-9]\d{5}(?:19|20)\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}[\dXx]\b`)},
		{PIITypeCreditCard, regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)},
		{PIITypePhone, regexp.MustCompile(`\b\+?\d{1,3}[ -]?\(?\d{3}\)?[ -]?\d{3}[ -]?\d{4}\b`)},
	}
}

// PIIConfig configures PII detection.
type PIIConfig struct {
	Enabled  bool
	Patterns []PIIPattern
	Action   PIIAction
}

// DefaultPIIConfig returns mask-by-default detection over the builtin
// patterns.
func DefaultPIIConfig() PIIConfig {
	return PIIConfig{Enabled: true, Patterns: DefaultPIIPatterns(), Action: PIIActionMask}
}

// PIIResult is the outcome of scanning one request for PII.
type PIIResult struct {
	Blocked          bool
	BlockReason      string
	SanitizedRequest *model.Request // non-nil only when Action == mask and matches were found
	Warnings         []string
	DetectedTypes    []PIIType
}

var redactedRE = regexp.MustCompile(`^\[[A-Z_]+_REDACTED\]$`)

// ScanPII applies cfg to each text block of req's messages separately
// and returns the PIIResult; a match that would only form across two
// blocks or two messages is not detected. req is never mutated; a
// masked clone is returned instead — scanning is purely functional
// given the config.
func ScanPII(cfg PIIConfig, req *model.Request) PIIResult {
	if !cfg.Enabled {
		return PIIResult{}
	}

	detected := map[PIIType]bool{}
	for _, msg := range req.Messages {
		for _, block := range msg.Content {
			if block.Type != "text" {
				continue
			}
			for _, p := range cfg.Patterns {
				if p.Pattern.MatchString(block.Text) {
					detected[p.Type] = true
				}
			}
		}
	}
	if len(detected) == 0 {
		return PIIResult{}
	}

	types := make([]PIIType, 0, len(detected))
	for t := range detected {
		types = append(types, t)
	}
	// Deterministic warning/reason text regardless of map iteration.
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	switch cfg.Action {
	case PIIActionBlock:
		return PIIResult{Blocked: true, BlockReason: fmt.Sprintf("PII detected: %s", joinTypes(types)), DetectedTypes: types}
	case PIIActionMask:
		clone := req.Clone()
		for i, msg := range clone.Messages {
			for j, block := range msg.Content {
				if block.Type != "text" {
					continue
				}
				clone.Messages[i].Content[j].Text = maskText(cfg.Patterns, block.Text)
			}
		}
		return PIIResult{
			SanitizedRequest: clone,
			Warnings:         []string{fmt.Sprintf("PII masked: %s", joinTypes(types))},
			DetectedTypes:    types,
		}
	default: // warn
		return PIIResult{
			Warnings:      []string{fmt.Sprintf("PII detected: %s", joinTypes(types))},
			DetectedTypes: types,
		}
	}
}

func maskText(patterns []PIIPattern, text string) string {
	masked := text
	for _, p := range patterns {
		// Idempotence: an already-redacted token like
		// "[EMAIL_REDACTED]" must not itself match a PII pattern and
		// get re-substituted. The builtin patterns don't match the
		// bracketed redaction markers, but a caller-supplied custom
		// pattern might; skip spans that are already a redaction token.
		masked = p.Pattern.ReplaceAllStringFunc(masked, func(match string) string {
			if redactedRE.MatchString(match) {
				return match
			}
			return fmt.Sprintf("[%s_REDACTED]", strings.ToUpper(string(p.Type)))
		})
	}
	return masked
}

func joinTypes(types []PIIType) string {
	strs := make([]string, len(types))
	for i, t := range types {
		strs[i] = string(t)
	}
	return strings.Join(strs, ", ")
}
