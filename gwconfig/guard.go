package gwconfig

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/relaygate/gateway/core"
	"github.com/relaygate/gateway/security"
)

// BuildGuard compiles the security.* configuration into a
// security.Guard, compiling every regex once here so the guard shares
// read-only compiled patterns across concurrent checks.
//
// A PII pattern entry either names a builtin detector (email, phone,
// credit_card, national_id) or supplies a custom one as "type:regex".
// Output-sanitization entries are plain regexes.
func (c *GatewayConfig) BuildGuard() (*security.Guard, error) {
	g := &security.Guard{}

	piiAction := c.Security.PIIDetection.Action
	if piiAction == "" {
		piiAction = string(security.PIIActionMask)
	}
	pii := security.PIIConfig{
		Enabled: c.Security.PIIDetection.Enabled,
		Action:  security.PIIAction(piiAction),
	}
	if len(c.Security.PIIDetection.Patterns) == 0 {
		pii.Patterns = security.DefaultPIIPatterns()
	} else {
		builtins := make(map[string]security.PIIPattern)
		for _, p := range security.DefaultPIIPatterns() {
			builtins[string(p.Type)] = p
		}
		for _, spec := range c.Security.PIIDetection.Patterns {
			if p, ok := builtins[spec]; ok {
				pii.Patterns = append(pii.Patterns, p)
				continue
			}
			typ, expr, ok := strings.Cut(spec, ":")
			if !ok {
				return nil, fmt.Errorf("gwconfig: PII pattern %q is neither a builtin name nor type:regex: %w", spec, core.ErrInvalidConfiguration)
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("gwconfig: compiling PII pattern %q: %v: %w", spec, err, core.ErrInvalidConfiguration)
			}
			pii.Patterns = append(pii.Patterns, security.PIIPattern{Type: security.PIIType(typ), Pattern: re})
		}
	}
	g.PII = pii

	injAction := c.Security.PromptInjection.Action
	if injAction == "" {
		injAction = string(security.InjectionActionBlock)
	}
	g.Injection = security.InjectionConfig{
		Enabled:  c.Security.PromptInjection.Enabled,
		Patterns: security.DefaultInjectionPatterns(),
		Action:   security.InjectionAction(injAction),
	}

	if c.Security.OutputSanitization.Enabled {
		for _, expr := range c.Security.OutputSanitization.BlockedPatterns {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("gwconfig: compiling blocked output pattern %q: %v: %w", expr, err, core.ErrInvalidConfiguration)
			}
			g.BlockedPatterns = append(g.BlockedPatterns, re)
		}
	}

	return g, nil
}
