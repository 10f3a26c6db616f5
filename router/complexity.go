// Package router implements the intelligent model router: complexity
// scoring, eligibility-filtered per-strategy scoring, and fallback
// decision generation.
package router

import (
	"strings"

	"github.com/relaygate/gateway/model"
)

// complexityKeywords are the case-insensitive bonus terms scored
// against the last user message, each worth +0.05.
var complexityKeywords = []string{
	"analyze", "compare", "evaluate", "synthesize", "create", "design",
	"implement", "debug", "refactor", "optimize",
	"explain in detail", "step by step", "comprehensive",
}

// ComplexityScore computes a [0,1] complexity score and caches it on
// req for the remainder of the request's lifetime.
func ComplexityScore(req *model.Request) float64 {
	if cached, ok := req.CachedComplexity(); ok {
		return cached
	}

	score := 0.0

	messageCount := float64(len(req.Messages))
	score += min(messageCount/20, 0.2)

	totalChars := 0
	var systemLen int
	for _, msg := range req.Messages {
		n := len(msg.Text())
		totalChars += n
		if msg.Role == model.RoleSystem {
			systemLen += n
		}
	}
	score += min(float64(totalChars)/10000, 0.3)

	if len(req.Tools) > 0 {
		score += 0.2
	}

	score += min(float64(systemLen)/5000, 0.15)

	if lastUser := lastUserMessage(req); lastUser != "" {
		lower := strings.ToLower(lastUser)
		for _, kw := range complexityKeywords {
			count := strings.Count(lower, kw)
			score += 0.05 * float64(count)
		}
	}

	if score > 1.0 {
		score = 1.0
	}

	req.SetCachedComplexity(score)
	return score
}

func lastUserMessage(req *model.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == model.RoleUser {
			return req.Messages[i].Text()
		}
	}
	return ""
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
