// Package gatewayerr defines the typed error taxonomy the gateway
// surfaces to callers: RateLimited, SecurityBlocked, NoEligibleModel,
// AllProvidersFailed, Cancelled. Each embeds GatewayError, whose Err
// holds an underlying cause (a core sentinel or the cancellation
// cause), so callers can still use errors.Is/errors.As against that
// cause while getting gateway-specific fields (retryAfterMs, attempt
// summaries, ...).
package gatewayerr

import (
	"errors"
	"fmt"

	"github.com/relaygate/gateway/core"
	"github.com/relaygate/gateway/model"
)

// Kind identifies which member of the taxonomy an error is.
type Kind string

const (
	KindRateLimited        Kind = "rate_limited"
	KindSecurityBlocked    Kind = "security_blocked"
	KindNoEligibleModel    Kind = "no_eligible_model"
	KindAllProvidersFailed Kind = "all_providers_failed"
	KindCancelled          Kind = "cancelled"
)

// GatewayError is the common shape of every error in the taxonomy.
type GatewayError struct {
	Kind Kind
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// RateLimited is returned when the caller exceeded its per-key window.
// Retryable by the caller after RetryAfterMs.
type RateLimited struct {
	GatewayError
	RetryAfterMs int64
}

// NewRateLimited builds a RateLimited error.
func NewRateLimited(retryAfterMs int64) *RateLimited {
	return &RateLimited{
		GatewayError: GatewayError{Kind: KindRateLimited, Err: core.ErrRequestFailed},
		RetryAfterMs: retryAfterMs,
	}
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("rate limited: retry after %dms", e.RetryAfterMs)
}

// SecurityBlocked is returned for a PII block or high-confidence
// prompt-injection block. Not retryable.
type SecurityBlocked struct {
	GatewayError
	Reason string
}

// NewSecurityBlocked builds a SecurityBlocked error.
func NewSecurityBlocked(reason string) *SecurityBlocked {
	return &SecurityBlocked{
		GatewayError: GatewayError{Kind: KindSecurityBlocked, Err: errors.New(reason)},
		Reason:       reason,
	}
}

func (e *SecurityBlocked) Error() string {
	return fmt.Sprintf("security blocked: %s", e.Reason)
}

// NoEligibleModel is returned when no model satisfied the eligibility
// filter. Retryable after the caller widens constraints.
type NoEligibleModel struct {
	GatewayError
}

// NewNoEligibleModel builds a NoEligibleModel error.
func NewNoEligibleModel() *NoEligibleModel {
	return &NoEligibleModel{GatewayError{Kind: KindNoEligibleModel, Err: core.ErrInvalidConfiguration}}
}

func (e *NoEligibleModel) Error() string {
	return "no eligible model satisfied the request's constraints"
}

// AttemptSummary records one dispatch attempt for AllProvidersFailed.
type AttemptSummary struct {
	Provider  string
	Model     string
	Err       string
	LatencyMs float64
}

// AllProvidersFailed is returned when every attempted provider failed
// or was breaker-rejected, carrying the per-attempt summaries.
type AllProvidersFailed struct {
	GatewayError
	Attempts []AttemptSummary
}

// NewAllProvidersFailed builds an AllProvidersFailed error.
func NewAllProvidersFailed(attempts []AttemptSummary) *AllProvidersFailed {
	return &AllProvidersFailed{
		GatewayError: GatewayError{Kind: KindAllProvidersFailed, Err: core.ErrRequestFailed},
		Attempts:     attempts,
	}
}

func (e *AllProvidersFailed) Error() string {
	return fmt.Sprintf("all %d provider attempt(s) failed", len(e.Attempts))
}

// AttemptedProviders returns the list of (provider,model) pairs
// attempted, used by tests checking fallback coverage: exactly n
// distinct providers, no duplicates.
func (e *AllProvidersFailed) AttemptedProviders() []model.ProviderModel {
	out := make([]model.ProviderModel, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = model.ProviderModel{Provider: a.Provider, Model: a.Model}
	}
	return out
}

// Cancelled is returned when the caller-supplied deadline expired
// mid-dispatch.
type Cancelled struct {
	GatewayError
}

// NewCancelled builds a Cancelled error wrapping cause (typically
// context.DeadlineExceeded or context.Canceled).
func NewCancelled(cause error) *Cancelled {
	return &Cancelled{GatewayError{Kind: KindCancelled, Err: cause}}
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("request cancelled: %v", e.Err)
}

// KindOf extracts the taxonomy Kind from any error produced by this
// package, or "" if err is not one of ours.
func KindOf(err error) Kind {
	switch {
	case errors.As(err, new(*RateLimited)):
		return KindRateLimited
	case errors.As(err, new(*SecurityBlocked)):
		return KindSecurityBlocked
	case errors.As(err, new(*NoEligibleModel)):
		return KindNoEligibleModel
	case errors.As(err, new(*AllProvidersFailed)):
		return KindAllProvidersFailed
	case errors.As(err, new(*Cancelled)):
		return KindCancelled
	}
	return ""
}
