package breaker

import (
	"context"
	"time"

	"github.com/relaygate/gateway/core"
)

// providerBreaker is a core.CircuitBreaker view scoped to one provider.
// The orchestrator sequences Admit/OnResult itself (it needs the
// admission decision separately from execution), but callers wrapping a
// single downstream call get the teacher-style Execute shape here.
type providerBreaker struct {
	registry *Registry
	provider string
}

var _ core.CircuitBreaker = (*providerBreaker)(nil)

// For returns a core.CircuitBreaker admitting and recording against
// provider's breaker in this registry.
func (r *Registry) For(provider string) core.CircuitBreaker {
	return &providerBreaker{registry: r, provider: provider}
}

// Execute implements core.CircuitBreaker.
func (b *providerBreaker) Execute(ctx context.Context, fn func() error) error {
	return b.ExecuteWithTimeout(ctx, 0, fn)
}

// ExecuteWithTimeout implements core.CircuitBreaker: admission check,
// panic-safe execution, then outcome recording. A rejected admission
// returns without calling fn and without recording a result.
func (b *providerBreaker) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error {
	if err := b.registry.admit(b.provider); err != nil {
		return core.NewFrameworkError("breaker.Execute", "breaker", err)
	}
	err := ExecuteWithTimeout(ctx, timeout, b.registry.logger, fn)
	b.registry.OnResult(b.provider, err == nil)
	return err
}

// State implements core.CircuitBreaker.
func (b *providerBreaker) State() string {
	return b.registry.State(b.provider)
}

// CanExecute implements core.CircuitBreaker: a non-consuming admission
// check — unlike Admit it never claims the half-open probe slot.
func (b *providerBreaker) CanExecute() bool {
	s := b.registry.stateFor(b.provider)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return true
	case StateOpen:
		return !time.Now().Before(s.openExpiry)
	case StateHalfOpen:
		return !s.probeInFlight
	}
	return false
}
