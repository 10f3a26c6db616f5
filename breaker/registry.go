// Package breaker implements the Circuit Breaker Registry: a per-
// provider three-state breaker (closed/open/half_open) with a
// consecutive-failure counter and a fixed open duration.
//
// The admission algorithm here is intentionally simpler than
// resilience.CircuitBreaker (which tracks a sliding error-rate window
// with a SuccessThreshold-based half-open recovery) — see DESIGN.md's
// Open Question entry. What carries over is the execution shape: a
// Logger/metrics seam and ExecuteWithTimeout's panic-safe
// goroutine+channel+select pattern from
// resilience/circuit_breaker.go.
package breaker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/relaygate/gateway/core"
	"github.com/relaygate/gateway/model"
)

const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// Config parameterizes one provider's breaker.
type Config struct {
	FailureThreshold         int           // N consecutive failures to open
	OpenDuration             time.Duration // T
	HalfOpenSuccessThreshold int           // M successes to close from half-open
}

// DefaultConfig mirrors resilience.DefaultConfig's defaults, adapted
// to this package's simpler consecutive-failure model.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:         5,
		OpenDuration:             30 * time.Second,
		HalfOpenSuccessThreshold: 1,
	}
}

// breakerState is one provider's mutable state, guarded by its own
// mutex so providers never contend with each other.
type breakerState struct {
	mu sync.Mutex

	state           string
	consecutiveFail int
	openExpiry      time.Time
	probeInFlight   bool
	probesRemaining int
}

// StateGauge is the telemetry seam breaker state transitions report
// through: a sink that can hold one gauge value per provider (see
// gwtelemetry.Provider.RecordBreakerState). It is deliberately
// narrower than core.Telemetry because a state is a level, not an
// event — RecordMetric's counters can't express "set".
type StateGauge interface {
	RecordBreakerState(provider, state string)
}

// Registry holds one breakerState per provider, created lazily and
// safe under concurrent insertion (sync.Map, same idiom as
// reliability.Tracker's per-key maps).
type Registry struct {
	cfg    Config
	logger core.Logger
	gauge  StateGauge

	providers sync.Map // provider string -> *breakerState
}

// NewRegistry builds a Registry. logger/metrics may be nil; when
// metrics implements StateGauge, state transitions are reported to it.
func NewRegistry(cfg Config, logger core.Logger, metrics core.Telemetry) *Registry {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	r := &Registry{cfg: cfg, logger: logger}
	if g, ok := metrics.(StateGauge); ok {
		r.gauge = g
	}
	return r
}

func (r *Registry) stateFor(provider string) *breakerState {
	if v, ok := r.providers.Load(provider); ok {
		return v.(*breakerState)
	}
	s := &breakerState{state: StateClosed}
	actual, _ := r.providers.LoadOrStore(provider, s)
	return actual.(*breakerState)
}

// Admit reports whether a call to provider may proceed. Transitions
// from open to half_open happen here, lazily, on the first admission
// check after openExpiry.
func (r *Registry) Admit(provider string) bool {
	return r.admit(provider) == nil
}

// admit is Admit with the rejection cause, so the core.CircuitBreaker
// view can distinguish an open breaker from a busy half-open probe
// slot.
func (r *Registry) admit(provider string) error {
	s := r.stateFor(provider)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Now().Before(s.openExpiry) {
			return core.ErrCircuitBreakerOpen
		}
		s.state = StateHalfOpen
		s.probeInFlight = true
		s.probesRemaining = r.cfg.HalfOpenSuccessThreshold
		r.reportTransition(provider, StateOpen, StateHalfOpen)
		return nil
	case StateHalfOpen:
		if s.probeInFlight {
			return core.ErrNoProbeSlotAvailable
		}
		s.probeInFlight = true
		return nil
	}
	return core.ErrCircuitBreakerOpen
}

// OnResult records the outcome of a call admitted via Admit and
// advances provider's breaker state accordingly.
func (r *Registry) OnResult(provider string, success bool) {
	s := r.stateFor(provider)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		if success {
			s.consecutiveFail = 0
			return
		}
		s.consecutiveFail++
		if s.consecutiveFail >= r.cfg.FailureThreshold {
			s.state = StateOpen
			s.openExpiry = time.Now().Add(r.cfg.OpenDuration)
			r.reportTransition(provider, StateClosed, StateOpen)
		}
	case StateHalfOpen:
		s.probeInFlight = false
		if success {
			s.probesRemaining--
			if s.probesRemaining <= 0 {
				s.state = StateClosed
				s.consecutiveFail = 0
				r.reportTransition(provider, StateHalfOpen, StateClosed)
			}
		} else {
			s.state = StateOpen
			s.openExpiry = time.Now().Add(r.cfg.OpenDuration)
			r.reportTransition(provider, StateHalfOpen, StateOpen)
		}
	case StateOpen:
		// A result arriving for an open breaker is a stray completion
		// from a call admitted before the breaker opened; ignore it.
	}
}

// State returns provider's current state without mutating anything.
func (r *Registry) State(provider string) string {
	s := r.stateFor(provider)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns provider's full breaker state for inspection
// (telemetry gauges, dashboards) without mutating anything.
func (r *Registry) Snapshot(provider string) model.BreakerState {
	s := r.stateFor(provider)
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.BreakerState{
		State:           s.state,
		ConsecutiveFail: s.consecutiveFail,
		OpenExpiryMs:    s.openExpiry.UnixMilli(),
		ProbeInFlight:   s.probeInFlight,
	}
}

func (r *Registry) reportTransition(provider, from, to string) {
	r.logger.Info("circuit breaker state transition", map[string]interface{}{
		"provider": provider,
		"from":     from,
		"to":       to,
	})
	if r.gauge != nil {
		r.gauge.RecordBreakerState(provider, to)
	}
}

// ExecuteWithTimeout runs fn with panic-safe protection and an
// optional timeout, mirroring
// resilience.CircuitBreaker.ExecuteWithTimeout: fn runs in a goroutine
// so a panic or an expired ctx can't leave the caller blocked forever.
// It does NOT call Admit/OnResult itself — the caller sequences
// admission and outcome recording around it, as
// providerBreaker.ExecuteWithTimeout does.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, logger core.Logger, fn func() error) error {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				stack := debug.Stack()
				var panicErr error
				switch v := rec.(type) {
				case error:
					panicErr = fmt.Errorf("panic during dispatch: %w\n%s", v, stack)
				default:
					panicErr = fmt.Errorf("panic during dispatch: %v\n%s", v, stack)
				}
				logger.Error("dispatch goroutine recovered from panic", map[string]interface{}{"panic": fmt.Sprintf("%v", rec)})
				done <- panicErr
				return
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
