package core

import (
	"context"
	"time"
)

// CircuitBreaker protects a downstream dependency from cascading
// failures by temporarily blocking requests once a failure threshold
// is reached. Implementations should follow the classic three states:
// closed (normal), open (blocking), half-open (probing recovery).
type CircuitBreaker interface {
	// Execute runs fn with circuit breaker protection. If the circuit
	// is open it returns an error without calling fn.
	Execute(ctx context.Context, fn func() error) error

	// ExecuteWithTimeout is Execute with an additional deadline applied
	// to fn's execution.
	ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error

	// State returns the current state: "closed", "open", or "half_open".
	State() string

	// CanExecute reports whether a call would currently be admitted,
	// without actually executing anything.
	CanExecute() bool
}
