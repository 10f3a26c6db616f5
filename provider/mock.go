package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/relaygate/gateway/model"
)

// MockAdapter is a deterministic, configurable in-memory Adapter for
// tests and the demo command. It never performs network I/O.
type MockAdapter struct {
	// ResponseContent is echoed back on every successful Complete call.
	ResponseContent string
	// Latency is slept before returning, to exercise latency-dependent
	// routing/reliability behavior in tests.
	Latency time.Duration
	// FailNextN causes the first N calls (counted from construction)
	// to fail with a retryable error before succeeding, to exercise
	// breaker/fallback behavior.
	FailNextN int
	// AlwaysFail, if true, fails every call unconditionally.
	AlwaysFail bool

	mu    sync.Mutex
	calls int
}

var _ Adapter = (*MockAdapter)(nil)

// NewMockAdapter returns a MockAdapter that always succeeds with
// content.
func NewMockAdapter(content string) *MockAdapter {
	return &MockAdapter{ResponseContent: content, Latency: latencySimulationFloor}
}

// Complete implements Adapter.
func (m *MockAdapter) Complete(ctx context.Context, req *model.Request, modelName string) (CompletionResult, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return CompletionResult{}, &Error{Err: ctx.Err(), Retryable: false}
	case <-time.After(m.Latency):
	}

	if m.AlwaysFail || call <= m.FailNextN {
		return CompletionResult{}, &Error{Err: fmt.Errorf("mock adapter: simulated failure (call %d)", call), Retryable: true}
	}

	return CompletionResult{
		Content:      m.ResponseContent,
		TokenUsage:   model.TokenUsage{Input: estimateTokens(req), Output: len(m.ResponseContent) / 4},
		FinishReason: FinishStop,
	}, nil
}

// Stream implements Adapter by emitting the full response as a single
// chunk followed by Done.
func (m *MockAdapter) Stream(ctx context.Context, req *model.Request, modelName string) (<-chan StreamChunk, error) {
	result, err := m.Complete(ctx, req, modelName)
	if err != nil {
		return nil, err
	}
	ch := make(chan StreamChunk, 2)
	ch <- StreamChunk{Delta: result.Content}
	ch <- StreamChunk{Done: true, FinishReason: result.FinishReason}
	close(ch)
	return ch, nil
}

func estimateTokens(req *model.Request) int {
	if req == nil {
		return 0
	}
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Text()) / 4
	}
	return total
}

// ErrUnregisteredProvider is returned when dispatch targets a provider
// with no registered adapter.
var ErrUnregisteredProvider = errors.New("provider: no adapter registered")
