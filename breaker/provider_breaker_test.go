package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaygate/gateway/core"
)

func TestProviderBreakerExecuteRecordsOutcome(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 2, OpenDuration: time.Hour, HalfOpenSuccessThreshold: 1}, nil, nil)
	cb := r.For("openai")

	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	require.Equal(t, StateClosed, cb.State())

	boom := errors.New("boom")
	require.ErrorIs(t, cb.Execute(context.Background(), func() error { return boom }), boom)
	require.ErrorIs(t, cb.Execute(context.Background(), func() error { return boom }), boom)
	require.Equal(t, StateOpen, cb.State())
}

func TestProviderBreakerExecuteRejectsWhenOpen(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, OpenDuration: time.Hour, HalfOpenSuccessThreshold: 1}, nil, nil)
	cb := r.For("openai")

	_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(context.Background(), func() error { called = true; return nil })
	require.ErrorIs(t, err, core.ErrCircuitBreakerOpen)
	require.False(t, called)
}

func TestProviderBreakerCanExecuteDoesNotConsumeProbeSlot(t *testing.T) {
	cfg := Config{FailureThreshold: 1, OpenDuration: 10 * time.Millisecond, HalfOpenSuccessThreshold: 1}
	r := NewRegistry(cfg, nil, nil)
	cb := r.For("openai")

	_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	require.False(t, cb.CanExecute())

	time.Sleep(cfg.OpenDuration + 5*time.Millisecond)
	require.True(t, cb.CanExecute())
	require.True(t, cb.CanExecute()) // still available: no probe claimed

	require.True(t, r.Admit("openai")) // probe claimed here
	require.False(t, cb.CanExecute())
}

func TestProviderBreakerHalfOpenBusyProbeError(t *testing.T) {
	cfg := Config{FailureThreshold: 1, OpenDuration: 10 * time.Millisecond, HalfOpenSuccessThreshold: 1}
	r := NewRegistry(cfg, nil, nil)
	cb := r.For("openai")

	_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	time.Sleep(cfg.OpenDuration + 5*time.Millisecond)

	require.True(t, r.Admit("openai")) // probe in flight
	err := cb.Execute(context.Background(), func() error { return nil })
	require.ErrorIs(t, err, core.ErrNoProbeSlotAvailable)
}
