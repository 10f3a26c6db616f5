package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaygate/gateway/model"
)

func sampleRequest() *model.Request {
	return &model.Request{
		ID: "req-1",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: []model.ContentBlock{{Type: "text", Text: "hello there"}}},
		},
	}
}

func TestMockAdapterCompleteSucceeds(t *testing.T) {
	m := NewMockAdapter("hi back")
	result, err := m.Complete(context.Background(), sampleRequest(), "modelX")
	require.NoError(t, err)
	require.Equal(t, "hi back", result.Content)
	require.Equal(t, FinishStop, result.FinishReason)
	require.Greater(t, result.TokenUsage.Input, 0)
}

func TestMockAdapterLatencyIsObserved(t *testing.T) {
	m := NewMockAdapter("hi")
	m.Latency = 20 * time.Millisecond
	start := time.Now()
	_, err := m.Complete(context.Background(), sampleRequest(), "modelX")
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestMockAdapterFailNextNThenSucceeds(t *testing.T) {
	m := NewMockAdapter("ok")
	m.FailNextN = 2

	_, err1 := m.Complete(context.Background(), sampleRequest(), "modelX")
	require.Error(t, err1)
	require.True(t, IsRetryable(err1))

	_, err2 := m.Complete(context.Background(), sampleRequest(), "modelX")
	require.Error(t, err2)

	result3, err3 := m.Complete(context.Background(), sampleRequest(), "modelX")
	require.NoError(t, err3)
	require.Equal(t, "ok", result3.Content)
}

func TestMockAdapterAlwaysFail(t *testing.T) {
	m := NewMockAdapter("unreachable")
	m.AlwaysFail = true

	for i := 0; i < 3; i++ {
		_, err := m.Complete(context.Background(), sampleRequest(), "modelX")
		require.Error(t, err)
		require.True(t, IsRetryable(err))
	}
}

func TestMockAdapterContextCancellationIsNotRetryable(t *testing.T) {
	m := NewMockAdapter("slow")
	m.Latency = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := m.Complete(ctx, sampleRequest(), "modelX")
	require.Error(t, err)
	require.False(t, IsRetryable(err))
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMockAdapterStreamEmitsDeltaThenDone(t *testing.T) {
	m := NewMockAdapter("streamed content")
	ch, err := m.Stream(context.Background(), sampleRequest(), "modelX")
	require.NoError(t, err)

	first := <-ch
	require.Equal(t, "streamed content", first.Delta)
	require.False(t, first.Done)

	second := <-ch
	require.True(t, second.Done)
	require.Equal(t, FinishStop, second.FinishReason)

	_, open := <-ch
	require.False(t, open)
}

func TestMockAdapterStreamPropagatesFailure(t *testing.T) {
	m := NewMockAdapter("x")
	m.AlwaysFail = true
	_, err := m.Stream(context.Background(), sampleRequest(), "modelX")
	require.Error(t, err)
}

func TestIsRetryableFalseForPlainError(t *testing.T) {
	require.False(t, IsRetryable(errors.New("plain")))
}

func TestIsRetryableTrueThroughWrappedError(t *testing.T) {
	base := &Error{Err: errors.New("boom"), Retryable: true}
	wrapped := fmt.Errorf("dispatch failed: %w", base)
	require.True(t, IsRetryable(wrapped))
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	m := NewMockAdapter("x")
	reg.Register("providerA", m)

	a, ok := reg.Get("providerA")
	require.True(t, ok)
	require.Same(t, Adapter(m), a)

	_, ok = reg.Get("missing")
	require.False(t, ok)
}
