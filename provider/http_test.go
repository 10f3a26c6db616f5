package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPAdapterCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(httpResponseEnvelope{Content: "echoed", InputTokens: 3, OutputTokens: 2})
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 2*time.Second, nil)
	result, err := a.Complete(context.Background(), sampleRequest(), "modelX")
	require.NoError(t, err)
	require.Equal(t, "echoed", result.Content)
	require.Equal(t, 3, result.TokenUsage.Input)
}

func TestHTTPAdapterClientErrorIsNotRetried(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 2*time.Second, nil)
	a.RetryDelay = time.Millisecond
	_, err := a.Complete(context.Background(), sampleRequest(), "modelX")
	require.Error(t, err)
	require.False(t, IsRetryable(err))
	require.EqualValues(t, 1, atomic.LoadInt32(&attempts))
}

func TestHTTPAdapterServerErrorRetriesThenFails(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 2*time.Second, nil)
	a.MaxRetries = 2
	a.RetryDelay = time.Millisecond
	_, err := a.Complete(context.Background(), sampleRequest(), "modelX")
	require.Error(t, err)
	require.True(t, IsRetryable(err))
	require.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestHTTPAdapterServerRecoversBeforeExhaustingRetries(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(httpResponseEnvelope{Content: "recovered"})
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 2*time.Second, nil)
	a.RetryDelay = time.Millisecond
	result, err := a.Complete(context.Background(), sampleRequest(), "modelX")
	require.NoError(t, err)
	require.Equal(t, "recovered", result.Content)
}

func TestHTTPAdapterStreamWrapsComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(httpResponseEnvelope{Content: "piece"})
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 2*time.Second, nil)
	ch, err := a.Stream(context.Background(), sampleRequest(), "modelX")
	require.NoError(t, err)
	first := <-ch
	require.Equal(t, "piece", first.Delta)
	second := <-ch
	require.True(t, second.Done)
}

func TestHTTPAdapterRateLimitThrottlesBurst(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		_ = json.NewEncoder(w).Encode(httpResponseEnvelope{Content: "ok"})
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 2*time.Second, nil).WithRateLimit(5, 1)
	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := a.Complete(context.Background(), sampleRequest(), "modelX")
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	require.EqualValues(t, 2, atomic.LoadInt32(&attempts))
}
