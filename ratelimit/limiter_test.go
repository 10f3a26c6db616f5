package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckAllowsUnderLimit(t *testing.T) {
	l := New(2, 0)
	allowed, _ := l.Check("tenant-a")
	require.True(t, allowed)
	allowed, _ = l.Check("tenant-a")
	require.True(t, allowed)
}

func TestCheckRejectsOverLimit(t *testing.T) {
	l := New(2, 0)
	l.Check("tenant-a")
	l.Check("tenant-a")
	allowed, retryAfterMs := l.Check("tenant-a")
	require.False(t, allowed)
	require.GreaterOrEqual(t, retryAfterMs, int64(0))
	require.LessOrEqual(t, retryAfterMs, int64(60000))
}

func TestRateLimitThirdRequestWithinWindowRejected(t *testing.T) {
	l := New(2, 0)
	require.Equal(t, true, mustAllow(t, l))
	require.Equal(t, true, mustAllow(t, l))
	allowed, retryAfterMs := l.Check("user-1")
	require.False(t, allowed)
	// All three checks run within moments of each other, so nearly the
	// whole window should remain.
	require.GreaterOrEqual(t, retryAfterMs, int64(50000))
	require.LessOrEqual(t, retryAfterMs, int64(60000))
}

func mustAllow(t *testing.T, l *Limiter) bool {
	t.Helper()
	allowed, _ := l.Check("user-1")
	return allowed
}

func TestWindowResetsAfterExpiry(t *testing.T) {
	l := New(1, 0)
	l.Check("tenant-a")
	allowed, _ := l.Check("tenant-a")
	require.False(t, allowed)

	// simulate window expiry by forcing windowStart back in time
	e := l.entryFor("tenant-a")
	e.mu.Lock()
	e.windowStart = time.Now().Add(-2 * time.Minute)
	e.mu.Unlock()

	allowed, _ = l.Check("tenant-a")
	require.True(t, allowed)
}

func TestZeroLimitMeansUnlimited(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		allowed, _ := l.Check("tenant-a")
		require.True(t, allowed)
	}
}

func TestRecordTokensAndTokensExceeded(t *testing.T) {
	l := New(0, 100)
	require.False(t, l.TokensExceeded("tenant-a"))
	l.RecordTokens("tenant-a", 150)
	require.True(t, l.TokensExceeded("tenant-a"))
}

func TestSnapshotReflectsWindowCounters(t *testing.T) {
	l := New(10, 0)
	l.Check("tenant-a")
	l.Check("tenant-a")
	l.RecordTokens("tenant-a", 42)

	snap := l.Snapshot("tenant-a")
	require.Equal(t, 2, snap.RequestsInWindow)
	require.Equal(t, int64(42), snap.TokensInWindow)
	require.Greater(t, snap.WindowStartMs, int64(0))
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, 0)
	l.Check("a")
	allowed, _ := l.Check("b")
	require.True(t, allowed)
}

func TestGCRemovesStaleEntries(t *testing.T) {
	l := New(1, 0)
	l.Check("tenant-a")

	e := l.entryFor("tenant-a")
	e.mu.Lock()
	e.windowStart = time.Now().Add(-3 * time.Minute)
	e.mu.Unlock()

	l.sweep()

	_, ok := l.entries.Load("tenant-a")
	require.False(t, ok)
}

func TestRunGCStopsOnContextCancel(t *testing.T) {
	l := New(1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go l.RunGC(ctx)
	cancel()
	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunGC did not stop after context cancellation")
	}
}
