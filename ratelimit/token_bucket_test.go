package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucketGuardAllowsWithinBudget(t *testing.T) {
	g := NewTokenBucketGuard(600, 100) // 10 tokens/sec, burst 100
	require.True(t, g.AllowN("tenantA", 50))
	require.True(t, g.AllowN("tenantA", 50))
}

func TestTokenBucketGuardRejectsOverBudget(t *testing.T) {
	g := NewTokenBucketGuard(60, 10) // 1 token/sec, burst 10
	require.True(t, g.AllowN("tenantA", 10))
	require.False(t, g.AllowN("tenantA", 10))
}

func TestTokenBucketGuardKeysAreIndependent(t *testing.T) {
	g := NewTokenBucketGuard(60, 5)
	require.True(t, g.AllowN("tenantA", 5))
	require.True(t, g.AllowN("tenantB", 5))
}

func TestTokenBucketGuardRunGCStopsOnCancel(t *testing.T) {
	g := NewTokenBucketGuard(60, 5)
	ctx, cancel := context.WithCancel(context.Background())
	go g.RunGC(ctx)
	cancel()
	done := make(chan struct{})
	go func() { g.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunGC did not stop after cancel")
	}
}
