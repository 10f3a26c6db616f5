package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketGuard is an opt-in, per-key token-bucket limiter that
// actually enforces tokensPerMinute, since Limiter.RecordTokens stays
// informational on its own. Grounded directly on
// BaSui01-agentflow's cmd/agentflow/middleware.go
// RateLimiter: a mutex-guarded per-visitor map of *rate.Limiter plus a
// ticker-driven goroutine evicting stale visitors, adapted here from
// per-IP HTTP visitors to per-tenant token budgets.
type TokenBucketGuard struct {
	tokensPerMinute float64
	burst           int

	mu       sync.Mutex
	visitors map[string]*tokenVisitor

	wg sync.WaitGroup
}

type tokenVisitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const tokenVisitorIdleTTL = 3 * time.Minute

// NewTokenBucketGuard builds a guard allowing tokensPerMinute tokens
// per key on average, with burst as the bucket capacity.
func NewTokenBucketGuard(tokensPerMinute int64, burst int) *TokenBucketGuard {
	return &TokenBucketGuard{
		tokensPerMinute: float64(tokensPerMinute) / 60,
		burst:           burst,
		visitors:        make(map[string]*tokenVisitor),
	}
}

// AllowN reports whether n tokens may be consumed for key right now,
// consuming them from key's bucket if so.
func (g *TokenBucketGuard) AllowN(key string, n int) bool {
	g.mu.Lock()
	v, ok := g.visitors[key]
	if !ok {
		v = &tokenVisitor{limiter: rate.NewLimiter(rate.Limit(g.tokensPerMinute), g.burst)}
		g.visitors[key] = v
	}
	v.lastSeen = time.Now()
	g.mu.Unlock()

	return v.limiter.AllowN(time.Now(), n)
}

// RunGC evicts visitors idle for more than tokenVisitorIdleTTL, ticking
// every minute until ctx is cancelled, mirroring
// cmd/agentflow/middleware.go's cleanup goroutine.
func (g *TokenBucketGuard) RunGC(ctx context.Context) {
	g.wg.Add(1)
	defer g.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.mu.Lock()
			for key, v := range g.visitors {
				if time.Since(v.lastSeen) > tokenVisitorIdleTTL {
					delete(g.visitors, key)
				}
			}
			g.mu.Unlock()
		}
	}
}

// Wait blocks until a RunGC goroutine has returned.
func (g *TokenBucketGuard) Wait() {
	g.wg.Wait()
}
