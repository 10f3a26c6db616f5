// Package ratelimit implements fixed 60-second rate-limit windows
// keyed by tenant/user, with a background sweep that garbage-collects
// stale entries. The per-key map plus ticker-driven cleanup goroutine
// is grounded directly on the agentflow cmd/agentflow/middleware.go
// RateLimiter (its per-IP visitor map and time.NewTicker(time.Minute)
// cleanup loop), adapted from a sliding token-bucket-per-visitor model
// to a fixed-window model.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/relaygate/gateway/model"
)

const (
	windowDuration = 60 * time.Second
	gcAge          = 120 * time.Second
	gcInterval     = 60 * time.Second
)

type entry struct {
	mu               sync.Mutex
	requestsInWindow int
	tokensInWindow   int64
	windowStart      time.Time
}

// Limiter enforces a fixed-window allow decision, keyed by
// tenant/user string.
type Limiter struct {
	requestsPerMinute int
	tokensPerMinute   int64

	entries sync.Map // key string -> *entry

	wg sync.WaitGroup
}

// New builds a Limiter. A requestsPerMinute of 0 means unlimited.
func New(requestsPerMinute int, tokensPerMinute int64) *Limiter {
	return &Limiter{requestsPerMinute: requestsPerMinute, tokensPerMinute: tokensPerMinute}
}

func (l *Limiter) entryFor(key string) *entry {
	if v, ok := l.entries.Load(key); ok {
		return v.(*entry)
	}
	e := &entry{windowStart: time.Now()}
	actual, _ := l.entries.LoadOrStore(key, e)
	return actual.(*entry)
}

// Check implements check(key) -> (allowed, retryAfterMs?). If no
// entry exists or the window has expired, it creates/resets and
// allows. Otherwise rejects once requestsInWindow reaches the limit.
func (l *Limiter) Check(key string) (allowed bool, retryAfterMs int64) {
	e := l.entryFor(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if now.Sub(e.windowStart) >= windowDuration {
		e.windowStart = now
		e.requestsInWindow = 0
		e.tokensInWindow = 0
	}

	if l.requestsPerMinute > 0 && e.requestsInWindow >= l.requestsPerMinute {
		elapsed := now.Sub(e.windowStart)
		remaining := windowDuration - elapsed
		if remaining < 0 {
			remaining = 0
		}
		return false, remaining.Milliseconds()
	}

	e.requestsInWindow++
	return true, 0
}

// RecordTokens adds n to key's window token total. Informational:
// tokensPerMinute is tracked but not currently used to gate Check,
// which is an intentional extension point rather than an oversight
// carried over unexamined.
func (l *Limiter) RecordTokens(key string, n int64) {
	e := l.entryFor(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tokensInWindow += n
}

// TokensExceeded reports whether key's accumulated tokens in the
// current window meet or exceed tokensPerMinute, for callers that want
// to opt into token-based gating ahead of Check.
func (l *Limiter) TokensExceeded(key string) bool {
	if l.tokensPerMinute <= 0 {
		return false
	}
	e := l.entryFor(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tokensInWindow >= l.tokensPerMinute
}

// Snapshot returns key's current window entry for inspection; it never
// mutates window state.
func (l *Limiter) Snapshot(key string) model.RateLimitEntry {
	e := l.entryFor(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.RateLimitEntry{
		RequestsInWindow: e.requestsInWindow,
		TokensInWindow:   e.tokensInWindow,
		WindowStartMs:    e.windowStart.UnixMilli(),
	}
}

// RunGC starts the background sweep that removes entries whose
// windowStart is older than 120s, ticking every 60s, and stops when
// ctx is cancelled — tied to the gateway's lifecycle so the goroutine
// never outlives its owner. Call as `go limiter.RunGC(ctx)`.
func (l *Limiter) RunGC(ctx context.Context) {
	l.wg.Add(1)
	defer l.wg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	now := time.Now()
	l.entries.Range(func(k, v interface{}) bool {
		e := v.(*entry)
		e.mu.Lock()
		stale := now.Sub(e.windowStart) > gcAge
		e.mu.Unlock()
		if stale {
			l.entries.Delete(k)
		}
		return true
	})
}

// Wait blocks until a RunGC goroutine started for this Limiter has
// returned, for use in tests that cancel ctx and want to join cleanly.
func (l *Limiter) Wait() {
	l.wg.Wait()
}
