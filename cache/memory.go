package cache

import (
	"context"
	"sync"
	"time"

	"github.com/relaygate/gateway/model"
)

type memoryItem struct {
	response  model.Response
	expiresAt time.Time
}

// InMemoryCache is a trivial map-backed Cache for tests and for
// callers who don't run Redis, grounded on the same expiring-entry
// shape as orchestration/cache.go's SimpleCache but addressed by
// normalizedKey instead of a routing-plan prompt hash.
type InMemoryCache struct {
	mu  sync.RWMutex
	ttl time.Duration

	items map[string]memoryItem
}

var _ Cache = (*InMemoryCache)(nil)

// NewInMemoryCache builds an InMemoryCache whose entries expire after
// ttl (0 means entries never expire).
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	return &InMemoryCache{ttl: ttl, items: make(map[string]memoryItem)}
}

// Lookup implements Cache.
func (c *InMemoryCache) Lookup(_ context.Context, req *model.Request) (*model.Response, bool) {
	key := normalizedKey(req)

	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Now().After(item.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}

	resp := item.response
	resp.Cached = true
	// The stored latency belongs to the dispatch that populated the
	// entry, not to this hit; the caller stamps its own serve time.
	resp.LatencyMs = 0
	return &resp, true
}

// Store implements Cache.
func (c *InMemoryCache) Store(_ context.Context, req *model.Request, resp *model.Response) {
	if resp == nil {
		return
	}
	key := normalizedKey(req)
	c.mu.Lock()
	c.items[key] = memoryItem{response: *resp, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Clear removes every entry, for test isolation.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]memoryItem)
	c.mu.Unlock()
}
