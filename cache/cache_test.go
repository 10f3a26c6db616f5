package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/relaygate/gateway/model"
)

func sampleRequest(text string) *model.Request {
	return &model.Request{
		ID: "req-1",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: []model.ContentBlock{{Type: "text", Text: text}}},
		},
	}
}

func TestInMemoryCacheMissThenHit(t *testing.T) {
	c := NewInMemoryCache(time.Minute)
	req := sampleRequest("hello")

	_, found := c.Lookup(context.Background(), req)
	require.False(t, found)

	c.Store(context.Background(), req, &model.Response{Content: "hi there"})

	resp, found := c.Lookup(context.Background(), req)
	require.True(t, found)
	require.True(t, resp.Cached)
	require.Equal(t, "hi there", resp.Content)
}

func TestInMemoryCacheExpiry(t *testing.T) {
	c := NewInMemoryCache(10 * time.Millisecond)
	req := sampleRequest("hello")
	c.Store(context.Background(), req, &model.Response{Content: "hi"})

	time.Sleep(20 * time.Millisecond)
	_, found := c.Lookup(context.Background(), req)
	require.False(t, found)
}

// TestCacheHitReturnsStoredResponseWithinTTL verifies a second
// identical request within TTL returns cached=true with no dispatch
// involved.
func TestCacheHitReturnsStoredResponseWithinTTL(t *testing.T) {
	c := NewInMemoryCache(time.Minute)
	req := sampleRequest("what is the capital of france?")
	c.Store(context.Background(), req, &model.Response{Content: "Paris", LatencyMs: 400})

	resp, found := c.Lookup(context.Background(), sampleRequest("what is the capital of france?"))
	require.True(t, found)
	require.True(t, resp.Cached)
	require.Equal(t, 0.0, resp.LatencyMs, "stored dispatch latency must not leak into the hit")
}

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return newRedisCacheFromClient(client, time.Minute), mr
}

func TestRedisCacheMissThenHit(t *testing.T) {
	c, _ := newTestRedisCache(t)
	req := sampleRequest("hello")

	_, found := c.Lookup(context.Background(), req)
	require.False(t, found)

	c.Store(context.Background(), req, &model.Response{Content: "hi there", ProviderUsed: "providerA", LatencyMs: 900})

	resp, found := c.Lookup(context.Background(), req)
	require.True(t, found)
	require.True(t, resp.Cached)
	require.Equal(t, "hi there", resp.Content)
	require.Equal(t, "providerA", resp.ProviderUsed)
	require.Equal(t, 0.0, resp.LatencyMs)
}

func TestRedisCacheUnreachableIsMiss(t *testing.T) {
	c, mr := newTestRedisCache(t)
	mr.Close()

	_, found := c.Lookup(context.Background(), sampleRequest("hello"))
	require.False(t, found)
}

func TestNormalizedKeyIgnoresRequestID(t *testing.T) {
	a := sampleRequest("same question")
	a.ID = "req-a"
	b := sampleRequest("same question")
	b.ID = "req-b"
	require.Equal(t, normalizedKey(a), normalizedKey(b))
}
