package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/relaygate/gateway/core"
	"github.com/relaygate/gateway/model"
)

// RedisCache implements Cache against Redis, keyed by normalizedKey
// with a configurable TTL. Grounded on core/redis_client.go
// (RedisClient's opts-struct construction,
// Ping-on-connect verification, optional Logger) narrowed from a
// general-purpose namespaced KV wrapper to the one Get/Set pair a
// semantic cache needs.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger core.Logger
}

// RedisCacheOptions configures RedisCache construction.
type RedisCacheOptions struct {
	RedisURL string
	TTL      time.Duration // 0 defaults to 5 minutes
	Logger   core.Logger
}

// NewRedisCache connects to Redis and verifies the connection with a
// Ping, mirroring NewRedisClient's verification step.
func NewRedisCache(opts RedisCacheOptions) (*RedisCache, error) {
	if opts.RedisURL == "" {
		return nil, core.NewFrameworkError("cache.NewRedisCache", "cache", core.ErrInvalidConfiguration)
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = &core.NoOpLogger{}
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", core.ErrInvalidConfiguration)
	}
	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: failed to connect to redis: %w", core.ErrConnectionFailed)
	}

	opts.Logger.Info("semantic cache connected", map[string]interface{}{"ttl": opts.TTL.String()})
	return &RedisCache{client: client, ttl: opts.TTL, logger: opts.Logger}, nil
}

// newRedisCacheFromClient builds a RedisCache around an already-
// constructed client, used by tests against a miniredis instance.
func newRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: &core.NoOpLogger{}}
}

var _ Cache = (*RedisCache)(nil)

// Lookup implements Cache. Any Redis error — connection failure,
// missing key, corrupt payload — is treated as a miss, since failures
// to reach the cache must never become a fatal error.
func (c *RedisCache) Lookup(ctx context.Context, req *model.Request) (*model.Response, bool) {
	key := normalizedKey(req)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("semantic cache lookup failed, treating as miss", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}

	var resp model.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("semantic cache payload corrupt, treating as miss", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	resp.Cached = true
	// Same as InMemoryCache: drop the populating dispatch's latency so
	// the caller stamps its own serve time.
	resp.LatencyMs = 0
	return &resp, true
}

// Store implements Cache. Errors are logged, not returned — a failed
// write degrades to "this response just won't be cached", never a
// request failure.
func (c *RedisCache) Store(ctx context.Context, req *model.Request, resp *model.Response) {
	if resp == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("semantic cache encode failed", map[string]interface{}{"error": err.Error()})
		return
	}
	key := normalizedKey(req)
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("semantic cache store failed", map[string]interface{}{"error": err.Error()})
	}
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
