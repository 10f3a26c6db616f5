// Package cache implements the semantic response cache contract:
// lookup(request) -> Response | nil and store(request, response),
// safe for concurrent callers, with unreachable-cache failures
// treated as a miss rather than an error.
//
// Grounded on core/redis_client.go (RedisClient's DB isolation/
// namespace wrapper around go-redis) and core/redis_registry.go
// (NewRedisRegistryWithNamespace's connection construction with
// pool/timeout tuning, Ping-on-connect). Unlike the registry's
// service-discovery keys, this package hashes a normalized request
// into a single cache key rather than looking one up by ID, since a
// semantic cache is addressed by content, not identity.
package cache

import (
	"context"

	"github.com/relaygate/gateway/model"
)

// Cache is the gateway's external Semantic Cache contract. Lookup
// returns (nil, false) on a miss, including when the backend is
// unreachable — callers never need to distinguish "no entry" from
// "cache down".
type Cache interface {
	Lookup(ctx context.Context, req *model.Request) (*model.Response, bool)
	Store(ctx context.Context, req *model.Request, resp *model.Response)
}
