package tokencache

import (
	"context"
	"encoding/json"
	"time"

	"authrelay/internal/authority"
	"authrelay/internal/platform/logger"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "authrelay:token:"
	defaultRedisTTL    = 30 * time.Second
)

// RedisOptions configures the Redis-backed cache
type RedisOptions struct {
	// Client is the Redis client to use. If nil, a default localhost client is created
	Client redis.UniversalClient
	// KeyPrefix namespaces all cache keys. Defaults to "authrelay:token:"
	KeyPrefix string
	// TTL is the deployment-fixed freshness window
	TTL time.Duration
}

// Redis is the shared token cache for multi-instance deployments. Backend
// errors degrade to cache misses; validation falls through to the authority
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	log    logger.Logger
}

var _ Cache = (*Redis)(nil)

// NewRedis builds a Redis-backed cache with defaults applied
func NewRedis(opts RedisOptions) *Redis {
	client := opts.Client
	if client == nil {
		client = redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    *logger.Named("tokencache"),
	}
}

// Get returns the cached result for key if present and fresh
func (r *Redis) Get(ctx context.Context, key string) (authority.ValidationResult, bool) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Debug().Err(err).Msg("cache get failed, treating as miss")
		}
		return authority.ValidationResult{}, false
	}
	var res authority.ValidationResult
	if err := json.Unmarshal(raw, &res); err != nil {
		r.log.Debug().Err(err).Msg("cache entry malformed, treating as miss")
		return authority.ValidationResult{}, false
	}
	return res, true
}

// Put stores the result under key with the configured TTL
func (r *Redis) Put(ctx context.Context, key string, res authority.ValidationResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		r.log.Debug().Err(err).Msg("cache put failed")
	}
}

// Invalidate drops key across all instances sharing the backend
func (r *Redis) Invalidate(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		r.log.Debug().Err(err).Msg("cache invalidate failed")
	}
}

// Close releases the Redis connection
func (r *Redis) Close() error { return r.client.Close() }
