package geocode

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saferoute-nyc/saferoute/internal/logger"
)

// Cache stores geocoding responses keyed by query.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// NopCache never hits. It is used when redis is not configured.
type NopCache struct{}

// Get always misses.
func (NopCache) Get(_ context.Context, _ string) ([]byte, bool) { return nil, false }

// Set discards the value.
func (NopCache) Set(_ context.Context, _ string, _ []byte) {}

// RedisCache caches responses in redis with a TTL. Redis failures degrade
// to cache misses so a flaky cache never breaks geocoding.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewRedisCache creates a redis-backed cache with the given TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (c *RedisCache) key(k string) string {
	return "geocode:" + k
}

// Get retrieves a cached response.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("geocode cache read failed",
				logger.String("key", key),
				logger.Error(err),
			)
		}
		return nil, false
	}
	return val, true
}

// Set stores a response with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		c.log.Warn("geocode cache write failed",
			logger.String("key", key),
			logger.Error(err),
		)
	}
}
