package geocode_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/saferoute-nyc/saferoute/internal/geocode"
	"github.com/saferoute-nyc/saferoute/internal/logger"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*geocode.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return geocode.NewRedisCache(client, ttl, logger.NewNop()), mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	cache, _ := newRedisCache(t, time.Hour)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "forward:pizza:5:"); ok {
		t.Error("Get() hit before Set()")
	}

	cache.Set(ctx, "forward:pizza:5:", []byte(`[{"name":"x"}]`))

	val, ok := cache.Get(ctx, "forward:pizza:5:")
	if !ok {
		t.Fatal("Get() missed after Set()")
	}
	if string(val) != `[{"name":"x"}]` {
		t.Errorf("Get() = %s", val)
	}
}

func TestRedisCache_EntriesExpire(t *testing.T) {
	cache, mr := newRedisCache(t, time.Hour)
	ctx := context.Background()

	cache.Set(ctx, "reverse:-73.99:40.72", []byte(`[]`))

	if _, ok := cache.Get(ctx, "reverse:-73.99:40.72"); !ok {
		t.Fatal("Get() missed before expiry")
	}

	mr.FastForward(2 * time.Hour)

	if _, ok := cache.Get(ctx, "reverse:-73.99:40.72"); ok {
		t.Error("Get() hit after TTL expired")
	}
}

func TestRedisCache_ServerDownDegradesToMiss(t *testing.T) {
	cache, mr := newRedisCache(t, time.Hour)
	ctx := context.Background()

	mr.Close()

	// Neither call may panic or block
	cache.Set(ctx, "forward:pizza:5:", []byte(`[]`))
	if _, ok := cache.Get(ctx, "forward:pizza:5:"); ok {
		t.Error("Get() hit with redis down")
	}
}

func TestNopCache(t *testing.T) {
	cache := geocode.NopCache{}
	ctx := context.Background()

	cache.Set(ctx, "k", []byte("v"))
	if _, ok := cache.Get(ctx, "k"); ok {
		t.Error("NopCache.Get() hit, want permanent miss")
	}
}
