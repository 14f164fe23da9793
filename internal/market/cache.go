package market

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through cache for hot market queries. A failing cache
// degrades to uncached reads; it never surfaces errors to callers.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) bool
	SetJSON(ctx context.Context, key string, val interface{}, ttl time.Duration)
}

// RedisCache implements Cache on a Redis client.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis at the given URL. Returns nil (caching
// disabled) when the URL is empty or Redis is unreachable.
func NewRedisCache(url string) *RedisCache {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("market: invalid redis url, caching disabled: %v", err)
		return nil
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("market: redis unreachable, caching disabled: %v", err)
		return nil
	}
	return &RedisCache{client: client}
}

func (r *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	b, err := r.client.Get(ctx, "coinlens:"+key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(b, dest) == nil
}

func (r *RedisCache) SetJSON(ctx context.Context, key string, val interface{}, ttl time.Duration) {
	b, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, "coinlens:"+key, b, ttl).Err(); err != nil {
		log.Printf("market: cache set %s: %v", key, err)
	}
}

// noopCache is used when caching is disabled.
type noopCache struct{}

func (noopCache) GetJSON(context.Context, string, interface{}) bool { return false }

func (noopCache) SetJSON(context.Context, string, interface{}, time.Duration) {}
