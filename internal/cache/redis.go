package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces Heron keys in a shared Redis.
const keyPrefix = "heron:"

// RedisCache stores encoded results in Redis, shared by every API replica.
// Several comma-separated addresses select a cluster client.
type RedisCache struct {
	client redis.UniversalClient
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache connects to the Redis named by cfg and verifies it answers.
func NewRedisCache(cfg domain.CacheConfig) (*RedisCache, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    redisAddrs(cfg.RedisAddr),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	return &RedisCache{client: client}, nil
}

func redisAddrs(addr string) []string {
	var addrs []string
	for _, a := range strings.Split(addr, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		addrs = []string{"localhost:6379"}
	}
	return addrs
}

// redisKey hash-tags the tenant so all of a tenant's results land in one
// cluster slot.
func redisKey(tenantID, key string) string {
	return keyPrefix + "{" + tenantID + "}:" + key
}

// Get returns nil, nil on a miss.
func (c *RedisCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	val, err := c.client.Get(ctx, redisKey(tenantID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	c.hits.Add(1)
	return val, nil
}

// Set stores a value with TTL. A non-positive TTL stores nothing, so
// results never outlive their staleness bound.
func (c *RedisCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, redisKey(tenantID, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, tenantID string, key string) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}
	return c.client.Del(ctx, redisKey(tenantID, key)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Stats reports lookups served by this process. Size and capacity are not
// tracked for a shared store.
func (c *RedisCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
