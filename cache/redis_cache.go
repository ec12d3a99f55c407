package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammiranda/treepath/models"
)

const redisKeyPrefix = "treepath:tree:"

// RedisCache implements Provider using Redis. Every key lives under
// a common prefix so Invalidate can drop them without touching other data.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache provider for addr (host:port)
func NewRedisCache(addr string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	return NewRedisCacheWithClient(client)
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: redisKeyPrefix,
		ttl:    DefaultTTL,
	}
}

// Initialize checks that the server is reachable
func (c *RedisCache) Initialize(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("error connecting to redis: %w", err)
	}
	return nil
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get retrieves a rendering from cache if available
func (c *RedisCache) Get(ctx context.Context, key string) ([]*models.TreeNode, bool) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return nil, false
	}

	var nodes []*models.TreeNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, false
	}
	return nodes, true
}

// Set stores a rendering in cache
func (c *RedisCache) Set(ctx context.Context, key string, nodes []*models.TreeNode) {
	data, err := json.Marshal(nodes)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(key), data, c.ttl)
}

// Invalidate deletes every key under the cache prefix
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error deleting cache keys: %w", err)
	}
	return nil
}

// SetTTL sets the cache time-to-live duration
func (c *RedisCache) SetTTL(ttl time.Duration) {
	c.ttl = ttl
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
