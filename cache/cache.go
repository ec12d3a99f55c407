// Package cache stores rendered tree views so that read-heavy endpoints do
// not rebuild the forest on every request. Entries are keyed by view and
// dropped wholesale whenever the tree changes.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ammiranda/treepath/config"
	"github.com/ammiranda/treepath/models"
)

// DefaultTTL is the lifetime of an entry unless SetTTL says otherwise
const DefaultTTL = 5 * time.Minute

// ForestKey is the key of the full forest rendering
const ForestKey = "forest"

// SubtreeKey returns the key of the rendering rooted at id
func SubtreeKey(id int64) string {
	return "subtree:" + strconv.FormatInt(id, 10)
}

// ErrCacheInitialization is returned when a backend cannot be prepared
var ErrCacheInitialization = errors.New("cache initialization failed")

// Provider defines the interface for cache implementations.
// Lookups fail soft: a backend error is reported as a miss so the caller
// falls back to the store.
type Provider interface {
	// Get returns the cached rendering for key, if present and fresh.
	Get(ctx context.Context, key string) ([]*models.TreeNode, bool)

	// Set stores a rendering under key for the configured TTL.
	Set(ctx context.Context, key string, nodes []*models.TreeNode)

	// Invalidate drops every entry. It is called after each tree mutation.
	Invalidate(ctx context.Context) error

	// SetTTL changes the lifetime of entries written from now on.
	SetTTL(ttl time.Duration)

	// Initialize performs any necessary setup, such as connecting or
	// creating tables.
	Initialize(ctx context.Context) error
}

// NewFromConfig builds and initializes the backend named by cfg.CacheKind
func NewFromConfig(ctx context.Context, cfg *config.AppConfig) (Provider, error) {
	var provider Provider
	switch cfg.CacheKind {
	case config.CacheMemory:
		provider = NewMemoryCache()
	case config.CacheRedis:
		provider = NewRedisCache(cfg.RedisAddr)
	case config.CacheDynamoDB:
		dynamo, err := NewDynamoDBCache(ctx, cfg.CacheTable)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheInitialization, err)
		}
		provider = dynamo
	case config.CacheNone, "":
		provider = NopCache{}
	default:
		return nil, fmt.Errorf("%w: unsupported cache %q", ErrCacheInitialization, cfg.CacheKind)
	}

	if cfg.CacheTTL > 0 {
		provider.SetTTL(cfg.CacheTTL)
	}
	if err := provider.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheInitialization, err)
	}
	return provider, nil
}

// NopCache never stores anything
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]*models.TreeNode, bool) { return nil, false }
func (NopCache) Set(context.Context, string, []*models.TreeNode) {}
func (NopCache) Invalidate(context.Context) error { return nil }
func (NopCache) SetTTL(time.Duration) {}
func (NopCache) Initialize(context.Context) error { return nil }
