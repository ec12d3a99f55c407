package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ammiranda/treepath/models"
)

type memoryEntry struct {
	nodes  []*models.TreeNode
	expiry time.Time
}

// MemoryCache implements Provider using in-memory storage
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a new in-memory cache provider
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MemoryCache) Initialize(ctx context.Context) error {
	return nil
}

// Get retrieves a rendering from cache if available
func (c *MemoryCache) Get(ctx context.Context, key string) ([]*models.TreeNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiry) {
		return nil, false
	}
	return entry.nodes, true
}

// Set stores a rendering in cache
func (c *MemoryCache) Set(ctx context.Context, key string, nodes []*models.TreeNode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{nodes: nodes, expiry: c.now().Add(c.ttl)}
}

// Invalidate removes all cached data
func (c *MemoryCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]memoryEntry)
	return nil
}

// SetTTL sets the cache time-to-live duration
func (c *MemoryCache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ttl = ttl
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
