package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ammiranda/treepath/models"
)

// MockCache is a cache provider that can be used for testing. It keeps
// entries in memory and counts every call.
type MockCache struct {
	mu              sync.RWMutex
	entries         map[string][]*models.TreeNode
	ttl             time.Duration
	GetCalls        int
	Hits            int
	SetCalls        int
	InvalidateCalls int
	SetTTLCalls     int
	InitCalls       int
	ShouldFail      bool
}

// NewMockCache creates a new mock cache provider
func NewMockCache() *MockCache {
	return &MockCache{
		entries: make(map[string][]*models.TreeNode),
		ttl:     DefaultTTL,
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MockCache) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InitCalls++
	if c.ShouldFail {
		return ErrCacheInitialization
	}
	return nil
}

// Get retrieves a rendering from cache if available
func (c *MockCache) Get(ctx context.Context, key string) ([]*models.TreeNode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls++

	if c.ShouldFail {
		return nil, false
	}
	nodes, ok := c.entries[key]
	if ok {
		c.Hits++
	}
	return nodes, ok
}

// Set stores a rendering in cache
func (c *MockCache) Set(ctx context.Context, key string, nodes []*models.TreeNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetCalls++

	if !c.ShouldFail {
		c.entries[key] = nodes
	}
}

// Invalidate removes all cached data
func (c *MockCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InvalidateCalls++

	if c.ShouldFail {
		return ErrCacheInitialization
	}
	c.entries = make(map[string][]*models.TreeNode)
	return nil
}

// SetTTL sets the cache time-to-live duration
func (c *MockCache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetTTLCalls++
	c.ttl = ttl
}

// Reset resets all counters and state
func (c *MockCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls = 0
	c.Hits = 0
	c.SetCalls = 0
	c.InvalidateCalls = 0
	c.SetTTLCalls = 0
	c.InitCalls = 0
	c.ShouldFail = false
	c.entries = make(map[string][]*models.TreeNode)
}

// GetCallCounts returns the number of times each method was called
func (c *MockCache) GetCallCounts() (get, set, invalidate, setTTL, init int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GetCalls, c.SetCalls, c.InvalidateCalls, c.SetTTLCalls, c.InitCalls
}

// SetShouldFail makes the mock cache fail all operations
func (c *MockCache) SetShouldFail(shouldFail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ShouldFail = shouldFail
}

// TTL returns the last TTL set
func (c *MockCache) TTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttl
}
