package cache

import (
	"context"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryClient implements an in-process cache backed by go-cache.
type MemoryClient struct {
	store      *gocache.Cache
	maxEntries int
}

// NewMemoryClient creates a new in-memory cache client. Expired entries are
// purged every cleanupInterval; maxEntries <= 0 means unbounded.
func NewMemoryClient(maxEntries int, cleanupInterval time.Duration) *MemoryClient {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &MemoryClient{
		store:      gocache.New(gocache.NoExpiration, cleanupInterval),
		maxEntries: maxEntries,
	}
}

// Get retrieves a value from cache.
func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}

// Set stores a value with TTL. When the cache is full, expired entries are
// dropped first and then the entry closest to expiry is evicted.
func (c *MemoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.maxEntries > 0 && c.store.ItemCount() >= c.maxEntries {
		if _, exists := c.store.Get(key); !exists {
			c.store.DeleteExpired()
			if c.store.ItemCount() >= c.maxEntries {
				c.evictSoonest()
			}
		}
	}
	c.store.Set(key, value, ttl)
	return nil
}

// Delete removes a value from cache.
func (c *MemoryClient) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

// Len returns the number of stored entries, including not yet purged expired ones.
func (c *MemoryClient) Len() int {
	return c.store.ItemCount()
}

// Close is a no-op for memory cache.
func (c *MemoryClient) Close() error {
	return nil
}

func (c *MemoryClient) evictSoonest() {
	var oldestKey string
	var oldest int64
	for key, item := range c.store.Items() {
		exp := item.Expiration
		if exp == 0 {
			exp = math.MaxInt64
		}
		if oldestKey == "" || exp < oldest {
			oldestKey = key
			oldest = exp
		}
	}
	if oldestKey != "" {
		c.store.Delete(oldestKey)
	}
}
