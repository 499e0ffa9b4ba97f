// internal/catalog/cache.go
package catalog

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheTTL   = 30 * time.Minute
	defaultCacheLimit = 1024
)

// DescriptorCache keeps recently seen descriptors in memory for a fixed
// lifetime. When full, the least recently used entry is dropped.
type DescriptorCache struct {
	lru *expirable.LRU[string, ModelDescriptor]
}

// NewDescriptorCache builds a cache with a 30 minute lifetime and 1024 entries.
func NewDescriptorCache() *DescriptorCache {
	return newDescriptorCache(defaultCacheLimit, defaultCacheTTL)
}

func newDescriptorCache(limit int, ttl time.Duration) *DescriptorCache {
	return &DescriptorCache{lru: expirable.NewLRU[string, ModelDescriptor](limit, nil, ttl)}
}

// CacheKey normalizes a model name into its cache key.
func CacheKey(name string) string {
	return "model_cache_" + strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// Put stores d under its name.
func (c *DescriptorCache) Put(d ModelDescriptor) {
	c.lru.Add(CacheKey(d.Name), d)
}

// Get returns the cached descriptor for name, if present and fresh.
func (c *DescriptorCache) Get(name string) (ModelDescriptor, bool) {
	return c.lru.Get(CacheKey(name))
}

// Remove drops name from the cache.
func (c *DescriptorCache) Remove(name string) {
	c.lru.Remove(CacheKey(name))
}

// Clear empties the cache.
func (c *DescriptorCache) Clear() {
	c.lru.Purge()
}

// Len returns the number of entries not yet purged.
func (c *DescriptorCache) Len() int {
	return c.lru.Len()
}
