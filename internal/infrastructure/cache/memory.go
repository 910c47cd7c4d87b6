package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"posadmin/internal/domain"
)

const (
	DefaultSize = 1024
	DefaultTTL  = 5 * time.Minute
)

// MemoryCache keeps permission records of recently used organizations in
// process memory. Records are cloned on the way in and out so callers never
// share maps with the cache. A Set never replaces a newer version.
type MemoryCache struct {
	mu    sync.Mutex
	cache *lru.LRU[string, domain.PermissionRecord]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{cache: lru.NewLRU[string, domain.PermissionRecord](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, orgID string) (domain.PermissionRecord, bool) {
	record, ok := c.cache.Get(orgID)
	if !ok {
		return domain.PermissionRecord{}, false
	}
	return cloneRecord(record), true
}

func (c *MemoryCache) Set(_ context.Context, record domain.PermissionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.cache.Peek(record.OrganizationID); ok && current.Version > record.Version {
		return
	}
	c.cache.Add(record.OrganizationID, cloneRecord(record))
}

func (c *MemoryCache) Invalidate(_ context.Context, orgID string) {
	c.cache.Remove(orgID)
}

func (c *MemoryCache) Len() int {
	return c.cache.Len()
}

func cloneRecord(record domain.PermissionRecord) domain.PermissionRecord {
	record.Permissions = record.Permissions.Clone()
	return record
}
