package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultExpiration = 5 * time.Minute
	cleanupInterval   = 10 * time.Minute
)

// InMemoryCache is a process-local cache backed by go-cache
type InMemoryCache struct {
	cache *gocache.Cache
}

var (
	instance *InMemoryCache
	once     sync.Once
)

// NewInMemoryCache returns the singleton in-memory cache
func NewInMemoryCache() *InMemoryCache {
	once.Do(func() {
		instance = &InMemoryCache{
			cache: gocache.New(defaultExpiration, cleanupInterval),
		}
	})
	return instance
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration <= 0 {
		expiration = defaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return c.cache.Get(key)
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemoryCache) DeleteByPrefix(ctx context.Context, prefix string) {
	for key := range c.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
		}
	}
}

func (c *InMemoryCache) Flush(ctx context.Context) {
	c.cache.Flush()
}
