package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// key prefixes keep entries from different concerns apart in the shared cache
const (
	PrefixCustomer = "customer"
)

// Cache defines the interface for cache operations
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Get(ctx context.Context, key string) (interface{}, bool)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
	Flush(ctx context.Context)
}

// GenerateKey builds a cache key from a prefix and ordered parts
func GenerateKey(prefix string, parts ...interface{}) string {
	strParts := make([]string, 0, len(parts)+1)
	strParts = append(strParts, prefix)
	for _, part := range parts {
		strParts = append(strParts, fmt.Sprintf("%v", part))
	}
	return strings.Join(strParts, ":")
}
