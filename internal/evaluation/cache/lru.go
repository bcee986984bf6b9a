// Package cache holds FingerprintCache implementations: a per-process LRU, a
// Redis cache shared between instances, and a circuit-breaker guard that
// degrades from Redis to the LRU.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU is a bounded in-process fingerprint cache. Entries expire after ttl.
type LRU struct {
	entries *expirable.LRU[string, struct{}]
}

// NewLRU creates a cache holding at most size keys.
func NewLRU(size int, ttl time.Duration) *LRU {
	return &LRU{entries: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (c *LRU) Contains(_ context.Context, key string) (bool, error) {
	return c.entries.Contains(key), nil
}

func (c *LRU) Add(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.entries.Add(k, struct{}{})
	}
	return nil
}

// Len returns the number of live entries.
func (c *LRU) Len() int {
	return c.entries.Len()
}
