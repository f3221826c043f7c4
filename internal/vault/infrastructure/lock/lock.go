// Package lock guards the keeper's weekly operations
// (InitializeAuction/InitializeEpoch/ProcessAuction) against concurrent
// execution across multiple keeper processes, using the same
// SetNX-based pattern the teacher documents for pkg/cache
// (RedisCache.SetNX, "用于分布式锁").
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/vaultengine/pkg/cache"
)

// Guard is a redis-backed mutual-exclusion lock keyed by vault address
// and operation name.
type Guard struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// New returns a lock guard with the given lease TTL.
func New(c *cache.RedisCache, ttl time.Duration) *Guard {
	return &Guard{cache: c, ttl: ttl}
}

// TryAcquire attempts to take the lock for address/operation, returning
// false without error if another keeper already holds it.
func (g *Guard) TryAcquire(ctx context.Context, address [20]byte, operation string) (bool, error) {
	key := fmt.Sprintf("vault:lock:%x:%s", address, operation)
	ok, err := g.cache.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock early, once the guarded operation completes.
func (g *Guard) Release(ctx context.Context, address [20]byte, operation string) error {
	key := fmt.Sprintf("vault:lock:%x:%s", address, operation)
	return g.cache.Delete(ctx, key)
}
