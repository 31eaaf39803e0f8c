package cache

import (
	"context"
	"time"
)

type compositeCache struct {
	caches []Cache
}

var _ Cache = (*compositeCache)(nil)

// ttlGetter is implemented by caches that can report how long a hit has left.
type ttlGetter interface {
	getTTL(ctx context.Context, key string) (bool, any, time.Duration, error)
}

// getTTL reads key from c. The remaining TTL is zero when c cannot report it.
func getTTL(ctx context.Context, c Cache, key string) (bool, any, time.Duration, error) {
	if tg, ok := c.(ttlGetter); ok {
		return tg.getTTL(ctx, key)
	}
	found, val, err := c.GetContext(ctx, key)
	return found, val, 0, err
}

// NewComposite returns a Cache that chains multiple caches together.
// Get checks caches in order and returns the first hit. A hit in a later
// cache is copied into the earlier ones for the time it has left, when that
// cache reports it.
// Set writes to all caches.
// At least one cache must be provided; panics if empty.
func NewComposite(caches ...Cache) Cache {
	if len(caches) == 0 {
		panic("cache: NewComposite requires at least one cache")
	}
	return &compositeCache{caches: caches}
}

func (c *compositeCache) GetContext(ctx context.Context, key string) (bool, any, error) {
	found, val, _, err := c.getTTL(ctx, key)
	return found, val, err
}

func (c *compositeCache) getTTL(ctx context.Context, key string) (bool, any, time.Duration, error) {
	for i, cache := range c.caches {
		found, val, ttl, err := getTTL(ctx, cache, key)
		if err != nil {
			return false, nil, 0, err
		}
		if !found {
			continue
		}
		if i > 0 && ttl > 0 {
			for _, earlier := range c.caches[:i] {
				// refill is best effort
				_ = earlier.SetContext(ctx, key, val, ttl)
			}
		}
		return true, val, ttl, nil
	}
	return false, nil, 0, nil
}

func (c *compositeCache) SetContext(ctx context.Context, key string, val any, expires time.Duration) error {
	var firstErr error
	for _, cache := range c.caches {
		if err := cache.SetContext(ctx, key, val, expires); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *compositeCache) HitsContext(ctx context.Context, key string) (bool, int) {
	for _, cache := range c.caches {
		if found, hits := cache.HitsContext(ctx, key); found {
			return true, hits
		}
	}
	return false, 0
}

func (c *compositeCache) ExpireContext(ctx context.Context, key string) (bool, error) {
	anyFound := false
	for _, cache := range c.caches {
		found, err := cache.ExpireContext(ctx, key)
		if err != nil {
			return anyFound, err
		}
		if found {
			anyFound = true
		}
	}
	return anyFound, nil
}

func (c *compositeCache) CloseContext(ctx context.Context) error {
	var firstErr error
	for _, cache := range c.caches {
		if err := cache.CloseContext(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
