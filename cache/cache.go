package cache

import (
	"context"
	"time"

	"github.com/agentuity/pokedex/logger"
	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

type Cache interface {
	// GetContext retrieves a value from the cache. An entry whose expiry is at
	// or before now is reported as absent and removed.
	GetContext(ctx context.Context, key string) (bool, any, error)

	// SetContext stores a value in the cache with a TTL. If expires <= 0,
	// the cache's configured default TTL is used.
	SetContext(ctx context.Context, key string, val any, expires time.Duration) error

	// HitsContext returns the number of times a key has been read since it was last set.
	HitsContext(ctx context.Context, key string) (bool, int)

	// ExpireContext removes a key from the cache.
	ExpireContext(ctx context.Context, key string) (bool, error)

	// CloseContext shuts down the cache.
	CloseContext(ctx context.Context) error
}

// Clock returns the current time. Used to decide entry freshness.
type Clock func() time.Time

type value struct {
	object  any
	expires time.Time
	hits    int
}

// fresh reports whether the entry is still valid at now.
func (v *value) fresh(now time.Time) bool {
	return v.object != nil && v.expires.After(now)
}

// Get retrieves a typed value from the cache.
// For in-memory caches, it performs a direct type assertion.
// For serialized caches (like SQLite), it deserializes from []byte using msgpack.
func Get[T any](ctx context.Context, c Cache, key string) (bool, T, error) {
	found, val, err := c.GetContext(ctx, key)
	if !found || err != nil {
		var zero T
		return false, zero, err
	}
	if typed, ok := val.(T); ok {
		return true, typed, nil
	}
	if data, ok := val.([]byte); ok {
		var result T
		if err := msgpack.Unmarshal(data, &result); err != nil {
			var zero T
			return false, zero, errors.Wrap(err, "cache: failed to unmarshal value")
		}
		return true, result, nil
	}
	var zero T
	return false, zero, errors.Newf("cache: cannot convert value of type %T to %T", val, zero)
}

// DefaultExpires is the default TTL used when a Set is called without one.
const DefaultExpires = 5 * time.Minute

// DefaultQueryTimeout is the per-operation timeout for cache backends that
// perform I/O (SQLite).
const DefaultQueryTimeout = 5 * time.Second

type config struct {
	defaultExpires time.Duration
	queryTimeout   time.Duration
	expiryCheck    time.Duration
	clock          Clock
}

// Option configures a Cache implementation.
type Option func(*config)

func defaultConfig() config {
	return config{
		defaultExpires: DefaultExpires,
		queryTimeout:   DefaultQueryTimeout,
		clock:          time.Now,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	return cfg
}

// WithExpires sets the default TTL for cached values. This is used when
// Set is called with expires <= 0. Defaults to DefaultExpires (5 minutes).
func WithExpires(d time.Duration) Option {
	return func(c *config) { c.defaultExpires = d }
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed caches.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithExpiryCheck enables a background sweep of expired entries at the given
// interval. Zero (the default) leaves expiry entirely to reads.
func WithExpiryCheck(d time.Duration) Option {
	return func(c *config) { c.expiryCheck = d }
}

// WithClock replaces time.Now as the source of the current time.
func WithClock(clock Clock) Option {
	return func(c *config) { c.clock = clock }
}

// CacheConfig configures the Exec helper.
type CacheConfig struct {
	// Expires is the TTL for cached values. Defaults to the cache's default if zero.
	Expires time.Duration
	// Key is the cache key. Required.
	Key string
	// Logger, when set, receives a warning for each failed cache write.
	Logger logger.Logger
}

// Invoker is a function that produces a value of type T.
// The bool return indicates whether the value should be cached. Return false
// to hand a value back to the caller without storing it.
type Invoker[T any] func(ctx context.Context) (T, bool, error)

// Exec is a cache-aside helper. It checks the cache for config.Key first and
// returns the cached value on a hit. On a miss it calls invoke; when invoke
// returns store=true the result is written to the cache. The produced value is
// returned either way. Invoker errors are propagated and nothing is cached.
// A failing Set after a successful invoke does not fail the call; it is logged
// to config.Logger when one is set.
func Exec[T any](ctx context.Context, config CacheConfig, c Cache, invoke Invoker[T]) (T, error) {
	found, val, err := Get[T](ctx, c, config.Key)
	if err != nil {
		var zero T
		return zero, err
	}
	if found {
		return val, nil
	}

	result, store, err := invoke(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if store {
		if err := c.SetContext(ctx, config.Key, result, config.Expires); err != nil && config.Logger != nil {
			config.Logger.Warn("error caching %s: %s", config.Key, err)
		}
	}
	return result, nil
}
