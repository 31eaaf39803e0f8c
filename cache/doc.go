// Package cache provides a TTL cache interface with in-process backends and
// type-safe generic helpers.
//
// # Cache Interface
//
// The [Cache] interface defines five operations: [Cache.GetContext],
// [Cache.SetContext], [Cache.HitsContext], [Cache.ExpireContext] and
// [Cache.CloseContext]. Values are [any] because Go does not allow generic
// methods on interfaces; [Get] and [Exec] add type safety on top.
//
// # Expiry
//
// Every entry carries an absolute expiry computed from the TTL given to Set.
// An entry whose expiry is at or before the current time is treated as absent
// by Get and deleted as part of that read. There is no size bound and no LRU;
// the key space is expected to be bounded by the data being cached. Backends
// only sweep in the background when [WithExpiryCheck] is set.
//
// The current time comes from a [Clock], time.Now unless [WithClock] is used.
//
// # Implementations
//
//   - [NewInMemory]: a map guarded by a mutex. Values are stored as-is, so
//     callers must treat returned slices and maps as read-only.
//
//   - [NewSQLite]: backed by [modernc.org/sqlite] (pure Go). Values are
//     serialized to msgpack and returned from GetContext as []byte. With an
//     empty path or ":memory:" the database lives only as long as the process.
//
//   - [NewComposite]: chains caches in order. Get returns the first hit,
//     Set and Expire apply to all.
//
// [Slot] is the unkeyed variant: a single value with an expiry, for data that
// exists once per process.
//
// # Generic Helpers
//
// [Get] wraps [Cache.GetContext] and either type-asserts the stored value or
// decodes msgpack bytes from a serialized backend:
//
//	found, rec, err := cache.Get[Record](ctx, c, "id:25")
//
// [Exec] is a cache-aside helper. The invoker returns (value, store, error):
// store=false hands the value back without caching it, which callers use for
// answers that must not be remembered.
//
// Cache read errors are always propagated by [Exec]. Write errors after a
// successful invoke do not fail the call; the caller still gets the value and
// the error is logged to [CacheConfig].Logger when one is set.
package cache
