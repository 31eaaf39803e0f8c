package catalog

import (
	"context"
	"fmt"

	"github.com/agentuity/pokedex/cache"
)

// Backend selects the store used for the keyed caches.
type Backend string

const (
	// BackendMemory keeps values as-is in a process map.
	BackendMemory Backend = "memory"
	// BackendSQLite serializes values into a private in-memory SQLite database.
	BackendSQLite Backend = "sqlite"
	// BackendTiered reads the process map first and falls back to SQLite.
	BackendTiered Backend = "tiered"
)

// Caches is the process-wide cache state of a Service. Create one at start-up
// and share it across requests; create a fresh one to start from empty.
type Caches struct {
	Index      *cache.Slot[[]IndexEntry]
	Categories *cache.Slot[[]string]
	Membership cache.Cache
	Details    cache.Cache
}

// NewCaches builds empty caches on the given backend. A nil clock means time.Now.
func NewCaches(ctx context.Context, backend Backend, clock cache.Clock) (*Caches, error) {
	membership, err := newKeyed(ctx, backend, clock)
	if err != nil {
		return nil, fmt.Errorf("error creating membership cache: %w", err)
	}
	details, err := newKeyed(ctx, backend, clock)
	if err != nil {
		membership.CloseContext(ctx)
		return nil, fmt.Errorf("error creating detail cache: %w", err)
	}
	return &Caches{
		Index:      cache.NewSlot[[]IndexEntry](clock),
		Categories: cache.NewSlot[[]string](clock),
		Membership: membership,
		Details:    details,
	}, nil
}

func newKeyed(ctx context.Context, backend Backend, clock cache.Clock) (cache.Cache, error) {
	opts := []cache.Option{cache.WithClock(clock)}
	switch backend {
	case BackendMemory, "":
		return cache.NewInMemory(ctx, opts...), nil
	case BackendSQLite:
		return cache.NewSQLite(ctx, ":memory:", opts...)
	case BackendTiered:
		l2, err := cache.NewSQLite(ctx, ":memory:", opts...)
		if err != nil {
			return nil, err
		}
		return cache.NewComposite(cache.NewInMemory(ctx, opts...), l2), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}

// Close releases the keyed caches.
func (c *Caches) Close(ctx context.Context) error {
	err := c.Membership.CloseContext(ctx)
	if derr := c.Details.CloseContext(ctx); derr != nil && err == nil {
		err = derr
	}
	return err
}
