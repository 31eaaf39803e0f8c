package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositePanicOnEmpty(t *testing.T) {
	assert.Panics(t, func() {
		NewComposite()
	})
}

func TestCompositeGetOrder(t *testing.T) {
	ctx := context.Background()
	l1 := NewInMemory(ctx)
	l2 := NewInMemory(ctx)
	c := NewComposite(l1, l2)
	defer c.CloseContext(ctx)

	l1.SetContext(ctx, "key", "from-l1", time.Minute)
	l2.SetContext(ctx, "key", "from-l2", time.Minute)

	found, val, err := c.GetContext(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "from-l1", val)
}

func TestCompositeSetAndExpireAll(t *testing.T) {
	ctx := context.Background()
	l1 := NewInMemory(ctx)
	l2 := NewInMemory(ctx)
	c := NewComposite(l1, l2)
	defer c.CloseContext(ctx)

	assert.NoError(t, c.SetContext(ctx, "key", "shared", time.Minute))
	for _, l := range []Cache{l1, l2} {
		found, val, err := l.GetContext(ctx, "key")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "shared", val)
	}

	found, err := c.ExpireContext(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	found, _, err = c.GetContext(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCompositeHits(t *testing.T) {
	ctx := context.Background()
	l1 := NewInMemory(ctx)
	c := NewComposite(l1, NewInMemory(ctx))
	defer c.CloseContext(ctx)

	assert.NoError(t, c.SetContext(ctx, "key", "value", time.Minute))
	c.GetContext(ctx, "key")
	c.GetContext(ctx, "key")

	ok, hits := c.HitsContext(ctx, "key")
	assert.True(t, ok)
	assert.Equal(t, 2, hits)
}

func TestCompositeMixedCacheTypes(t *testing.T) {
	ctx := context.Background()
	l1 := NewInMemory(ctx)
	l2, err := NewSQLite(ctx, ":memory:")
	require.NoError(t, err)
	c := NewComposite(l1, l2)
	defer c.CloseContext(ctx)

	l2.SetContext(ctx, "key", "sqlite-value", time.Minute)

	ok, val, err := Get[string](ctx, c, "key")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sqlite-value", val)

	found, _, err := c.GetContext(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCompositeRefillsEarlierCaches(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	l1 := NewInMemory(ctx, WithClock(clock.Now))
	l2, err := NewSQLite(ctx, ":memory:", WithClock(clock.Now))
	require.NoError(t, err)
	c := NewComposite(l1, l2)
	defer c.CloseContext(ctx)

	require.NoError(t, l2.SetContext(ctx, "id:25", "pikachu", 10*time.Minute))
	clock.Advance(4 * time.Minute)

	ok, val, err := Get[string](ctx, c, "id:25")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "pikachu", val)

	ok, val, err = Get[string](ctx, l1, "id:25")
	require.NoError(t, err)
	assert.True(t, ok, "l2 hit copied into l1")
	assert.Equal(t, "pikachu", val)

	// the copy keeps the remaining six minutes, not a fresh TTL
	clock.Advance(6 * time.Minute)
	found, _, err := l1.GetContext(ctx, "id:25")
	require.NoError(t, err)
	assert.False(t, found)
}

// opaqueCache hides the remaining TTL of the cache it wraps.
type opaqueCache struct {
	Cache
}

func TestCompositeSkipsRefillWithoutTTL(t *testing.T) {
	ctx := context.Background()
	l1 := NewInMemory(ctx)
	l2 := NewInMemory(ctx)
	c := NewComposite(l1, opaqueCache{l2})
	defer c.CloseContext(ctx)

	require.NoError(t, l2.SetContext(ctx, "key", "value", time.Minute))
	found, val, err := c.GetContext(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", val)

	found, _ = l1.HitsContext(ctx, "key")
	assert.False(t, found)
}
