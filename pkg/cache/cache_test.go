package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raleighsl/raleighsl/pkg/cache"
	"github.com/raleighsl/raleighsl/pkg/types"
)

func TestTryInsertAndLookup(t *testing.T) {
	c := cache.New(cache.NewLRU())

	e, ok := c.TryInsert(1, "value")
	require.True(t, ok)
	assert.Equal(t, "value", e.Value)
	assert.EqualValues(t, 1, e.RefCount, "a fresh insert must hold its own reference")

	dup, ok := c.TryInsert(1, "other")
	assert.False(t, ok, "re-inserting an existing oid must not replace it")
	assert.Same(t, e, dup)
	assert.EqualValues(t, 2, dup.RefCount, "a duplicate insert increments the existing entry's refcount")
	c.Release(dup)

	got, found := c.Lookup(1)
	require.True(t, found)
	assert.Equal(t, "value", got.Value)
	assert.EqualValues(t, 2, got.RefCount)
	c.Release(got)
	c.Release(e)

	_, found = c.Lookup(2)
	assert.False(t, found)
}

func TestLRUReclaimsLeastRecentlyTouchedFirst(t *testing.T) {
	c := cache.New(cache.NewLRU())
	c.TryInsert(1, nil)
	c.TryInsert(2, nil)
	c.TryInsert(3, nil)

	// Touch 1, making 2 the least-recently-touched.
	e1, _ := c.Lookup(1)
	c.Release(e1)

	evicted := c.Reclaim(1, nil)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 2, c.Len())

	_, found := c.Lookup(2)
	assert.False(t, found, "2 should have been the LRU victim")
}

func TestMRUReclaimsMostRecentlyTouchedFirst(t *testing.T) {
	c := cache.New(cache.NewMRU())
	c.TryInsert(1, nil)
	c.TryInsert(2, nil)
	c.TryInsert(3, nil)

	e3, _ := c.Lookup(3)
	c.Release(e3)

	evicted := c.Reclaim(1, nil)
	assert.Equal(t, 1, evicted)

	_, found := c.Lookup(3)
	assert.False(t, found, "3 should have been the MRU victim")
}

func TestReclaimHonorsPredicate(t *testing.T) {
	c := cache.New(cache.NewLRU())
	c.TryInsert(1, nil)
	c.TryInsert(2, nil)

	pinned := types.OID(1)
	pred := func(e *cache.Entry) bool { return e.OID != pinned }

	evicted := c.Reclaim(2, pred)
	assert.Equal(t, 1, evicted)

	_, found := c.Lookup(1)
	assert.True(t, found, "predicate should have protected oid 1")
}

func TestRemoveDropsEntryRegardlessOfRefCount(t *testing.T) {
	c := cache.New(cache.NewLRU())
	c.TryInsert(1, nil)
	_, _ = c.Lookup(1) // RefCount now 2, entry still in active use

	c.Remove(1)
	assert.Equal(t, 0, c.Len())
	_, found := c.Lookup(1)
	assert.False(t, found)
}
