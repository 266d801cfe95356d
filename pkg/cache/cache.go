// Package cache implements the OID-keyed object cache: a concurrent index
// over in-memory Entry values plus a pluggable eviction policy (LRU, MRU)
// that decides what to reclaim when the cache is asked to shed entries.
package cache

import (
	"sync"

	"github.com/raleighsl/raleighsl/pkg/metrics"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// Entry is one cached object: an opaque value owned by the caller (the
// exec layer stashes its *exec.Object here) plus the bookkeeping the cache
// and its eviction policy need. RefCount counts references taken by
// TryInsert and Lookup and not yet given back with Release. The eviction
// policies do not consult it themselves; an EvictPredicate passed to Reclaim
// can refuse entries whose RefCount is nonzero.
type Entry struct {
	OID      types.OID
	Value    any
	RefCount int32

	// policyLink is opaque storage the active Policy may use (e.g. the
	// LRU/MRU doubly-linked recency list node). Only the policy touches it.
	policyLink *listNode
}

// EvictPredicate decides whether an entry is allowed to be evicted right
// now — e.g. refusing to evict an object with a pending transaction or a
// nonzero RefCount. The policy consults it before reclaiming anything.
type EvictPredicate func(e *Entry) bool

// Policy is the pluggable eviction vtable. Update is called whenever an
// entry is touched (inserted or looked up) so recency-based policies can
// reposition it; Remove un-tracks an entry being deleted outright; Reclaim
// asks the policy to free up to n entries, consulting pred, and returns the
// OIDs it evicted (the cache removes them from its index while still
// holding its mutex); Dump returns OIDs in eviction order, for diagnostics.
type Policy interface {
	Create(e *Entry)
	Update(e *Entry)
	Remove(e *Entry)
	Reclaim(n int, pred EvictPredicate) []types.OID
	Dump() []types.OID
}

// Cache is the concurrent OID-keyed object cache. A single mutex guards
// both the index and the policy's linkage; the reference implementation
// uses a ticket lock around policy state with a separately-locked index,
// but since the cache's own operations are int-compare-and-map-access
// cheap, one mutex is simpler here without changing observable behavior.
type Cache struct {
	mu     sync.Mutex
	index  map[types.OID]*Entry
	policy Policy
}

// New builds an empty cache using policy for eviction decisions.
func New(policy Policy) *Cache {
	return &Cache{
		index:  make(map[types.OID]*Entry),
		policy: policy,
	}
}

// TryInsert adds a fresh entry for oid holding value, returning it with
// RefCount 1 so it stays reachable while the caller holds that reference. If
// oid is already present, TryInsert returns the existing entry with its
// RefCount incremented instead and ok is false.
func (c *Cache) TryInsert(oid types.OID, value any) (e *Entry, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, found := c.index[oid]; found {
		existing.RefCount++
		c.policy.Update(existing)
		return existing, false
	}
	e = &Entry{OID: oid, Value: value, RefCount: 1}
	c.index[oid] = e
	c.policy.Create(e)
	metrics.CacheEntries.Set(float64(len(c.index)))
	return e, true
}

// Lookup returns the entry for oid, incrementing its RefCount and notifying
// the eviction policy of the touch. The caller must call Release when done.
func (c *Cache) Lookup(oid types.OID) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[oid]
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.Inc()
	e.RefCount++
	c.policy.Update(e)
	return e, true
}

// Release gives up a reference taken by Lookup or TryInsert.
func (c *Cache) Release(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.RefCount > 0 {
		e.RefCount--
	}
}

// Remove unconditionally drops oid from the cache and its eviction policy,
// regardless of RefCount. Callers use this once an object is known to be
// gone for good (e.g. after unlink), not as a substitute for eviction.
func (c *Cache) Remove(oid types.OID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.index[oid]
	if !ok {
		return
	}
	delete(c.index, oid)
	c.policy.Remove(e)
	metrics.CacheEntries.Set(float64(len(c.index)))
}

// Reclaim asks the eviction policy to free up to n entries not excluded by
// pred, removes them from the index, and returns how many were evicted.
// The policy's Reclaim, every pred call and the index removal all run with
// the cache mutex held.
func (c *Cache) Reclaim(n int, pred EvictPredicate) int {
	c.mu.Lock()
	victims := c.policy.Reclaim(n, pred)
	for _, oid := range victims {
		delete(c.index, oid)
	}
	metrics.CacheEntries.Set(float64(len(c.index)))
	c.mu.Unlock()

	metrics.CacheEvictionsTotal.Add(float64(len(victims)))
	return len(victims)
}

// Dump returns the OIDs the eviction policy currently tracks, in its
// eviction order (the entry it would reclaim first comes first).
func (c *Cache) Dump() []types.OID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Dump()
}

// Len reports the number of entries currently indexed.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}
