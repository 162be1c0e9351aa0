// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

import (
	"encoding/binary"
	"hash/maphash"
	"sync"
)

// FacetCache memoizes Result for repeated identical queries against one
// tenant's current index generation. It is bounded: once full, a new key
// evicts one arbitrary existing entry rather than growing unbounded, since
// facet counts on a hot-path attribute/value combination are cheap to
// recompute and the cache exists to absorb bursts, not to be exhaustive.
type FacetCache struct {
	mu      sync.Mutex
	seed    maphash.Seed
	maxSize int
	entries map[uint64]*Result
}

// NewFacetCache builds a cache holding at most maxSize entries.
func NewFacetCache(maxSize int) *FacetCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &FacetCache{
		seed:    maphash.MakeSeed(),
		maxSize: maxSize,
		entries: make(map[uint64]*Result),
	}
}

// Fingerprint builds a cache key from the tenant name, index generation
// (bumped on every write so a stale cache entry never outlives its data),
// and the query shape.
func (c *FacetCache) Fingerprint(tenantID string, generation uint64, q Query) uint64 {
	var h maphash.Hash
	h.SetSeed(c.seed)
	h.WriteString(tenantID)
	var gen [8]byte
	binary.LittleEndian.PutUint64(gen[:], generation)
	h.Write(gen[:])
	h.WriteString(q.Text)
	h.WriteString(q.Context)
	writeInt := func(n int) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(int64(n)))
		h.Write(b[:])
	}
	writeInt(q.Limit)
	writeInt(q.Offset)
	writeInt(q.MaxValuesPerFacet)
	writeInt(q.DistinctCount)
	for _, f := range q.Facets {
		h.WriteString(f.Field)
	}
	if q.Sort != nil {
		h.WriteString(q.Sort.Field)
		writeInt(int(q.Sort.Order))
	}
	if q.Filter != nil {
		h.WriteString(filterFingerprint(*q.Filter))
	}
	return h.Sum64()
}

// Get returns the cached result for key, if present.
func (c *FacetCache) Get(key uint64) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok
}

// Put stores result under key, evicting one existing entry first if the
// cache is at capacity.
func (c *FacetCache) Put(key uint64, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		for evict := range c.entries {
			delete(c.entries, evict)
			break
		}
	}
	c.entries[key] = result
}

// Capacity returns the cache's current maximum size.
func (c *FacetCache) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxSize
}

// Resize changes the cache's maximum size, evicting arbitrary entries
// until it fits when shrinking. Callers use this to halve capacity under
// Elevated memory pressure (Section 4.1) and restore it once pressure
// subsides.
func (c *FacetCache) Resize(maxSize int) {
	if maxSize <= 0 {
		maxSize = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	for len(c.entries) > c.maxSize {
		for evict := range c.entries {
			delete(c.entries, evict)
			break
		}
	}
}
