// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

import "testing"

func TestFacetCacheResizeEvictsDownToNewCapacity(t *testing.T) {
	c := NewFacetCache(4)
	for i := uint64(0); i < 4; i++ {
		c.Put(i, &Result{})
	}
	c.Resize(2)
	if c.Capacity() != 2 {
		t.Fatalf("expected capacity 2, got %d", c.Capacity())
	}
	count := 0
	for i := uint64(0); i < 4; i++ {
		if _, ok := c.Get(i); ok {
			count++
		}
	}
	if count > 2 {
		t.Fatalf("expected at most 2 surviving entries, got %d", count)
	}
}

func TestFacetCacheResizeGrowBackAllowsMoreEntries(t *testing.T) {
	c := NewFacetCache(1)
	c.Put(1, &Result{})
	c.Resize(4)
	c.Put(2, &Result{})
	c.Put(3, &Result{})
	if _, ok := c.Get(1); !ok {
		t.Fatal("expected entry 1 to survive a grow-back resize")
	}
	if _, ok := c.Get(2); !ok {
		t.Fatal("expected entry 2 to be admitted after growing capacity")
	}
}
