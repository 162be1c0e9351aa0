// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

import (
	"fmt"
	"sort"

	"github.com/gridlhq/flapjack/internal/document"
)

// facetLimit resolves the effective per-facet value cap: an explicit
// per-query override wins, falling back to the tenant's settings value,
// defaulting to 100, and never exceeding 1000.
func facetLimit(override, settingsDefault int) int {
	limit := settingsDefault
	if override > 0 {
		limit = override
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	return limit
}

// trimFacetCounts caps each facet's value list at limit and sorts it by
// descending count, matching the original engine's trim_facet_counts.
func trimFacetCounts(facets map[string][]FacetCount, limit int) map[string][]FacetCount {
	out := make(map[string][]FacetCount, len(facets))
	for field, counts := range facets {
		sorted := append([]FacetCount(nil), counts...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
		if len(sorted) > limit {
			sorted = sorted[:limit]
		}
		out[field] = sorted
	}
	return out
}

// applyDistinct deduplicates documents sharing the same value of
// attrName, keeping at most distinctCount per group and in original
// (relevance/sort) order. The returned total is the number of distinct
// groups observed, or 0 if every document was skipped (no documents had
// the attribute, or the input was empty) — mirroring apply_distinct's
// group_count rule rather than reporting a stale pre-dedup total.
func applyDistinct(docs []ScoredDocument, attrName string, distinctCount int) ([]ScoredDocument, uint64) {
	if attrName == "" || distinctCount <= 0 {
		return docs, uint64(len(docs))
	}

	seen := make(map[string]int, len(docs))
	deduped := make([]ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		key, ok := distinctKey(doc.Document, attrName)
		if !ok {
			continue
		}
		count := seen[key]
		if count < distinctCount {
			seen[key] = count + 1
			deduped = append(deduped, doc)
		}
	}

	if len(deduped) == 0 {
		return deduped, 0
	}
	return deduped, uint64(len(seen))
}

// distinctKey extracts the grouping key for a document's distinct
// attribute. Only text, facet, integer, and (rounded) float values group;
// every other kind, and a missing field, is skipped entirely.
func distinctKey(doc *document.Document, attrName string) (string, bool) {
	v, ok := doc.Fields[attrName]
	if !ok {
		return "", false
	}
	switch v.Kind {
	case document.KindText:
		return v.Text, true
	case document.KindFacet:
		return v.Facet, true
	case document.KindInteger:
		return fmt.Sprintf("%d", v.Integer), true
	case document.KindFloat:
		return fmt.Sprintf("%d", int64(v.Float+0.5)), true
	default:
		return "", false
	}
}
