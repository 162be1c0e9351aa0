// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

// IndexConfig carries the subset of a tenant's settings the executor needs.
// The tenant package (which owns tenant.Settings) derives one of these per
// query rather than this package importing tenant directly, keeping the
// import direction tenant -> query and avoiding a cycle with the facet
// cache tenant.Manager holds.
type IndexConfig struct {
	FacetFields           map[string]struct{}
	SearchableFacetFields map[string]struct{}
	QueryType             string // prefixLast, prefixAll, prefixNone
	MaxValuesPerFacet     int
	AttributeForDistinct  string
	MinWordSizeFor1Typo   int
	MinWordSizeFor2Typos  int
	// CustomRanking holds the tenant's custom-ranking expressions in
	// declared order, each of the form "asc(attribute)" or
	// "desc(attribute)". Applied as a tie-breaker after relevance score.
	CustomRanking []string
}
