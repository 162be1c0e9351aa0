// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package query implements the Query Executor: text search against a
// tenant's inverted index, filter compilation, synonym expansion, query
// rule firing, facet counting, distinct grouping, and pagination.
package query

import (
	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/filter"
)

// SortOrder is the direction of a ByField sort.
type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

// Sort picks relevance ranking or a single sort field.
type Sort struct {
	ByRelevance bool
	Field       string
	Order       SortOrder
}

// FacetRequest asks for value counts on one field.
type FacetRequest struct {
	Field string
}

// Query is one search request against a tenant index.
type Query struct {
	Text              string
	Filter            *filter.Filter
	Sort              *Sort
	Limit             int
	Offset            int
	Facets            []FacetRequest
	MaxValuesPerFacet int    // 0 means "use the tenant's settings default"
	DistinctCount     int    // 0 means no distinct grouping
	Context           string // query-rule evaluation context
}

// FacetCount is one facet value and its matching document count.
type FacetCount struct {
	Value string
	Count uint64
}

// ScoredDocument pairs a reconstructed document with its relevance score.
type ScoredDocument struct {
	Document *document.Document
	Score    float64
}

// Result is what the executor returns for one Query.
type Result struct {
	Documents    []ScoredDocument
	Total        uint64
	Facets       map[string][]FacetCount
	UserData     []interface{}
	AppliedRules []string
}
