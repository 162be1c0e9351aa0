// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package searchindex wraps github.com/blevesearch/bleve/v2 as the
// per-tenant inverted index: schema mapping, the CJK-aware tokenizer, and
// upsert/delete/commit semantics with reload-after-commit reader
// visibility.
package searchindex

import (
	"fmt"
	"regexp"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

const tokenizerName = "flapjack_cjk"
const analyzerName = "flapjack_text"

// facetFilterPrefix namespaces the hidden keyword-indexed copy of every
// facet-like string field, matching the original engine's `_json_filter.`
// key so the filter compiler can target it directly.
const facetFilterPrefix = "_json_filter."

// facetLikePattern matches short, path-or-word shaped strings that route to
// the facet field in addition to the free-text field.
var facetLikePattern = regexp.MustCompile(`^[\w/-]+$`)

// IsFacetLike reports whether s should be indexed as a facet value: short
// (<=32 bytes) and composed only of word characters, slashes, and hyphens.
func IsFacetLike(s string) bool {
	return len(s) <= 32 && facetLikePattern.MatchString(s)
}

// FacetFieldName returns the hidden keyword field name a facet-like string
// value is additionally indexed under.
func FacetFieldName(field string) string {
	return facetFilterPrefix + field
}

// BuildMapping constructs the dynamic index mapping shared by every tenant.
// Fields are dynamically typed per-document by the converter rather than
// declared up front; this mapping only registers the custom analyzer and
// sets document-level defaults.
func BuildMapping() (mapping.IndexMapping, error) {
	m := bleve.NewIndexMapping()

	if err := m.AddCustomTokenizer(tokenizerName, map[string]interface{}{
		"type": tokenizerTypeName,
	}); err != nil {
		return nil, fmt.Errorf("register tokenizer: %w", err)
	}
	if err := m.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":          "custom",
		"tokenizer":     tokenizerName,
		"token_filters": []string{"to_lower"},
	}); err != nil {
		return nil, fmt.Errorf("register analyzer: %w", err)
	}

	m.DefaultAnalyzer = analyzerName

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = true
	docMapping.DefaultAnalyzer = analyzerName
	m.DefaultMapping = docMapping

	// The hidden _json_filter sub-document holds an untokenized (keyword)
	// copy of every facet-like string field, so the filter compiler's
	// TermQuery clauses match whole values rather than analyzed tokens.
	filterMapping := bleve.NewDocumentMapping()
	filterMapping.Dynamic = true
	filterMapping.DefaultAnalyzer = "keyword"
	m.AddDocumentMapping(facetFilterPrefix[:len(facetFilterPrefix)-1], filterMapping)

	return m, nil
}
