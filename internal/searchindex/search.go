// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package searchindex

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/ferror"
)

// Search runs req against the current reader snapshot. Callers build req
// (query, facets, sort, size/from) themselves; this method only resolves
// which snapshot to query against.
func (i *Index) Search(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	result, err := i.Reader().Search(req)
	if err != nil {
		return nil, ferror.Newf(ferror.Io, "search: %v", err)
	}
	return result, nil
}

// Get retrieves a single document by its identifier, returning ok=false if
// no live document has that ID.
func (i *Index) Get(id string) (*document.Document, bool, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Fields = []string{"*"}
	result, err := i.Search(req)
	if err != nil {
		return nil, false, err
	}
	if len(result.Hits) == 0 {
		return nil, false, nil
	}
	return ReconstructDocument(result.Hits[0]), true, nil
}

// ReconstructDocument rebuilds a document.Document from a bleve hit's
// retrieved stored fields, skipping the hidden _json_filter.* copies used
// only by the filter compiler.
func ReconstructDocument(hit *search.DocumentMatch) *document.Document {
	fields := make(map[string]document.FieldValue, len(hit.Fields))
	for key, raw := range hit.Fields {
		if strings.HasPrefix(key, facetFilterPrefix) {
			continue
		}
		if fv, ok := document.FieldFromJSON(raw); ok {
			fields[key] = fv
		}
	}
	return &document.Document{ID: hit.ID, Fields: fields}
}
