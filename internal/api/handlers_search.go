// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/analytics"
	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/filter"
	"github.com/gridlhq/flapjack/internal/logging"
	"github.com/gridlhq/flapjack/internal/query"
)

// searchResponse mirrors the Algolia-compatible search response shape.
type searchResponse struct {
	Hits              []map[string]any            `json:"hits"`
	NbHits            uint64                       `json:"nbHits"`
	Page              int                          `json:"page"`
	HitsPerPage       int                          `json:"hitsPerPage"`
	Facets            map[string][]query.FacetCount `json:"facets,omitempty"`
	UserData          []interface{}                `json:"userData,omitempty"`
	AppliedRules      []string                     `json:"appliedRules,omitempty"`
	ProcessingTimeMS  int64                        `json:"processingTimeMS"`
	QueryID           string                       `json:"queryID,omitempty"`
}

// Search handles POST /1/indexes/{name}/query.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	indexName := chi.URLParam(r, "name")
	if err := RequireIndexAccess(r, indexName); err != nil {
		WriteError(w, r, err)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidQuery, "decode search request: %v", err))
		return
	}
	req.applyDefaults()

	var keyFilters string
	if kc := GetKeyContext(r); kc != nil && kc.Key != nil {
		keyFilters = kc.Key.Filters
	}

	th, err := h.tenants.Get(indexName)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	q := query.Query{
		Text:              req.Query,
		Limit:             req.HitsPerPage,
		Offset:            req.Page * req.HitsPerPage,
		MaxValuesPerFacet: req.MaxValuesPerFacet,
		DistinctCount:     req.Distinct,
	}
	for _, expr := range []string{req.Filters, keyFilters} {
		if expr == "" {
			continue
		}
		f, err := filter.Parse(expr)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if q.Filter != nil {
			f = filter.And(*q.Filter, f)
		}
		q.Filter = &f
	}
	for _, name := range req.Facets {
		q.Facets = append(q.Facets, query.FacetRequest{Field: name})
	}
	if req.Sort != "" {
		q.Sort = &query.Sort{Field: req.Sort}
	} else {
		q.Sort = &query.Sort{ByRelevance: true}
	}

	cfg := th.IndexConfig()
	cache := th.FacetCache()
	applyCachePressure(cache, th.FacetCacheBaseSize(), h.memory)
	generation := th.Generation()
	key := cache.Fingerprint(indexName, generation, q)

	result, ok := cache.Get(key)
	if !ok {
		result, err = query.Execute(th.Index(), cfg, th.Synonyms(), th.Rules(), q)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		cache.Put(key, result)
	}

	hits := make([]map[string]any, 0, len(result.Documents))
	for _, sd := range result.Documents {
		hits = append(hits, sd.Document.ToJSON())
	}

	processingTime := time.Since(start).Milliseconds()
	var queryID string
	if req.ClickAnalytics {
		queryID = logging.GenerateRequestID()
	}
	h.publishSearchEvent(r, indexName, &req, queryID, result.Total, processingTime)

	NewResponseWriter(w, r).JSON(searchResponse{
		Hits:             hits,
		NbHits:           result.Total,
		Page:             req.Page,
		HitsPerPage:      req.HitsPerPage,
		Facets:           result.Facets,
		UserData:         result.UserData,
		AppliedRules:     result.AppliedRules,
		ProcessingTimeMS: processingTime,
		QueryID:          queryID,
	})
}

// publishSearchEvent reports the search to the analytics pipeline, if one
// is configured, consulting the experiment assigner first so an active
// A/B test is recorded against the same event. It never fails the
// request: PublishSearch logs and drops an event it cannot publish.
func (h *Handler) publishSearchEvent(r *http.Request, indexName string, req *SearchRequest, queryID string, nbHits uint64, processingTimeMS int64) {
	if h.analytics == nil {
		return
	}

	var userToken, sessionID *string
	if req.UserToken != "" {
		userToken = &req.UserToken
	}

	event := &analytics.SearchEvent{
		TimestampMillis:  time.Now().UnixMilli(),
		QueryID:          queryID,
		Tenant:           indexName,
		Query:            req.Query,
		NbHits:           int(nbHits),
		ProcessingTimeMS: processingTimeMS,
		UserToken:        req.UserToken,
		SourceAddr:       r.RemoteAddr,
		Filters:          req.Filters,
		Facets:           req.Facets,
		Tags:             req.RuleContexts,
		Page:             req.Page,
		HitsPerPage:      req.HitsPerPage,
		HasResults:       nbHits > 0,
		Device:           analytics.ClassifyDevice(r.UserAgent()),
	}

	if assignment, ok := h.assigner.Assign(indexName, indexName, userToken, sessionID, queryID); ok {
		event.ExperimentName = assignment.ExperimentID
		event.VariantID = assignment.Arm
		event.AssignmentMethod = string(assignment.Method)
	}

	h.analytics.PublishSearch(event)
}
