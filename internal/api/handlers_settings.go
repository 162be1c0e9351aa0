// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/tenant"
)

// knownSettingsFields lists the JSON keys tenant.Settings recognizes, used
// to echo anything else back under unsupportedParams rather than silently
// dropping it.
var knownSettingsFields = map[string]bool{
	"attributesForFaceting":   true,
	"searchableAttributes":    true,
	"ranking":                 true,
	"customRanking":           true,
	"attributesToRetrieve":    true,
	"unretrievableAttributes": true,
	"attributesToHighlight":   true,
	"highlightPreTag":         true,
	"highlightPostTag":        true,
	"hitsPerPage":             true,
	"minWordSizefor1Typo":     true,
	"minWordSizefor2Typos":    true,
	"maxValuesPerFacet":       true,
	"paginationLimitedTo":     true,
	"queryType":               true,
	"attributeForDistinct":    true,
	"distinct":                true,
	"embedders":               true,
	"mode":                    true,
}

// GetSettings handles GET /1/indexes/{name}/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	indexName := chi.URLParam(r, "name")
	if err := RequireIndexAccess(r, indexName); err != nil {
		WriteError(w, r, err)
		return
	}
	th, err := h.tenants.Get(indexName)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(th.Settings())
}

// PostSettings handles POST /1/indexes/{name}/settings. Unknown keys are
// echoed back under unsupportedParams with a 207 status rather than
// rejecting the whole request, matching the Algolia-compatible surface's
// forward-compatibility contract.
func (h *Handler) PostSettings(w http.ResponseWriter, r *http.Request) {
	indexName := chi.URLParam(r, "name")
	if err := RequireIndexAccess(r, indexName); err != nil {
		WriteError(w, r, err)
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidSchema, "decode settings: %v", err))
		return
	}

	var unsupported []string
	known := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if knownSettingsFields[k] {
			known[k] = v
		} else {
			unsupported = append(unsupported, k)
		}
	}

	knownBody, err := json.Marshal(known)
	if err != nil {
		WriteError(w, r, ferror.Newf(ferror.Internal, "re-marshal known settings: %v", err))
		return
	}
	var patch tenant.Settings
	if err := json.Unmarshal(knownBody, &patch); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidSchema, "decode settings: %v", err))
		return
	}

	updated, err := h.tenants.UpdateSettings(indexName, patch)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	body := map[string]any{"settings": updated}
	if len(unsupported) > 0 {
		body["unsupportedParams"] = unsupported
		NewResponseWriter(w, r).writeJSON(http.StatusMultiStatus, body)
		return
	}
	NewResponseWriter(w, r).JSON(body)
}
