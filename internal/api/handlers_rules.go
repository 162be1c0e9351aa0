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
	"github.com/gridlhq/flapjack/internal/rules"
)

// PutRule handles PUT /1/indexes/{name}/rules/{objectID}.
func (h *Handler) PutRule(w http.ResponseWriter, r *http.Request) {
	indexName := chi.URLParam(r, "name")
	if err := RequireIndexAccess(r, indexName); err != nil {
		WriteError(w, r, err)
		return
	}

	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidSchema, "decode rule: %v", err))
		return
	}
	rule.ObjectID = chi.URLParam(r, "objectID")

	th, err := h.tenants.Get(indexName)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	th.Rules().Insert(rule)
	if err := th.Rules().Save(); err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(map[string]string{"objectID": rule.ObjectID})
}

// GetRule handles GET /1/indexes/{name}/rules/{objectID}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
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
	rule, ok := th.Rules().Get(chi.URLParam(r, "objectID"))
	if !ok {
		WriteError(w, r, ferror.Newf(ferror.TenantNotFound, "rule %q not found", chi.URLParam(r, "objectID")))
		return
	}
	NewResponseWriter(w, r).JSON(rule)
}

// DeleteRule handles DELETE /1/indexes/{name}/rules/{objectID}.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
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
	if !th.Rules().Remove(chi.URLParam(r, "objectID")) {
		WriteError(w, r, ferror.Newf(ferror.TenantNotFound, "rule %q not found", chi.URLParam(r, "objectID")))
		return
	}
	if err := th.Rules().Save(); err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// SearchRules handles POST /1/indexes/{name}/rules/search.
func (h *Handler) SearchRules(w http.ResponseWriter, r *http.Request) {
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

	var body struct {
		Query       string `json:"query"`
		Page        int    `json:"page"`
		HitsPerPage int    `json:"hitsPerPage"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.HitsPerPage == 0 {
		body.HitsPerPage = 100
	}

	hits, total := th.Rules().Search(body.Query, body.Page, body.HitsPerPage)
	NewResponseWriter(w, r).JSON(map[string]any{"hits": hits, "nbHits": total})
}
