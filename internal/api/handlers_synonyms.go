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

// PutSynonym handles PUT /1/indexes/{name}/synonyms/{objectID}.
func (h *Handler) PutSynonym(w http.ResponseWriter, r *http.Request) {
	indexName := chi.URLParam(r, "name")
	if err := RequireIndexAccess(r, indexName); err != nil {
		WriteError(w, r, err)
		return
	}

	var req SynonymRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidSchema, "decode synonym: %v", err))
		return
	}
	req.ObjectID = chi.URLParam(r, "objectID")
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidSchema, "validate synonym: %v", err))
		return
	}

	th, err := h.tenants.Get(indexName)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	th.Synonyms().Insert(rules.Synonym{
		ObjectID:     req.ObjectID,
		Type:         rules.SynonymType(req.Type),
		Synonyms:     req.Synonyms,
		Input:        req.Input,
		Word:         req.Word,
		Corrections:  req.Corrections,
		Placeholder:  req.Placeholder,
		Replacements: req.Replacements,
	})
	if err := th.Synonyms().Save(); err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(map[string]string{"objectID": req.ObjectID})
}

// GetSynonym handles GET /1/indexes/{name}/synonyms/{objectID}.
func (h *Handler) GetSynonym(w http.ResponseWriter, r *http.Request) {
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
	syn, ok := th.Synonyms().Get(chi.URLParam(r, "objectID"))
	if !ok {
		WriteError(w, r, ferror.Newf(ferror.TenantNotFound, "synonym %q not found", chi.URLParam(r, "objectID")))
		return
	}
	NewResponseWriter(w, r).JSON(syn)
}

// DeleteSynonym handles DELETE /1/indexes/{name}/synonyms/{objectID}.
func (h *Handler) DeleteSynonym(w http.ResponseWriter, r *http.Request) {
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
	if !th.Synonyms().Remove(chi.URLParam(r, "objectID")) {
		WriteError(w, r, ferror.Newf(ferror.TenantNotFound, "synonym %q not found", chi.URLParam(r, "objectID")))
		return
	}
	if err := th.Synonyms().Save(); err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// SearchSynonyms handles POST /1/indexes/{name}/synonyms/search.
func (h *Handler) SearchSynonyms(w http.ResponseWriter, r *http.Request) {
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
		Query       string             `json:"query"`
		Type        rules.SynonymType  `json:"type"`
		Page        int                `json:"page"`
		HitsPerPage int                `json:"hitsPerPage"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.HitsPerPage == 0 {
		body.HitsPerPage = 100
	}

	hits, total := th.Synonyms().Search(body.Query, body.Type, body.Page, body.HitsPerPage)
	NewResponseWriter(w, r).JSON(map[string]any{"hits": hits, "nbHits": total})
}
