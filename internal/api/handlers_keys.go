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
	"github.com/gridlhq/flapjack/internal/securedkey"
)

// CreateKey handles POST /1/keys, provisioning a new search-role parent
// key. Only the admin key may call this route (enforced by RequireAdmin).
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidSchema, "decode key request: %v", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidSchema, "validate key request: %v", err))
		return
	}

	key, err := h.keys.CreateKey(req.Description, securedkey.Restrictions{
		Filters:         req.Filters,
		RestrictIndices: req.RestrictIndices,
		ValidUntil:      req.ValidUntil,
		UserToken:       req.UserToken,
		HitsPerPage:     req.HitsPerPage,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(key)
}

// ListKeys handles GET /1/keys.
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).JSON(map[string]any{"keys": h.keys.List()})
}

// DeleteKey handles DELETE /1/keys/{keyID}.
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := h.keys.DeleteKey(chi.URLParam(r, "keyID")); err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
