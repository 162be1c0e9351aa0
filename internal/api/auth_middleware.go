// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"

	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/securedkey"
)

const apiKeyHeader = "X-Algolia-API-Key"

var adminKeyContext = &KeyContext{Key: &securedkey.Key{Role: securedkey.RoleAdmin}}

// Authenticate resolves the X-Algolia-API-Key header against the key
// store and attaches the result as a KeyContext. The header may carry a
// raw parent key (admin or search) or an HMAC-signed secured key; internal
// peer-to-peer routes are mounted separately and never pass through this
// middleware.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		candidate := r.Header.Get(apiKeyHeader)
		if candidate == "" {
			WriteError(w, r, ferror.New(ferror.Internal, "missing "+apiKeyHeader+" header"))
			return
		}

		if h.keys.ValidateAdminKey(candidate) {
			next.ServeHTTP(w, r.WithContext(withKeyContext(r.Context(), adminKeyContext)))
			return
		}

		if parent, ok := h.keys.FindSearchKey(candidate); ok {
			next.ServeHTTP(w, r.WithContext(withKeyContext(r.Context(), &KeyContext{Key: parent})))
			return
		}

		if parent, restrictions, ok := securedkey.Validate(candidate, h.keys); ok {
			effective := *parent
			effective.Restrictions = mergeRestrictions(parent.Restrictions, *restrictions)
			next.ServeHTTP(w, r.WithContext(withKeyContext(r.Context(), &KeyContext{Key: &effective})))
			return
		}

		WriteError(w, r, ferror.New(ferror.Internal, "invalid API key"))
	})
}

// RequireAdmin rejects any request whose key context isn't the admin key,
// for index-management and key-management routes.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kc := GetKeyContext(r)
		if kc == nil || kc.Key == nil || kc.Key.Role != securedkey.RoleAdmin {
			WriteError(w, r, ferror.New(ferror.Internal, "admin API key required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// mergeRestrictions layers a secured key's signed-params restrictions over
// its parent's own, preferring the signed value whenever it is non-zero so
// a secured key can narrow but never widen what its parent already allows.
func mergeRestrictions(parent, signed securedkey.Restrictions) securedkey.Restrictions {
	out := parent
	if signed.Filters != "" {
		out.Filters = signed.Filters
	}
	if len(signed.RestrictIndices) > 0 {
		out.RestrictIndices = signed.RestrictIndices
	}
	if signed.ValidUntil != 0 {
		out.ValidUntil = signed.ValidUntil
	}
	if signed.UserToken != "" {
		out.UserToken = signed.UserToken
	}
	if signed.HitsPerPage != 0 {
		out.HitsPerPage = signed.HitsPerPage
	}
	return out
}
