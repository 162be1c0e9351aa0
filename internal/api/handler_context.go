// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// handler_context.go provides helpers for extracting the authenticated
// secured-key context from a request and checking it against the index the
// request targets, mirroring the Algolia-compatible X-Algolia-API-Key /
// X-Algolia-Application-Id header pair.
package api

import (
	"context"
	"net/http"

	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/securedkey"
)

type ctxKey int

const keyContextKey ctxKey = iota

// KeyContext carries the authenticated key's capabilities for the lifetime
// of one request.
type KeyContext struct {
	Key *securedkey.Key
}

// CanAccessIndex reports whether the authenticated key is scoped to the
// named index, honoring the trailing-wildcard restrictIndices convention.
func (kc *KeyContext) CanAccessIndex(indexName string) bool {
	if kc == nil || kc.Key == nil {
		return false
	}
	return kc.Key.AllowsIndex(indexName)
}

// withKeyContext stores kc on the request context.
func withKeyContext(ctx context.Context, kc *KeyContext) context.Context {
	return context.WithValue(ctx, keyContextKey, kc)
}

// GetKeyContext retrieves the authenticated key context, if any.
func GetKeyContext(r *http.Request) *KeyContext {
	kc, _ := r.Context().Value(keyContextKey).(*KeyContext)
	return kc
}

// RequireIndexAccess returns a ferror.Error if the request's key context
// cannot access indexName, nil otherwise.
func RequireIndexAccess(r *http.Request, indexName string) error {
	kc := GetKeyContext(r)
	if kc == nil {
		return ferror.New(ferror.Internal, "missing key context")
	}
	if !kc.CanAccessIndex(indexName) {
		return ferror.Newf(ferror.TenantNotFound, "key is not scoped to index %q", indexName)
	}
	return nil
}
