// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package securedkey implements Algolia-compatible API keys: plain parent
// keys (search keys persisted with their plaintext value, and an admin key
// held only as a bcrypt hash), and HMAC-signed
// secured keys derived from a parent's plaintext with query-scoping
// restrictions (filters, restrictIndices, validUntil, userToken,
// hitsPerPage) baked into the signature.
package securedkey

import (
	"strings"
	"time"
)

// Role distinguishes a parent key's privilege level. Only Search keys may
// be used to derive secured keys; an Admin key presented as a parent is
// rejected.
type Role string

const (
	RoleSearch Role = "search"
	RoleAdmin  Role = "admin"
)

// Key is one persisted parent API key. Search keys carry their plaintext
// value in Secret: HMAC-signature verification on a derived secured key
// needs the original parent bytes, not a one-way hash of them, mirroring
// the original engine's KeyStore persisting each search key's plaintext
// alongside its metadata. Only the admin key is exempt, since it is
// never used to derive a secured key and is hashed separately in Store.
type Key struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Role        Role      `json:"role"`
	Secret      string    `json:"secret"`
	CreatedAt   time.Time `json:"createdAt"`

	// Restrictions carried directly on a non-derived key (as opposed to
	// ones baked into a secured key's signed params).
	Restrictions
}

// Restrictions scope what a key (parent or derived) is allowed to do.
// All fields are optional; a zero value imposes no restriction.
type Restrictions struct {
	Filters         string   `json:"filters,omitempty"`
	RestrictIndices []string `json:"restrictIndices,omitempty"`
	ValidUntil      int64    `json:"validUntil,omitempty"` // unix seconds, 0 = no expiry
	UserToken       string   `json:"userToken,omitempty"`
	HitsPerPage     int      `json:"hitsPerPage,omitempty"`
}

// Expired reports whether ValidUntil has passed.
func (r Restrictions) Expired(now time.Time) bool {
	return r.ValidUntil != 0 && now.Unix() > r.ValidUntil
}

// AllowsIndex reports whether this key's RestrictIndices (if any) permit
// accessing indexName, honoring a trailing "*" as a prefix wildcard (e.g.
// "dev_*" matches "dev_products" but not "prod_products").
func (k *Key) AllowsIndex(indexName string) bool {
	return indexPatternMatches(k.Restrictions.RestrictIndices, indexName)
}

func indexPatternMatches(patterns []string, indexName string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(indexName, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if p == indexName {
			return true
		}
	}
	return false
}
