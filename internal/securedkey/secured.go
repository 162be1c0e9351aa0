// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package securedkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// GenerateSecuredKey signs params with parentSecret's HMAC-SHA256 and
// returns the Algolia-compatible wire format: base64(hex(hmac) + params).
func GenerateSecuredKey(parentSecret, params string) string {
	mac := hmac.New(sha256.New, []byte(parentSecret))
	mac.Write([]byte(params))
	digest := hex.EncodeToString(mac.Sum(nil))
	return base64.StdEncoding.EncodeToString([]byte(digest + params))
}

const hmacHexLen = sha256.Size * 2 // 64 hex chars for a 32-byte digest

// Validate decodes a secured key, verifies its HMAC against every
// search-role parent in store, and returns the parent key plus the
// decoded restrictions if valid. It rejects: malformed base64, a digest
// portion shorter than 64 hex chars, an unknown or non-search parent, a
// tampered signature, and an expired validUntil.
func Validate(secured string, store *Store) (*Key, *Restrictions, bool) {
	if secured == "" {
		return nil, nil, false
	}

	decoded, err := base64.StdEncoding.DecodeString(secured)
	if err != nil {
		return nil, nil, false
	}
	if len(decoded) < hmacHexLen {
		return nil, nil, false
	}

	digestHex := string(decoded[:hmacHexLen])
	params := string(decoded[hmacHexLen:])
	if _, err := hex.DecodeString(digestHex); err != nil {
		return nil, nil, false
	}

	for _, key := range store.List() {
		if key.Role != RoleSearch {
			continue
		}
		mac := hmac.New(sha256.New, []byte(key.Secret))
		mac.Write([]byte(params))
		expected := hex.EncodeToString(mac.Sum(nil))
		if subtle.ConstantTimeCompare([]byte(expected), []byte(digestHex)) != 1 {
			continue
		}

		restrictions, ok := parseRestrictions(params)
		if !ok {
			return nil, nil, false
		}
		if restrictions.Expired(time.Now()) {
			return nil, nil, false
		}
		return key, &restrictions, true
	}
	return nil, nil, false
}

// parseRestrictions decodes the secured key's signed query-string params
// into a Restrictions value.
func parseRestrictions(params string) (Restrictions, bool) {
	values, err := url.ParseQuery(params)
	if err != nil {
		return Restrictions{}, false
	}

	var r Restrictions
	r.Filters = values.Get("filters")
	r.UserToken = values.Get("userToken")

	if v := values.Get("validUntil"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Restrictions{}, false
		}
		r.ValidUntil = n
	}
	if v := values.Get("hitsPerPage"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Restrictions{}, false
		}
		r.HitsPerPage = n
	}
	if v := values.Get("restrictIndices"); v != "" {
		var list []string
		if err := json.Unmarshal([]byte(v), &list); err != nil {
			return Restrictions{}, false
		}
		r.RestrictIndices = list
	}
	return r, true
}
