// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package tenant implements the Index Manager: tenant lifecycle, the
// global write budget, per-tenant write queues and task records, and the
// settings and facet caches that sit in front of the query
// executor.
package tenant

import (
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/ferror"
)

// DistinctValue is either a boolean or an integer count in the wire format,
// mirroring the original engine's untagged union.
type DistinctValue struct {
	Bool    *bool
	Integer *uint32
}

// AsCount normalizes DistinctValue to a group-size count: false/absent is 0,
// true is 1, an explicit integer is itself.
func (d DistinctValue) AsCount() uint32 {
	if d.Integer != nil {
		return *d.Integer
	}
	if d.Bool != nil && *d.Bool {
		return 1
	}
	return 0
}

func (d DistinctValue) MarshalJSON() ([]byte, error) {
	if d.Integer != nil {
		return json.Marshal(*d.Integer)
	}
	if d.Bool != nil {
		return json.Marshal(*d.Bool)
	}
	return json.Marshal(false)
}

func (d *DistinctValue) UnmarshalJSON(data []byte) error {
	var n uint32
	if err := json.Unmarshal(data, &n); err == nil {
		d.Integer = &n
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		d.Bool = &b
		return nil
	}
	return ferror.New(ferror.Json, "distinct must be a boolean or an integer")
}

// Settings is per-tenant configuration controlling facets, search
// attributes, ranking, pagination, and typo tolerance.
type Settings struct {
	AttributesForFaceting     []string          `json:"attributesForFaceting,omitempty"`
	SearchableAttributes      []string          `json:"searchableAttributes,omitempty"`
	Ranking                   []string          `json:"ranking,omitempty"`
	CustomRanking             []string          `json:"customRanking,omitempty"`
	AttributesToRetrieve      []string          `json:"attributesToRetrieve,omitempty"`
	UnretrievableAttributes   []string          `json:"unretrievableAttributes,omitempty"`
	AttributesToHighlight     []string          `json:"attributesToHighlight,omitempty"`
	HighlightPreTag           string            `json:"highlightPreTag,omitempty"`
	HighlightPostTag          string            `json:"highlightPostTag,omitempty"`
	HitsPerPage               int               `json:"hitsPerPage"`
	MinWordSizeFor1Typo       int               `json:"minWordSizefor1Typo"`
	MinWordSizeFor2Typos      int               `json:"minWordSizefor2Typos"`
	MaxValuesPerFacet         int               `json:"maxValuesPerFacet"`
	PaginationLimitedTo       int               `json:"paginationLimitedTo"`
	QueryType                 string            `json:"queryType"`
	AttributeForDistinct      string            `json:"attributeForDistinct,omitempty"`
	Distinct                  DistinctValue     `json:"distinct,omitempty"`
	Embedders                 map[string]string `json:"embedders,omitempty"`
	Mode                      string            `json:"mode,omitempty"`
	Version                   int               `json:"version"`
}

// DefaultSettings matches the original engine's Default impl.
func DefaultSettings() Settings {
	return Settings{
		Ranking:              []string{"typo", "geo", "words", "filters", "proximity", "attribute", "exact", "custom"},
		HighlightPreTag:      "<em>",
		HighlightPostTag:     "</em>",
		HitsPerPage:          20,
		MinWordSizeFor1Typo:  4,
		MinWordSizeFor2Typos: 8,
		MaxValuesPerFacet:    100,
		PaginationLimitedTo:  1000,
		QueryType:            "prefixLast",
		Version:              1,
	}
}

// parseFacetModifier strips the filterOnly(...)/searchable(...)/
// afterDistinct(...) wrapper from an attributesForFaceting entry.
func parseFacetModifier(attr string) string {
	for _, prefix := range []string{"filterOnly(", "searchable(", "afterDistinct("} {
		if stripped, ok := strings.CutPrefix(attr, prefix); ok {
			return strings.TrimSuffix(stripped, ")")
		}
	}
	return attr
}

// FacetSet returns the bare field names declared faceted, with modifiers
// stripped, for the Filter Compiler's facet-membership check.
func (s *Settings) FacetSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.AttributesForFaceting))
	for _, attr := range s.AttributesForFaceting {
		set[parseFacetModifier(attr)] = struct{}{}
	}
	return set
}

// SearchableFacetSet returns the subset of faceted attributes marked
// searchable(...), whose values should also match free-text queries.
func (s *Settings) SearchableFacetSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, attr := range s.AttributesForFaceting {
		if strings.HasPrefix(attr, "searchable(") {
			set[parseFacetModifier(attr)] = struct{}{}
		}
	}
	return set
}

// ShouldRetrieve reports whether field should appear in a returned hit.
func (s *Settings) ShouldRetrieve(field string) bool {
	for _, u := range s.UnretrievableAttributes {
		if u == field {
			return false
		}
	}
	if len(s.AttributesToRetrieve) > 0 {
		for _, r := range s.AttributesToRetrieve {
			if r == "*" || r == field {
				return true
			}
		}
		return false
	}
	return true
}

// LoadSettings reads settings from a JSON file, defaulting when absent.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, ferror.Newf(ferror.Io, "read settings: %v", err)
	}
	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, ferror.Newf(ferror.Json, "parse settings: %v", err)
	}
	return settings, nil
}

// Save persists settings via a temp-file-plus-rename.
func (s *Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return ferror.Newf(ferror.Json, "marshal settings: %v", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ferror.Newf(ferror.Io, "write temp settings: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferror.Newf(ferror.Io, "rename temp settings: %v", err)
	}
	return nil
}
