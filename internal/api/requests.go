// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package api provides HTTP request validation structs with go-playground/validator tags.
// These structs are used to validate incoming API request parameters before processing.
//
// The validation tags follow the go-playground/validator v10 syntax:
//   - required: field must be present and non-zero
//   - min,max: numeric or string length bounds
//   - oneof: value must be one of the specified options
//   - omitempty: skip validation if field is empty/zero
package api

// SearchRequest is the validated body of POST /1/indexes/{name}/query.
type SearchRequest struct {
	Query                     string                   `json:"query"`
	Filters                   string                   `json:"filters,omitempty"`
	FacetFilters              []interface{}            `json:"facetFilters,omitempty"`
	Facets                    []string                 `json:"facets,omitempty"`
	Page                      int                      `json:"page" validate:"min=0"`
	HitsPerPage               int                      `json:"hitsPerPage" validate:"omitempty,min=1,max=1000"`
	AttributesToRetrieve      []string                 `json:"attributesToRetrieve,omitempty"`
	Sort                      string                   `json:"sort,omitempty"`
	Distinct                  int                       `json:"distinct" validate:"omitempty,min=0,max=1000"`
	MaxValuesPerFacet         int                       `json:"maxValuesPerFacet" validate:"omitempty,min=0,max=1000"`
	ClickAnalytics            bool                     `json:"clickAnalytics,omitempty"`
	RuleContexts              []string                 `json:"ruleContexts,omitempty"`
	UserToken                 string                   `json:"userToken,omitempty" validate:"omitempty,min=1,max=129"`
}

// BatchRequest is the validated body of POST /1/indexes/{name}/batch.
type BatchRequest struct {
	Requests []BatchOperation `json:"requests" validate:"required,max=1000,dive"`
}

// BatchOperation is one entry in a BatchRequest.
type BatchOperation struct {
	Action string                 `json:"action" validate:"required,oneof=addObject updateObject deleteObject partialUpdateObject clear"`
	Body   map[string]interface{} `json:"body,omitempty"`
}

// SettingsRequest is the validated (partial) body of
// POST /1/indexes/{name}/settings. Every field is a pointer so an absent
// key leaves the existing setting untouched, matching Algolia's partial-
// update semantics.
type SettingsRequest struct {
	SearchableAttributes     *[]string `json:"searchableAttributes,omitempty"`
	AttributesForFaceting    *[]string `json:"attributesForFaceting,omitempty"`
	CustomRanking            *[]string `json:"customRanking,omitempty"`
	QueryType                *string   `json:"queryType,omitempty" validate:"omitempty,oneof=prefixLast prefixAll prefixNone"`
	AttributeForDistinct     *string   `json:"attributeForDistinct,omitempty"`
	MaxValuesPerFacet        *int      `json:"maxValuesPerFacet,omitempty" validate:"omitempty,min=0,max=1000"`
	MinWordSizefor1Typo      *int      `json:"minWordSizefor1Typo,omitempty" validate:"omitempty,min=1"`
	MinWordSizefor2Typos     *int      `json:"minWordSizefor2Typos,omitempty" validate:"omitempty,min=1"`
}

// SynonymRequest is the validated body of PUT /1/indexes/{name}/synonyms/{objectID}.
type SynonymRequest struct {
	ObjectID     string   `json:"objectID" validate:"required"`
	Type         string   `json:"type" validate:"required,oneof=synonym onewaysynonym altcorrection1 altcorrection2 placeholder"`
	Synonyms     []string `json:"synonyms,omitempty"`
	Input        string   `json:"input,omitempty"`
	Word         string   `json:"word,omitempty"`
	Corrections  []string `json:"corrections,omitempty"`
	Placeholder  string   `json:"placeholder,omitempty"`
	Replacements []string `json:"replacements,omitempty"`
}

// CreateKeyRequest is the validated body of POST /1/keys.
type CreateKeyRequest struct {
	Description     string   `json:"description,omitempty"`
	Filters         string   `json:"filters,omitempty"`
	RestrictIndices []string `json:"restrictIndices,omitempty"`
	ValidUntil      int64    `json:"validUntil,omitempty"`
	UserToken       string   `json:"userToken,omitempty"`
	HitsPerPage     int      `json:"hitsPerPage,omitempty" validate:"omitempty,min=1,max=1000"`
}

// applyDefaults normalizes zero-value pagination fields the way
// Algolia's API does: page 0, 20 hits per page.
func (r *SearchRequest) applyDefaults() {
	if r.HitsPerPage == 0 {
		r.HitsPerPage = 20
	}
}
