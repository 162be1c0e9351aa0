// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package rules holds the per-tenant synonym and query-rule stores
// (Section 4.7). Both persist as a single JSON document per tenant, written
// through a temp-file-plus-rename so a crash mid-write never leaves a
// truncated file behind, following the same persistence shape the teacher
// uses for its own flat-file content stores.
package rules

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/ferror"
)

// SynonymType is the closed set of synonym shapes the Algolia-compatible
// surface accepts.
type SynonymType string

const (
	SynonymRegular        SynonymType = "synonym"
	SynonymOneWay         SynonymType = "onewaysynonym"
	SynonymAltCorrection1 SynonymType = "altcorrection1"
	SynonymAltCorrection2 SynonymType = "altcorrection2"
	SynonymPlaceholder    SynonymType = "placeholder"
)

// Synonym is a tagged union over the five synonym shapes. Only the fields
// relevant to Type are meaningful.
type Synonym struct {
	ObjectID     string      `json:"objectID"`
	Type         SynonymType `json:"type"`
	Synonyms     []string    `json:"synonyms,omitempty"`
	Input        string      `json:"input,omitempty"`
	Word         string      `json:"word,omitempty"`
	Corrections  []string    `json:"corrections,omitempty"`
	Placeholder  string      `json:"placeholder,omitempty"`
	Replacements []string    `json:"replacements,omitempty"`
}

// MatchesText reports whether any of the synonym's text fields contain
// text, case-insensitively, for the synonym-search endpoint.
func (s Synonym) MatchesText(text string) bool {
	lower := strings.ToLower(text)
	contains := func(candidates ...string) bool {
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c), lower) {
				return true
			}
		}
		return false
	}
	switch s.Type {
	case SynonymRegular:
		return contains(s.Synonyms...)
	case SynonymOneWay:
		return contains(s.Input) || contains(s.Synonyms...)
	case SynonymAltCorrection1, SynonymAltCorrection2:
		return contains(s.Word) || contains(s.Corrections...)
	case SynonymPlaceholder:
		return contains(s.Placeholder) || contains(s.Replacements...)
	default:
		return false
	}
}

// SynonymStore holds one tenant's synonyms, keyed by objectID.
type SynonymStore struct {
	mu       sync.RWMutex
	path     string
	synonyms map[string]Synonym
}

// NewSynonymStore builds an empty, unpersisted store.
func NewSynonymStore() *SynonymStore {
	return &SynonymStore{synonyms: make(map[string]Synonym)}
}

// LoadSynonymStore reads a store from a JSON file, tolerating a missing
// file (a tenant with no synonyms configured yet).
func LoadSynonymStore(path string) (*SynonymStore, error) {
	store := NewSynonymStore()
	store.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, ferror.Newf(ferror.Io, "read synonyms: %v", err)
	}

	var list []Synonym
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, ferror.Newf(ferror.Json, "parse synonyms: %v", err)
	}
	for _, s := range list {
		store.synonyms[s.ObjectID] = s
	}
	return store, nil
}

// Save persists the store to its path via a temp-file-plus-rename.
func (s *SynonymStore) Save() error {
	s.mu.RLock()
	list := make([]Synonym, 0, len(s.synonyms))
	for _, syn := range s.synonyms {
		list = append(list, syn)
	}
	path := s.path
	s.mu.RUnlock()

	if path == "" {
		return ferror.New(ferror.Config, "synonym store has no backing path")
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return ferror.Newf(ferror.Json, "marshal synonyms: %v", err)
	}
	return writeFileAtomic(path, data)
}

// Get returns the synonym with the given objectID, if present.
func (s *SynonymStore) Get(objectID string) (Synonym, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	syn, ok := s.synonyms[objectID]
	return syn, ok
}

// Insert adds or replaces a synonym by objectID.
func (s *SynonymStore) Insert(syn Synonym) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synonyms[syn.ObjectID] = syn
}

// Remove deletes a synonym by objectID, reporting whether it existed.
func (s *SynonymStore) Remove(objectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.synonyms[objectID]; !ok {
		return false
	}
	delete(s.synonyms, objectID)
	return true
}

// Clear empties the store.
func (s *SynonymStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synonyms = make(map[string]Synonym)
}

// Search returns a page of synonyms matching query text and, if non-empty,
// synonymType, along with the total match count before pagination.
func (s *SynonymStore) Search(query string, synonymType SynonymType, page, hitsPerPage int) ([]Synonym, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Synonym
	for _, syn := range s.synonyms {
		if query != "" && !syn.MatchesText(query) {
			continue
		}
		if synonymType != "" && syn.Type != synonymType {
			continue
		}
		filtered = append(filtered, syn)
	}

	total := len(filtered)
	start := page * hitsPerPage
	if start >= total {
		return nil, total
	}
	end := start + hitsPerPage
	if end > total {
		end = total
	}
	return filtered[start:end], total
}

// ExpandQuery returns query plus every alternate phrasing produced by
// substituting a matched Regular or OneWay synonym token, deduplicated.
// AltCorrection and Placeholder synonyms affect ranking rather than query
// expansion and are not applied here.
func (s *SynonymStore) ExpandQuery(query string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := strings.Fields(query)
	expanded := []string{query}
	seen := map[string]struct{}{query: {}}

	add := func(q string) {
		if _, ok := seen[q]; !ok {
			seen[q] = struct{}{}
			expanded = append(expanded, q)
		}
	}

	for _, syn := range s.synonyms {
		switch syn.Type {
		case SynonymRegular:
			for _, token := range tokens {
				for _, candidate := range syn.Synonyms {
					if !strings.EqualFold(candidate, token) {
						continue
					}
					for _, alt := range syn.Synonyms {
						if strings.EqualFold(alt, token) {
							continue
						}
						add(strings.Replace(query, token, alt, 1))
					}
				}
			}
		case SynonymOneWay:
			lowerQuery := strings.ToLower(query)
			lowerInput := strings.ToLower(syn.Input)
			if !strings.Contains(lowerQuery, lowerInput) {
				continue
			}
			for _, alt := range syn.Synonyms {
				add(strings.ReplaceAll(lowerQuery, lowerInput, strings.ToLower(alt)))
			}
		}
	}

	return expanded
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ferror.Newf(ferror.Io, "create directory for %s: %v", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ferror.Newf(ferror.Io, "write temp file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferror.Newf(ferror.Io, "rename temp file: %v", err)
	}
	return nil
}
