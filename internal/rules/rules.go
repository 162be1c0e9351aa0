// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package rules

import (
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/ferror"
)

// Anchoring is how a rule condition's pattern is matched against query text.
type Anchoring string

const (
	AnchorIs         Anchoring = "is"
	AnchorStartsWith Anchoring = "startsWith"
	AnchorEndsWith   Anchoring = "endsWith"
	AnchorContains   Anchoring = "contains"
)

// Condition is one trigger a Rule checks the incoming query against.
type Condition struct {
	Pattern   string    `json:"pattern"`
	Anchoring Anchoring `json:"anchoring"`
	Context   string    `json:"context,omitempty"`
}

// TimeRange bounds when a rule is active, as Unix timestamps.
type TimeRange struct {
	From  int64 `json:"from"`
	Until int64 `json:"until"`
}

// Promote pins one or more documents starting at Position.
type Promote struct {
	ObjectID  string   `json:"objectID,omitempty"`
	ObjectIDs []string `json:"objectIDs,omitempty"`
	Position  int      `json:"position"`
}

// Hide removes one document from the result set entirely.
type Hide struct {
	ObjectID string `json:"objectID"`
}

// ConsequenceParams carries a query-rewrite instruction.
type ConsequenceParams struct {
	Query string `json:"query,omitempty"`
}

// Consequence is what happens when a Rule's conditions match.
type Consequence struct {
	Promote  []Promote         `json:"promote,omitempty"`
	Hide     []Hide            `json:"hide,omitempty"`
	UserData interface{}       `json:"userData,omitempty"`
	Params   ConsequenceParams `json:"params,omitempty"`
}

// Rule is one query rule: a set of OR'd conditions plus the consequence
// applied when any matches.
type Rule struct {
	ObjectID    string      `json:"objectID"`
	Conditions  []Condition `json:"conditions,omitempty"`
	Consequence Consequence `json:"consequence"`
	Description string      `json:"description,omitempty"`
	Enabled     *bool       `json:"enabled,omitempty"`
	Validity    []TimeRange `json:"validity,omitempty"`
}

// IsEnabled defaults to true when Enabled is unset.
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// IsValidAt reports whether the rule is active at the given Unix timestamp.
func (r *Rule) IsValidAt(timestamp int64) bool {
	if len(r.Validity) == 0 {
		return true
	}
	for _, rng := range r.Validity {
		if timestamp >= rng.From && timestamp <= rng.Until {
			return true
		}
	}
	return false
}

// Matches reports whether queryText (optionally scoped to context) triggers
// this rule: it must be enabled, currently valid, and have no conditions
// (always matches) or at least one condition whose pattern matches.
func (r *Rule) Matches(queryText string, context string) bool {
	if !r.IsEnabled() {
		return false
	}
	if !r.IsValidAt(time.Now().Unix()) {
		return false
	}
	if len(r.Conditions) == 0 {
		return true
	}
	for _, cond := range r.Conditions {
		if cond.Context != "" && cond.Context != context {
			continue
		}
		if matchesPattern(queryText, cond.Pattern, cond.Anchoring) {
			return true
		}
	}
	return false
}

func matchesPattern(queryText, pattern string, anchoring Anchoring) bool {
	q := strings.ToLower(queryText)
	p := strings.ToLower(pattern)
	switch anchoring {
	case AnchorIs:
		return q == p
	case AnchorStartsWith:
		return strings.HasPrefix(q, p)
	case AnchorEndsWith:
		return strings.HasSuffix(q, p)
	case AnchorContains:
		return strings.Contains(q, p)
	default:
		return false
	}
}

// Pin is one document pinned to a result position by a matched rule.
type Pin struct {
	ObjectID string
	Position int
}

// Effects is the accumulated result of applying every matching rule to one
// query: documents to pin, documents to hide, arbitrary userData payloads
// surfaced to the client, and which rules fired.
type Effects struct {
	Pins         []Pin
	Hidden       []string
	UserData     []interface{}
	AppliedRules []string
}

// RuleStore holds one tenant's query rules, in insertion order (so
// multi-rule tie-breaking for equal pin positions is deterministic).
type RuleStore struct {
	mu    sync.RWMutex
	path  string
	order []string
	rules map[string]Rule
}

// NewRuleStore builds an empty, unpersisted store.
func NewRuleStore() *RuleStore {
	return &RuleStore{rules: make(map[string]Rule)}
}

// LoadRuleStore reads a store from a JSON file, tolerating a missing file.
func LoadRuleStore(path string) (*RuleStore, error) {
	store := NewRuleStore()
	store.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, ferror.Newf(ferror.Io, "read rules: %v", err)
	}

	var list []Rule
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, ferror.Newf(ferror.Json, "parse rules: %v", err)
	}
	for _, rule := range list {
		store.insertLocked(rule)
	}
	return store, nil
}

// Save persists the store via a temp-file-plus-rename.
func (s *RuleStore) Save() error {
	s.mu.RLock()
	list := s.allLocked()
	path := s.path
	s.mu.RUnlock()

	if path == "" {
		return ferror.New(ferror.Config, "rule store has no backing path")
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return ferror.Newf(ferror.Json, "marshal rules: %v", err)
	}
	return writeFileAtomic(path, data)
}

// Get returns the rule with the given objectID, if present.
func (s *RuleStore) Get(objectID string) (Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[objectID]
	return r, ok
}

// Insert adds or replaces a rule by objectID.
func (s *RuleStore) Insert(rule Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(rule)
}

func (s *RuleStore) insertLocked(rule Rule) {
	if _, exists := s.rules[rule.ObjectID]; !exists {
		s.order = append(s.order, rule.ObjectID)
	}
	s.rules[rule.ObjectID] = rule
}

// Remove deletes a rule by objectID, reporting whether it existed.
func (s *RuleStore) Remove(objectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[objectID]; !ok {
		return false
	}
	delete(s.rules, objectID)
	for i, id := range s.order {
		if id == objectID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the store.
func (s *RuleStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make(map[string]Rule)
	s.order = nil
}

// All returns every rule in insertion order.
func (s *RuleStore) All() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allLocked()
}

func (s *RuleStore) allLocked() []Rule {
	out := make([]Rule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rules[id])
	}
	return out
}

// Search returns a page of rules whose objectID, description, or any
// condition pattern contains query (case-insensitively), sorted by
// objectID, plus the total match count.
func (s *RuleStore) Search(query string, page, hitsPerPage int) ([]Rule, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(query)
	var matching []Rule
	for _, rule := range s.rules {
		if ruleMatchesSearch(rule, query, lower) {
			matching = append(matching, rule)
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].ObjectID < matching[j].ObjectID })

	total := len(matching)
	start := page * hitsPerPage
	if start >= total {
		return nil, total
	}
	end := start + hitsPerPage
	if end > total {
		end = total
	}
	return matching[start:end], total
}

func ruleMatchesSearch(rule Rule, query, lower string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(rule.ObjectID), lower) {
		return true
	}
	if rule.Description != "" && strings.Contains(strings.ToLower(rule.Description), lower) {
		return true
	}
	for _, cond := range rule.Conditions {
		if strings.Contains(strings.ToLower(cond.Pattern), lower) {
			return true
		}
	}
	return false
}

// ApplyRules runs every rule against queryText/context and accumulates
// their consequences, with pins sorted by position across all matched
// rules.
func (s *RuleStore) ApplyRules(queryText, context string) Effects {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var effects Effects
	for _, id := range s.order {
		rule := s.rules[id]
		if !rule.Matches(queryText, context) {
			continue
		}
		effects.AppliedRules = append(effects.AppliedRules, rule.ObjectID)

		for _, p := range rule.Consequence.Promote {
			if p.ObjectID != "" {
				effects.Pins = append(effects.Pins, Pin{ObjectID: p.ObjectID, Position: p.Position})
			}
			for i, id := range p.ObjectIDs {
				effects.Pins = append(effects.Pins, Pin{ObjectID: id, Position: p.Position + i})
			}
		}
		for _, h := range rule.Consequence.Hide {
			effects.Hidden = append(effects.Hidden, h.ObjectID)
		}
		if rule.Consequence.UserData != nil {
			effects.UserData = append(effects.UserData, rule.Consequence.UserData)
		}
	}

	sort.SliceStable(effects.Pins, func(i, j int) bool { return effects.Pins[i].Position < effects.Pins[j].Position })
	return effects
}

// ApplyQueryRewrite returns the first matching rule's rewritten query text,
// if any rule specifies one.
func (s *RuleStore) ApplyQueryRewrite(queryText, context string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		rule := s.rules[id]
		if !rule.Matches(queryText, context) {
			continue
		}
		if rule.Consequence.Params.Query != "" {
			return rule.Consequence.Params.Query, true
		}
	}
	return "", false
}
