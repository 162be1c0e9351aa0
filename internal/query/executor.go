// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

import (
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bleveSearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/filter"
	"github.com/gridlhq/flapjack/internal/rules"
	"github.com/gridlhq/flapjack/internal/searchindex"
)

// index is the subset of *searchindex.Index the executor needs, narrowed
// to a local interface so the query package's tests can fake it without
// standing up a real bleve index.
type index interface {
	Search(req *bleve.SearchRequest) (*bleve.SearchResult, error)
}

// Execute runs q against idx, applying query rules (rewrite and effects),
// synonym expansion, filter compilation, facet counting, distinct grouping,
// and pagination in that order.
func Execute(idx index, cfg IndexConfig, synonyms *rules.SynonymStore, ruleStore *rules.RuleStore, q Query) (*Result, error) {
	queryText := q.Text
	if ruleStore != nil {
		if rewritten, ok := ruleStore.ApplyQueryRewrite(queryText, q.Context); ok {
			queryText = rewritten
		}
	}

	var effects rules.Effects
	if ruleStore != nil {
		effects = ruleStore.ApplyRules(queryText, q.Context)
	}

	variants := []string{queryText}
	if synonyms != nil && queryText != "" {
		variants = synonyms.ExpandQuery(queryText)
	}

	textQuery := buildTextQuery(variants, cfg)

	bleveQuery := textQuery
	if q.Filter != nil {
		rewritten := prefixFacetFields(*q.Filter, cfg.FacetFields)
		compiler := filter.NewCompiler(cfg.FacetFields)
		filterQuery, err := compiler.Compile(rewritten)
		if err != nil {
			return nil, err
		}
		bleveQuery = bleve.NewConjunctionQuery(textQuery, filterQuery)
	}

	hiddenSet := make(map[string]struct{}, len(effects.Hidden))
	for _, id := range effects.Hidden {
		hiddenSet[id] = struct{}{}
	}

	rankingKeys := parseCustomRanking(cfg.CustomRanking)

	fetchLimit := q.Offset + q.Limit
	if q.DistinctCount > 0 || len(rankingKeys) > 0 {
		fetchLimit = max(fetchLimit*3, 50)
	}
	fetchLimit += len(hiddenSet)
	if fetchLimit <= 0 {
		fetchLimit = q.Limit
	}

	req := bleve.NewSearchRequestOptions(bleveQuery, fetchLimit, 0, false)
	req.Fields = []string{"*"}
	applySort(req, q.Sort, queryText != "")

	facetSize := facetLimit(q.MaxValuesPerFacet, cfg.MaxValuesPerFacet)
	for _, fr := range q.Facets {
		req.AddFacet(fr.Field, bleve.NewFacetRequest(searchindex.FacetFieldName(fr.Field), facetSize))
	}

	result, err := idx.Search(req)
	if err != nil {
		return nil, err
	}

	docs := make([]ScoredDocument, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if _, hidden := hiddenSet[hit.ID]; hidden {
			continue
		}
		docs = append(docs, ScoredDocument{
			Document: searchindex.ReconstructDocument(hit),
			Score:    hit.Score,
		})
	}

	docs = applyCustomRanking(docs, sortFieldName(q.Sort), rankingKeys)
	docs = applyPins(docs, effects.Pins)

	distinctAttr := cfg.AttributeForDistinct
	distinctCount := q.DistinctCount
	var total uint64
	if distinctCount > 0 && distinctAttr != "" {
		docs, total = applyDistinct(docs, distinctAttr, distinctCount)
	} else {
		total = uint64(result.Total) - uint64(len(hiddenSet))
	}

	docs = paginate(docs, q.Offset, q.Limit)

	facets := extractFacets(result.Facets, q.Facets)
	facets = trimFacetCounts(facets, facetSize)

	return &Result{
		Documents:    docs,
		Total:        total,
		Facets:       facets,
		UserData:     effects.UserData,
		AppliedRules: effects.AppliedRules,
	}, nil
}

// buildTextQuery combines every synonym-expanded phrasing of the query
// with OR semantics; within one phrasing, tokens combine with AND, with
// tokenization (prefix placement, fuzziness) driven by cfg.
func buildTextQuery(variants []string, cfg IndexConfig) query.Query {
	disjuncts := make([]query.Query, 0, len(variants))
	for _, variant := range variants {
		disjuncts = append(disjuncts, buildVariantQuery(variant, cfg))
	}
	if len(disjuncts) == 1 {
		return disjuncts[0]
	}
	dq := bleve.NewDisjunctionQuery(disjuncts...)
	dq.SetMin(1)
	return dq
}

func buildVariantQuery(text string, cfg IndexConfig) query.Query {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return bleve.NewMatchAllQuery()
	}

	conjuncts := make([]query.Query, 0, len(tokens))
	for i, token := range tokens {
		isLast := i == len(tokens)-1
		prefix := cfg.QueryType == "prefixAll" || (cfg.QueryType == "prefixLast" && isLast)
		if prefix {
			pq := bleve.NewPrefixQuery(strings.ToLower(token))
			conjuncts = append(conjuncts, pq)
			continue
		}
		mq := bleve.NewMatchQuery(token)
		mq.SetFuzziness(fuzzinessFor(token, cfg))
		conjuncts = append(conjuncts, mq)
	}
	if len(conjuncts) == 1 {
		return conjuncts[0]
	}
	return bleve.NewConjunctionQuery(conjuncts...)
}

func fuzzinessFor(token string, cfg IndexConfig) int {
	min1 := cfg.MinWordSizeFor1Typo
	min2 := cfg.MinWordSizeFor2Typos
	switch {
	case min2 > 0 && len(token) >= min2:
		return 2
	case min1 > 0 && len(token) >= min1:
		return 1
	default:
		return 0
	}
}

// prefixFacetFields rewrites every text/facet Equals/NotEquals leaf to
// target the index's hidden untokenized facet copy rather than the
// analyzed field, so term equality matches the whole stored value rather
// than a single analyzed token.
func prefixFacetFields(f filter.Filter, facetFields map[string]struct{}) filter.Filter {
	switch f.Op {
	case filter.OpEquals, filter.OpNotEquals:
		if _, ok := facetFields[f.Field]; ok && isTextOrFacet(f) {
			f.Field = searchindex.FacetFieldName(f.Field)
		}
		return f
	case filter.OpNot:
		f.Children = []filter.Filter{prefixFacetFields(f.Children[0], facetFields)}
		return f
	case filter.OpAnd, filter.OpOr:
		children := make([]filter.Filter, len(f.Children))
		for i, child := range f.Children {
			children[i] = prefixFacetFields(child, facetFields)
		}
		f.Children = children
		return f
	default:
		return f
	}
}

func isTextOrFacet(f filter.Filter) bool {
	return f.Value.Kind == document.KindText || f.Value.Kind == document.KindFacet
}

// applySort installs a user-supplied sort field on req. When the query has
// text, relevance stays the primary ranking key and the sort field only
// breaks ties; an empty query has no relevance signal, so the sort field
// becomes primary on its own.
func applySort(req *bleve.SearchRequest, s *Sort, hasQueryText bool) {
	if s == nil || s.ByRelevance || s.Field == "" {
		return
	}
	field := s.Field
	if s.Order == Desc {
		field = "-" + field
	}
	if hasQueryText {
		req.SortBy([]string{"-_score", field})
		return
	}
	req.SortBy([]string{field})
}

// sortFieldName returns the field name of a user-supplied sort, or "" when
// ranking should fall back to relevance score for custom-ranking grouping.
func sortFieldName(s *Sort) string {
	if s == nil || s.ByRelevance {
		return ""
	}
	return s.Field
}

// rankingKey is one parsed "asc(attribute)" or "desc(attribute)" custom
// ranking expression.
type rankingKey struct {
	field string
	desc  bool
}

// parseCustomRanking parses the tenant's declared custom-ranking
// expressions, in order. Expressions that don't match the asc(...)/
// desc(...) shape are skipped rather than rejected, since malformed
// settings shouldn't take the whole query down.
func parseCustomRanking(exprs []string) []rankingKey {
	if len(exprs) == 0 {
		return nil
	}
	keys := make([]rankingKey, 0, len(exprs))
	for _, expr := range exprs {
		switch {
		case strings.HasPrefix(expr, "desc(") && strings.HasSuffix(expr, ")"):
			keys = append(keys, rankingKey{field: expr[len("desc(") : len(expr)-1], desc: true})
		case strings.HasPrefix(expr, "asc(") && strings.HasSuffix(expr, ")"):
			keys = append(keys, rankingKey{field: expr[len("asc(") : len(expr)-1], desc: false})
		}
	}
	return keys
}

// applyCustomRanking reorders docs by the tenant's custom-ranking
// expressions, in declared order, without disturbing the primary ranking
// key already reflected in docs' input order (relevance score, or the
// sort field named by sortField when a user-supplied sort is active).
// Custom ranking is strictly a tie-breaker: it only ever reorders within
// a contiguous run of documents that already share the same primary key,
// matching the "score followed by custom-ranking expression values"
// ranking contract.
func applyCustomRanking(docs []ScoredDocument, sortField string, keys []rankingKey) []ScoredDocument {
	if len(keys) == 0 || len(docs) < 2 {
		return docs
	}

	start := 0
	for i := 1; i <= len(docs); i++ {
		if i < len(docs) && samePrimaryKey(docs[start], docs[i], sortField) {
			continue
		}
		if i-start > 1 {
			run := docs[start:i]
			sort.SliceStable(run, func(a, b int) bool {
				return lessByCustomRanking(run[a].Document, run[b].Document, keys)
			})
		}
		start = i
	}
	return docs
}

func samePrimaryKey(a, b ScoredDocument, sortField string) bool {
	if sortField != "" {
		return compareFieldValues(a.Document, b.Document, sortField) == 0
	}
	return a.Score == b.Score
}

func lessByCustomRanking(a, b *document.Document, keys []rankingKey) bool {
	for _, k := range keys {
		cmp := compareFieldValues(a, b, k.field)
		if cmp == 0 {
			continue
		}
		if k.desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

// compareFieldValues compares a and b's value for field, returning -1, 0,
// or 1. A document missing the field sorts after one that has it; two
// documents both missing it compare equal.
func compareFieldValues(a, b *document.Document, field string) int {
	va, oka := a.Fields[field]
	vb, okb := b.Fields[field]
	switch {
	case !oka && !okb:
		return 0
	case !oka:
		return 1
	case !okb:
		return -1
	}

	if fa, ok := va.AsFloat(); ok {
		if fb, ok := vb.AsFloat(); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if da, ok := va.AsDate(); ok {
		if db, ok := vb.AsDate(); ok {
			switch {
			case da.Before(db):
				return -1
			case da.After(db):
				return 1
			default:
				return 0
			}
		}
	}
	ta, oka2 := textValue(va)
	tb, okb2 := textValue(vb)
	if oka2 && okb2 {
		return strings.Compare(ta, tb)
	}
	return 0
}

func textValue(v document.FieldValue) (string, bool) {
	if s, ok := v.AsText(); ok {
		return s, true
	}
	return v.AsFacet()
}

// applyPins moves every pinned object ID to its requested absolute
// position in the result list, preserving relative order of everything
// else. A pin whose position is beyond the list length places its
// document at the end; the promoted document still needs to exist in the
// fetched window for Promote to take effect.
func applyPins(docs []ScoredDocument, pins []rules.Pin) []ScoredDocument {
	if len(pins) == 0 {
		return docs
	}

	byID := make(map[string]int, len(docs))
	for i, d := range docs {
		byID[d.Document.ID] = i
	}

	pinned := make(map[string]ScoredDocument, len(pins))
	pinnedOrder := append([]rules.Pin(nil), pins...)
	sort.SliceStable(pinnedOrder, func(i, j int) bool { return pinnedOrder[i].Position < pinnedOrder[j].Position })

	remaining := make([]ScoredDocument, 0, len(docs))
	skip := make(map[string]struct{}, len(pins))
	for _, p := range pinnedOrder {
		if idx, ok := byID[p.ObjectID]; ok {
			pinned[p.ObjectID] = docs[idx]
			skip[p.ObjectID] = struct{}{}
		}
	}
	for _, d := range docs {
		if _, skipped := skip[d.Document.ID]; !skipped {
			remaining = append(remaining, d)
		}
	}

	out := make([]ScoredDocument, 0, len(docs))
	for _, p := range pinnedOrder {
		d, ok := pinned[p.ObjectID]
		if !ok {
			continue
		}
		pos := p.Position
		for len(out) < pos && len(remaining) > 0 {
			out = append(out, remaining[0])
			remaining = remaining[1:]
		}
		out = append(out, d)
	}
	out = append(out, remaining...)
	return out
}

func paginate(docs []ScoredDocument, offset, limit int) []ScoredDocument {
	if offset >= len(docs) {
		return []ScoredDocument{}
	}
	end := offset + limit
	if end > len(docs) || limit <= 0 {
		end = len(docs)
	}
	return docs[offset:end]
}

func extractFacets(results bleveSearch.FacetResults, requests []FacetRequest) map[string][]FacetCount {
	out := make(map[string][]FacetCount, len(requests))
	for _, fr := range requests {
		result, ok := results[fr.Field]
		if !ok || result.Terms == nil {
			continue
		}
		counts := make([]FacetCount, 0, len(*result.Terms))
		for _, term := range *result.Terms {
			counts = append(counts, FacetCount{Value: term.Term, Count: uint64(term.Count)})
		}
		out[fr.Field] = counts
	}
	return out
}
