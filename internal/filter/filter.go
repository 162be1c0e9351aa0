// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package filter defines the filter expression tree accepted by the query
// executor and compiles it into a bleve query. Compilation rules follow the
// original engine's filter compiler closely: a text equality clause is only
// valid against a field declared as a facet in the index's searchable
// schema, numeric/date comparisons shift inclusive/exclusive bounds rather
// than relying on bleve's own open/closed range flags, and any clause using
// Not or NotEquals forces the whole tree down a hybrid compilation path
// built from conjunction/negation rather than a single query string.
package filter

import (
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/ferror"
)

// MaxDepth bounds Not/And/Or nesting on the hybrid compilation path.
const MaxDepth = 10

// MaxClauses bounds the total number of leaf comparisons in one filter tree.
const MaxClauses = 1000

// Op identifies the comparison a leaf Filter performs.
type Op int

const (
	OpEquals Op = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpRange
	OpNot
	OpAnd
	OpOr
)

// Filter is a node in a filter expression tree. Leaf nodes (Equals through
// Range) carry Field/Value(/Max); Not wraps exactly one child in Children[0];
// And/Or carry two or more children.
type Filter struct {
	Op       Op
	Field    string
	Value    document.FieldValue
	Max      document.FieldValue
	Children []Filter
}

// Equals builds an equality leaf.
func Equals(field string, v document.FieldValue) Filter {
	return Filter{Op: OpEquals, Field: field, Value: v}
}

// NotEquals builds a negated-equality leaf.
func NotEquals(field string, v document.FieldValue) Filter {
	return Filter{Op: OpNotEquals, Field: field, Value: v}
}

// Range builds an inclusive [min, max] numeric or date range leaf.
func Range(field string, min, max document.FieldValue) Filter {
	return Filter{Op: OpRange, Field: field, Value: min, Max: max}
}

// Not negates a single child filter.
func Not(f Filter) Filter { return Filter{Op: OpNot, Children: []Filter{f}} }

// And conjoins two or more child filters.
func And(fs ...Filter) Filter { return Filter{Op: OpAnd, Children: fs} }

// Or disjoins two or more child filters.
func Or(fs ...Filter) Filter { return Filter{Op: OpOr, Children: fs} }

// Compiler compiles a Filter tree into a bleve query against a known set of
// faceted (filterable) text fields.
type Compiler struct {
	// FacetFields is the set of field names whose values were declared
	// faceted in the index's settings; text Equals clauses are only legal
	// against these.
	FacetFields map[string]struct{}
}

// NewCompiler builds a Compiler scoped to the given facet field set.
func NewCompiler(facetFields map[string]struct{}) *Compiler {
	if facetFields == nil {
		facetFields = map[string]struct{}{}
	}
	return &Compiler{FacetFields: facetFields}
}

// Compile validates and compiles f. A filter using a text Equals against a
// field that is not declared faceted compiles silently to MatchNoneQuery,
// mirroring the original engine rather than erroring — clients commonly
// build filters against attributesForFaceting defensively before the
// settings update that declares them has propagated.
func (c *Compiler) Compile(f Filter) (query.Query, error) {
	if n := countClauses(f); n > MaxClauses {
		return nil, ferror.Newf(ferror.QueryTooComplex, "filter has %d clauses, max is %d", n, MaxClauses)
	}
	if !c.isValidForFacetSet(f) {
		return bleve.NewMatchNoneQuery(), nil
	}
	if hasNot(f) {
		return c.compileHybrid(f, 0)
	}
	return c.compileDirect(f)
}

func countClauses(f Filter) int {
	switch f.Op {
	case OpNot:
		return countClauses(f.Children[0])
	case OpAnd, OpOr:
		total := 0
		for _, child := range f.Children {
			total += countClauses(child)
		}
		return total
	default:
		return 1
	}
}

func hasNot(f Filter) bool {
	switch f.Op {
	case OpNot, OpNotEquals:
		return true
	case OpAnd, OpOr:
		for _, child := range f.Children {
			if hasNot(child) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// isValidForFacetSet recurses through the tree checking that every text
// Equals/NotEquals targets a declared facet field.
func (c *Compiler) isValidForFacetSet(f Filter) bool {
	switch f.Op {
	case OpEquals, OpNotEquals:
		if f.Value.Kind == document.KindText || f.Value.Kind == document.KindFacet {
			_, ok := c.FacetFields[f.Field]
			return ok
		}
		return true
	case OpNot:
		return c.isValidForFacetSet(f.Children[0])
	case OpAnd, OpOr:
		for _, child := range f.Children {
			if !c.isValidForFacetSet(child) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// compileDirect handles trees with no Not/NotEquals anywhere: every clause
// maps onto a positive bleve query joined by conjunction/disjunction.
func (c *Compiler) compileDirect(f Filter) (query.Query, error) {
	switch f.Op {
	case OpEquals:
		return equalsQuery(f.Field, f.Value)
	case OpRange:
		return rangeQuery(f.Field, f.Value, f.Max, true, true)
	case OpGreaterThan:
		return boundQuery(f.Field, f.Value, false, true)
	case OpGreaterThanOrEqual:
		return boundQuery(f.Field, f.Value, true, true)
	case OpLessThan:
		return boundQuery(f.Field, f.Value, false, false)
	case OpLessThanOrEqual:
		return boundQuery(f.Field, f.Value, true, false)
	case OpAnd:
		conjuncts := make([]query.Query, 0, len(f.Children))
		for _, child := range f.Children {
			q, err := c.compileDirect(child)
			if err != nil {
				return nil, err
			}
			conjuncts = append(conjuncts, q)
		}
		return bleve.NewConjunctionQuery(conjuncts...), nil
	case OpOr:
		disjuncts := make([]query.Query, 0, len(f.Children))
		for _, child := range f.Children {
			q, err := c.compileDirect(child)
			if err != nil {
				return nil, err
			}
			disjuncts = append(disjuncts, q)
		}
		return bleve.NewDisjunctionQuery(disjuncts...), nil
	default:
		return nil, ferror.New(ferror.InvalidQuery, "filter contains a negation; must use hybrid compilation")
	}
}

// compileHybrid handles trees containing Not/NotEquals by wrapping the
// negated clause in a MustNot boolean query conjoined with MatchAll, so the
// overall result is still a positive match set.
func (c *Compiler) compileHybrid(f Filter, depth int) (query.Query, error) {
	if depth > MaxDepth {
		return nil, ferror.Newf(ferror.InvalidQuery, "filter nesting exceeds max depth %d", MaxDepth)
	}

	switch f.Op {
	case OpNot:
		inner, err := c.compileHybrid(f.Children[0], depth+1)
		if err != nil {
			return nil, err
		}
		bq := bleve.NewBooleanQuery()
		bq.AddMust(bleve.NewMatchAllQuery())
		bq.AddMustNot(inner)
		return bq, nil
	case OpNotEquals:
		eq, err := equalsQuery(f.Field, f.Value)
		if err != nil {
			return nil, err
		}
		bq := bleve.NewBooleanQuery()
		bq.AddMust(bleve.NewMatchAllQuery())
		bq.AddMustNot(eq)
		return bq, nil
	case OpAnd:
		bq := bleve.NewBooleanQuery()
		for _, child := range f.Children {
			q, err := c.compileHybrid(child, depth+1)
			if err != nil {
				return nil, err
			}
			bq.AddMust(q)
		}
		return bq, nil
	case OpOr:
		shoulds := make([]query.Query, 0, len(f.Children))
		for _, child := range f.Children {
			q, err := c.compileHybrid(child, depth+1)
			if err != nil {
				return nil, err
			}
			shoulds = append(shoulds, q)
		}
		bq := bleve.NewBooleanQuery()
		for _, s := range shoulds {
			bq.AddShould(s)
		}
		bq.SetMinShould(1)
		return bq, nil
	default:
		return c.compileDirect(f)
	}
}

func equalsQuery(field string, v document.FieldValue) (query.Query, error) {
	switch v.Kind {
	case document.KindText, document.KindFacet:
		text := v.Text
		if v.Kind == document.KindFacet {
			text = v.Facet
		}
		tq := bleve.NewTermQuery(text)
		tq.SetField(field)
		return tq, nil
	case document.KindInteger:
		f := float64(v.Integer)
		tru := true
		return numericRange(field, &f, &f, &tru, &tru), nil
	case document.KindFloat:
		tru := true
		return numericRange(field, &v.Float, &v.Float, &tru, &tru), nil
	case document.KindDate:
		tru := true
		return bleveDateRange(field, v.Date, v.Date, &tru, &tru), nil
	default:
		return nil, ferror.New(ferror.InvalidQuery, "equals filter on object/array field is not supported")
	}
}

// rangeQuery builds an inclusive [min, max] range across numeric or date
// fields.
func rangeQuery(field string, min, max document.FieldValue, minIncl, maxIncl bool) (query.Query, error) {
	if min.Kind == document.KindDate || max.Kind == document.KindDate {
		return bleveDateRange(field, min.Date, max.Date, &minIncl, &maxIncl), nil
	}
	minF, ok1 := min.AsFloat()
	maxF, ok2 := max.AsFloat()
	if !ok1 || !ok2 {
		return nil, ferror.New(ferror.InvalidQuery, "range filter requires numeric or date bounds")
	}
	return numericRange(field, &minF, &maxF, &minIncl, &maxIncl), nil
}

// boundQuery builds a one-sided bound (>, >=, <, <=). Exclusive integer and
// date bounds shift by one unit so the underlying range query can stay
// inclusive on both ends; float bounds have no natural "next" value so an
// exclusive float bound is rejected outright, matching the original engine
// ("use '>=' / '<=' instead").
func boundQuery(field string, v document.FieldValue, inclusive bool, isLowerBound bool) (query.Query, error) {
	switch v.Kind {
	case document.KindInteger:
		bound := v.Integer
		if !inclusive {
			if isLowerBound {
				bound++
			} else {
				bound--
			}
		}
		f := float64(bound)
		tru := true
		if isLowerBound {
			return numericRange(field, &f, nil, &tru, nil), nil
		}
		return numericRange(field, nil, &f, nil, &tru), nil
	case document.KindFloat:
		if !inclusive {
			return nil, ferror.New(ferror.InvalidQuery, "exclusive float bound is not supported; use '>=' or '<='")
		}
		tru := true
		if isLowerBound {
			return numericRange(field, &v.Float, nil, &tru, nil), nil
		}
		return numericRange(field, nil, &v.Float, nil, &tru), nil
	case document.KindDate:
		bound := v.Date
		if !inclusive {
			if isLowerBound {
				bound = bound.Add(time.Nanosecond)
			} else {
				bound = bound.Add(-time.Nanosecond)
			}
		}
		tru := true
		if isLowerBound {
			return bleveDateRange(field, bound, time.Time{}, &tru, nil), nil
		}
		return bleveDateRange(field, time.Time{}, bound, nil, &tru), nil
	default:
		return nil, ferror.New(ferror.InvalidQuery, "comparison filter requires a numeric or date field")
	}
}

func numericRange(field string, min, max *float64, minIncl, maxIncl *bool) query.Query {
	q := bleve.NewNumericRangeInclusiveQuery(min, max, minIncl, maxIncl)
	q.SetField(field)
	return q
}

func bleveDateRange(field string, start, end time.Time, startIncl, endIncl *bool) query.Query {
	q := bleve.NewDateRangeInclusiveQuery(start, end, startIncl, endIncl)
	q.SetField(field)
	return q
}
