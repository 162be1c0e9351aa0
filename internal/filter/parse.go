// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package filter

import (
	"strconv"
	"strings"

	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/ferror"
)

// Parse reads an Algolia-style filter expression such as
// `category:Electronics`, `price > 100`, or
// `price > 100 AND category:Electronics` and builds a Filter tree. Clauses
// combine with AND/OR left to right at a single precedence level; there is
// no parenthesized grouping.
func Parse(expr string) (Filter, error) {
	tokens := tokenizeFilter(expr)
	if len(tokens) == 0 {
		return Filter{}, ferror.New(ferror.InvalidQuery, "filter expression is empty")
	}

	clause, rest, err := parseClause(tokens)
	if err != nil {
		return Filter{}, err
	}
	result := clause

	for len(rest) > 0 {
		op := strings.ToUpper(rest[0])
		if op != "AND" && op != "OR" {
			return Filter{}, ferror.Newf(ferror.InvalidQuery, "expected AND/OR, got %q", rest[0])
		}
		var next Filter
		next, rest, err = parseClause(rest[1:])
		if err != nil {
			return Filter{}, err
		}
		if op == "AND" {
			result = And(result, next)
		} else {
			result = Or(result, next)
		}
	}
	return result, nil
}

// parseClause consumes one leaf comparison (optionally NOT-prefixed) from
// the front of tokens and returns it along with the remaining tokens.
func parseClause(tokens []string) (Filter, []string, error) {
	if len(tokens) == 0 {
		return Filter{}, nil, ferror.New(ferror.InvalidQuery, "unexpected end of filter expression")
	}

	negate := false
	if strings.ToUpper(tokens[0]) == "NOT" {
		negate = true
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return Filter{}, nil, ferror.New(ferror.InvalidQuery, "NOT requires an operand")
	}

	// field:value is a single token split on the first colon.
	if idx := strings.Index(tokens[0], ":"); idx > 0 {
		field := tokens[0][:idx]
		value := tokens[0][idx+1:]
		f := Equals(field, parseLeafValue(value))
		if negate {
			f = Not(f)
		}
		return f, tokens[1:], nil
	}

	// field OP value as three separate tokens.
	if len(tokens) < 3 {
		return Filter{}, nil, ferror.Newf(ferror.InvalidQuery, "malformed filter clause near %q", strings.Join(tokens, " "))
	}
	field, op, raw := tokens[0], tokens[1], tokens[2]
	value := parseLeafValue(raw)

	var f Filter
	switch op {
	case "=":
		f = Equals(field, value)
	case "!=":
		f = NotEquals(field, value)
	case ">":
		f = Filter{Op: OpGreaterThan, Field: field, Value: value}
	case ">=":
		f = Filter{Op: OpGreaterThanOrEqual, Field: field, Value: value}
	case "<":
		f = Filter{Op: OpLessThan, Field: field, Value: value}
	case "<=":
		f = Filter{Op: OpLessThanOrEqual, Field: field, Value: value}
	default:
		return Filter{}, nil, ferror.Newf(ferror.InvalidQuery, "unknown filter operator %q", op)
	}
	if negate {
		f = Not(f)
	}
	return f, tokens[3:], nil
}

// parseLeafValue coerces a bare filter token to the narrowest FieldValue it
// looks like: integer, then float, then text. Double-quoted tokens are
// always treated as text, quotes stripped.
func parseLeafValue(raw string) document.FieldValue {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return document.Text(raw[1 : len(raw)-1])
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return document.Integer(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return document.Float(f)
	}
	return document.Text(raw)
}

// tokenizeFilter splits expr on whitespace, keeping quoted substrings and
// comparison operators (!=, >=, <=, >, <) intact as their own tokens.
func tokenizeFilter(expr string) []string {
	var tokens []string
	var b strings.Builder
	inQuotes := false

	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	runes := []rune(strings.TrimSpace(expr))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case inQuotes:
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			flush()
		case r == '!' && i+1 < len(runes) && runes[i+1] == '=':
			flush()
			tokens = append(tokens, "!=")
			i++
		case r == '>' && i+1 < len(runes) && runes[i+1] == '=':
			flush()
			tokens = append(tokens, ">=")
			i++
		case r == '<' && i+1 < len(runes) && runes[i+1] == '=':
			flush()
			tokens = append(tokens, "<=")
			i++
		case r == '>' || r == '<' || r == '=':
			flush()
			tokens = append(tokens, string(r))
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return tokens
}
