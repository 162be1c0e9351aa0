// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package document defines the in-memory representation of an indexed
// record, and the conversion to and from the loosely-typed JSON a client
// submits. Field typing is inferred at ingest time: a field keeps its first
// observed shape (text, integer, float, date, facet, or a nested
// object/array of the same) for the lifetime of the document.
package document

import (
	"time"

	"github.com/gridlhq/flapjack/internal/ferror"
)

// Kind identifies the concrete shape held by a FieldValue.
type Kind int

const (
	KindObject Kind = iota
	KindArray
	KindText
	KindInteger
	KindFloat
	KindDate
	KindFacet
)

// FieldValue is a tagged union over the handful of shapes a document field
// can take. Only one of the typed members is meaningful for a given Kind.
type FieldValue struct {
	Kind    Kind
	Text    string
	Integer int64
	Float   float64
	Date    time.Time
	Facet   string
	Object  map[string]FieldValue
	Array   []FieldValue
}

func Text(s string) FieldValue    { return FieldValue{Kind: KindText, Text: s} }
func Integer(i int64) FieldValue  { return FieldValue{Kind: KindInteger, Integer: i} }
func Float(f float64) FieldValue  { return FieldValue{Kind: KindFloat, Float: f} }
func Date(t time.Time) FieldValue { return FieldValue{Kind: KindDate, Date: t} }
func Facet(s string) FieldValue   { return FieldValue{Kind: KindFacet, Facet: s} }

// AsText returns the field's text value, if it has one.
func (v FieldValue) AsText() (string, bool) {
	if v.Kind != KindText {
		return "", false
	}
	return v.Text, true
}

// AsInteger returns the field's integer value, if it has one.
func (v FieldValue) AsInteger() (int64, bool) {
	if v.Kind != KindInteger {
		return 0, false
	}
	return v.Integer, true
}

// AsFloat returns the field's float value, coercing an integer field so
// numeric range filters can treat the two interchangeably.
func (v FieldValue) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInteger:
		return float64(v.Integer), true
	default:
		return 0, false
	}
}

// AsDate returns the field's date value, if it has one.
func (v FieldValue) AsDate() (time.Time, bool) {
	if v.Kind != KindDate {
		return time.Time{}, false
	}
	return v.Date, true
}

// AsFacet returns the field's facet value, if it has one.
func (v FieldValue) AsFacet() (string, bool) {
	if v.Kind != KindFacet {
		return "", false
	}
	return v.Facet, true
}

// Document is one indexed record: an identifier plus its typed fields.
type Document struct {
	ID     string
	Fields map[string]FieldValue
}

// FromJSON builds a Document from a decoded JSON object. The identifier is
// read from "_id" if present, falling back to "objectID" (the
// Algolia-compatible surface accepts either); a document lacking both is
// rejected.
func FromJSON(raw map[string]any) (*Document, error) {
	id, err := extractID(raw)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]FieldValue, len(raw))
	for k, v := range raw {
		if k == "_id" || k == "objectID" {
			continue
		}
		fv, ok := jsonValueToFieldValue(v)
		if !ok {
			continue
		}
		fields[k] = fv
	}

	return &Document{ID: id, Fields: fields}, nil
}

func extractID(raw map[string]any) (string, error) {
	if v, ok := raw["_id"]; ok {
		s, ok := v.(string)
		if !ok {
			return "", ferror.New(ferror.InvalidDocument, "_id must be a string")
		}
		return s, nil
	}
	if v, ok := raw["objectID"]; ok {
		s, ok := v.(string)
		if !ok {
			return "", ferror.New(ferror.InvalidDocument, "objectID must be a string")
		}
		return s, nil
	}
	return "", ferror.New(ferror.MissingField, "document must have an _id or objectID field")
}

// ToJSON renders the document back to a plain JSON-able map, emitting
// "objectID" for the identifier per the Algolia-compatible response shape.
func (d *Document) ToJSON() map[string]any {
	out := make(map[string]any, len(d.Fields)+1)
	out["objectID"] = d.ID
	for k, v := range d.Fields {
		out[k] = fieldValueToJSONValue(v)
	}
	return out
}

// FieldFromJSON converts a single decoded JSON value into a FieldValue,
// exposed for callers (such as the inverted index wrapper) reconstructing a
// Document from individually-retrieved field values rather than a whole
// JSON object.
func FieldFromJSON(v any) (FieldValue, bool) {
	return jsonValueToFieldValue(v)
}

// jsonValueToFieldValue converts one decoded JSON value into a FieldValue.
// null and bool values carry no distinct FieldValue shape and are dropped,
// as are empty arrays and empty objects (mirroring the original engine's
// field-typing rules).
func jsonValueToFieldValue(v any) (FieldValue, bool) {
	switch t := v.(type) {
	case nil:
		return FieldValue{}, false
	case bool:
		return FieldValue{}, false
	case string:
		if parsed, ok := parseDate(t); ok {
			return Date(parsed), true
		}
		return Text(t), true
	case float64:
		if t == float64(int64(t)) {
			return Integer(int64(t)), true
		}
		return Float(t), true
	case int64:
		return Integer(t), true
	case int:
		return Integer(int64(t)), true
	case []any:
		if len(t) == 0 {
			return FieldValue{}, false
		}
		arr := make([]FieldValue, 0, len(t))
		for _, elem := range t {
			if fv, ok := jsonValueToFieldValue(elem); ok {
				arr = append(arr, fv)
			}
		}
		if len(arr) == 0 {
			return FieldValue{}, false
		}
		return FieldValue{Kind: KindArray, Array: arr}, true
	case map[string]any:
		if len(t) == 0 {
			return FieldValue{}, false
		}
		obj := make(map[string]FieldValue, len(t))
		for k, elem := range t {
			if fv, ok := jsonValueToFieldValue(elem); ok {
				obj[k] = fv
			}
		}
		if len(obj) == 0 {
			return FieldValue{}, false
		}
		return FieldValue{Kind: KindObject, Object: obj}, true
	default:
		return FieldValue{}, false
	}
}

// fieldValueToJSONValue is the inverse of jsonValueToFieldValue.
func fieldValueToJSONValue(v FieldValue) any {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindInteger:
		return v.Integer
	case KindFloat:
		return v.Float
	case KindDate:
		return v.Date.UTC().Format(time.RFC3339)
	case KindFacet:
		return v.Facet
	case KindArray:
		out := make([]any, len(v.Array))
		for i, elem := range v.Array {
			out[i] = fieldValueToJSONValue(elem)
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Object))
		for k, elem := range v.Object {
			out[k] = fieldValueToJSONValue(elem)
		}
		return out
	default:
		return nil
	}
}

// parseDate recognizes RFC3339 timestamps; any other string is plain text.
func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
