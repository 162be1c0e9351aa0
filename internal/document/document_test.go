package document

import (
	"testing"
	"time"

	"github.com/gridlhq/flapjack/internal/ferror"
)

func TestFromJSONUsesUnderscoreIDFirst(t *testing.T) {
	raw := map[string]any{
		"_id":      "abc",
		"objectID": "xyz",
		"title":    "hello",
	}
	d, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "abc" {
		t.Errorf("ID = %q, want abc", d.ID)
	}
	if got, ok := d.Fields["title"].AsText(); !ok || got != "hello" {
		t.Errorf("title field = %q, %v", got, ok)
	}
}

func TestFromJSONFallsBackToObjectID(t *testing.T) {
	raw := map[string]any{"objectID": "xyz"}
	d, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "xyz" {
		t.Errorf("ID = %q, want xyz", d.ID)
	}
}

func TestFromJSONMissingIDIsError(t *testing.T) {
	raw := map[string]any{"title": "hello"}
	_, err := FromJSON(raw)
	if err == nil {
		t.Fatal("expected error for missing id")
	}
	fe, ok := ferror.As(err)
	if !ok || fe.Kind != ferror.MissingField {
		t.Errorf("got %v, want MissingField", err)
	}
}

func TestFromJSONDropsNullAndBool(t *testing.T) {
	raw := map[string]any{
		"_id":      "1",
		"nothing":  nil,
		"flag":     true,
		"empty":    []any{},
		"emptyObj": map[string]any{},
	}
	d, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, k := range []string{"nothing", "flag", "empty", "emptyObj"} {
		if _, ok := d.Fields[k]; ok {
			t.Errorf("field %q should have been dropped", k)
		}
	}
}

func TestFromJSONIntegerVsFloat(t *testing.T) {
	raw := map[string]any{
		"_id":   "1",
		"count": float64(42),
		"ratio": float64(3.5),
	}
	d, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i, ok := d.Fields["count"].AsInteger(); !ok || i != 42 {
		t.Errorf("count = %v, %v, want 42, true", i, ok)
	}
	if f, ok := d.Fields["ratio"].AsFloat(); !ok || f != 3.5 {
		t.Errorf("ratio = %v, %v, want 3.5, true", f, ok)
	}
}

func TestAsFloatCoercesInteger(t *testing.T) {
	fv := Integer(7)
	f, ok := fv.AsFloat()
	if !ok || f != 7.0 {
		t.Errorf("AsFloat() on integer = %v, %v", f, ok)
	}
}

func TestRoundTripJSON(t *testing.T) {
	raw := map[string]any{
		"_id":   "doc-1",
		"title": "hello world",
		"tags":  []any{"a", "b"},
		"meta":  map[string]any{"nested": "value"},
	}
	d, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := d.ToJSON()
	if out["objectID"] != "doc-1" {
		t.Errorf("objectID = %v", out["objectID"])
	}
	tags, ok := out["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("tags = %v", out["tags"])
	}
}

func TestDateDetection(t *testing.T) {
	raw := map[string]any{
		"_id":       "1",
		"createdAt": "2026-07-29T10:00:00Z",
	}
	d, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dt, ok := d.Fields["createdAt"].AsDate()
	if !ok {
		t.Fatal("expected createdAt to be detected as a date")
	}
	if dt.Year() != 2026 {
		t.Errorf("year = %d, want 2026", dt.Year())
	}
}

func TestFacetValue(t *testing.T) {
	fv := Facet("electronics")
	s, ok := fv.AsFacet()
	if !ok || s != "electronics" {
		t.Errorf("AsFacet() = %q, %v", s, ok)
	}
	if _, ok := fv.AsText(); ok {
		t.Errorf("facet value should not report as text")
	}
}

var _ = time.RFC3339
