package query

import (
	"testing"

	"github.com/gridlhq/flapjack/internal/document"
)

func docWith(id, field string, v document.FieldValue) ScoredDocument {
	return ScoredDocument{Document: &document.Document{ID: id, Fields: map[string]document.FieldValue{field: v}}}
}

func TestFacetLimitDefault(t *testing.T) {
	if got := facetLimit(0, 0); got != 100 {
		t.Fatalf("expected default 100, got %d", got)
	}
}

func TestFacetLimitExplicitOverride(t *testing.T) {
	if got := facetLimit(5, 100); got != 5 {
		t.Fatalf("expected override 5, got %d", got)
	}
}

func TestFacetLimitFromSettings(t *testing.T) {
	if got := facetLimit(0, 20); got != 20 {
		t.Fatalf("expected settings default 20, got %d", got)
	}
}

func TestFacetLimitCappedAt1000(t *testing.T) {
	if got := facetLimit(5000, 0); got != 1000 {
		t.Fatalf("expected cap at 1000, got %d", got)
	}
}

func TestTrimFacetCountsSortsDescending(t *testing.T) {
	in := map[string][]FacetCount{
		"category": {{Value: "a", Count: 1}, {Value: "b", Count: 5}, {Value: "c", Count: 3}},
	}
	out := trimFacetCounts(in, 100)
	got := out["category"]
	if got[0].Value != "b" || got[1].Value != "c" || got[2].Value != "a" {
		t.Fatalf("expected descending order by count, got %+v", got)
	}
}

func TestTrimFacetCountsAppliesLimit(t *testing.T) {
	entries := make([]FacetCount, 150)
	for i := range entries {
		entries[i] = FacetCount{Value: "v", Count: uint64(i)}
	}
	out := trimFacetCounts(map[string][]FacetCount{"category": entries}, 100)
	if len(out["category"]) != 100 {
		t.Fatalf("expected 100 entries, got %d", len(out["category"]))
	}
}

func TestApplyDistinctNoAttributePassthrough(t *testing.T) {
	docs := []ScoredDocument{docWith("1", "x", document.Text("a"))}
	got, total := applyDistinct(docs, "", 1)
	if len(got) != 1 || total != 1 {
		t.Fatalf("expected passthrough, got %d docs total %d", len(got), total)
	}
}

func TestApplyDistinctCountOneDeduplicates(t *testing.T) {
	docs := []ScoredDocument{
		docWith("1", "color", document.Text("red")),
		docWith("2", "color", document.Text("red")),
		docWith("3", "color", document.Text("blue")),
	}
	got, total := applyDistinct(docs, "color", 1)
	if len(got) != 2 {
		t.Fatalf("expected 2 deduplicated docs, got %d", len(got))
	}
	if total != 2 {
		t.Fatalf("expected group count 2, got %d", total)
	}
}

func TestApplyDistinctCountTwoAllowsTwoPerGroup(t *testing.T) {
	docs := []ScoredDocument{
		docWith("1", "color", document.Text("red")),
		docWith("2", "color", document.Text("red")),
		docWith("3", "color", document.Text("red")),
	}
	got, total := applyDistinct(docs, "color", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 docs kept, got %d", len(got))
	}
	if total != 1 {
		t.Fatalf("expected 1 group, got %d", total)
	}
}

func TestApplyDistinctMissingFieldSkipped(t *testing.T) {
	docs := []ScoredDocument{
		docWith("1", "color", document.Text("red")),
		{Document: &document.Document{ID: "2", Fields: map[string]document.FieldValue{}}},
	}
	got, total := applyDistinct(docs, "color", 1)
	if len(got) != 1 || total != 1 {
		t.Fatalf("expected only the field-bearing doc counted, got %d docs total %d", len(got), total)
	}
}

func TestApplyDistinctIntegerField(t *testing.T) {
	docs := []ScoredDocument{
		docWith("1", "year", document.Integer(2020)),
		docWith("2", "year", document.Integer(2020)),
		docWith("3", "year", document.Integer(2021)),
	}
	got, total := applyDistinct(docs, "year", 1)
	if len(got) != 2 || total != 2 {
		t.Fatalf("expected 2 groups, got %d docs total %d", len(got), total)
	}
}

func TestApplyDistinctEmptyDocsZeroGroups(t *testing.T) {
	got, total := applyDistinct(nil, "color", 1)
	if len(got) != 0 || total != 0 {
		t.Fatalf("expected zero groups for empty input, got %d docs total %d", len(got), total)
	}
}

func TestApplyDistinctZeroCountPassthrough(t *testing.T) {
	docs := []ScoredDocument{docWith("1", "color", document.Text("red"))}
	got, total := applyDistinct(docs, "color", 0)
	if len(got) != 1 || total != 1 {
		t.Fatalf("expected passthrough when distinct count is 0, got %d docs total %d", len(got), total)
	}
}
