package tenant

import (
	"path/filepath"
	"testing"
)

func TestParseFacetModifier(t *testing.T) {
	cases := map[string]string{
		"category":           "category",
		"filterOnly(price)":  "price",
		"searchable(brand)":  "brand",
		"afterDistinct(color)": "color",
	}
	for in, want := range cases {
		if got := parseFacetModifier(in); got != want {
			t.Errorf("parseFacetModifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFacetSet(t *testing.T) {
	s := Settings{AttributesForFaceting: []string{"category", "filterOnly(price)", "searchable(brand)"}}
	set := s.FacetSet()
	for _, want := range []string{"category", "price", "brand"} {
		if _, ok := set[want]; !ok {
			t.Errorf("expected %q in facet set", want)
		}
	}
}

func TestSearchableFacetSet(t *testing.T) {
	s := Settings{AttributesForFaceting: []string{"category", "searchable(brand)"}}
	set := s.SearchableFacetSet()
	if _, ok := set["brand"]; !ok {
		t.Fatal("expected brand in searchable facet set")
	}
	if _, ok := set["category"]; ok {
		t.Fatal("category should not be in searchable facet set")
	}
}

func TestShouldRetrieve(t *testing.T) {
	s := Settings{}
	if !s.ShouldRetrieve("anything") {
		t.Fatal("expected default settings to retrieve all fields")
	}
	s.UnretrievableAttributes = []string{"secret"}
	if s.ShouldRetrieve("secret") {
		t.Fatal("expected unretrievable field to be excluded")
	}
	s.AttributesToRetrieve = []string{"title"}
	if s.ShouldRetrieve("price") {
		t.Fatal("expected field not in attributesToRetrieve to be excluded")
	}
	if !s.ShouldRetrieve("title") {
		t.Fatal("expected title to be retrievable")
	}
}

func TestDistinctValueAsCount(t *testing.T) {
	tru := true
	n := uint32(3)
	if (DistinctValue{}).AsCount() != 0 {
		t.Fatal("expected zero value distinct to be 0")
	}
	if (DistinctValue{Bool: &tru}).AsCount() != 1 {
		t.Fatal("expected Bool(true) distinct to be 1")
	}
	if (DistinctValue{Integer: &n}).AsCount() != 3 {
		t.Fatal("expected Integer(3) distinct to be 3")
	}
}

func TestSettingsSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	s := DefaultSettings()
	s.AttributesForFaceting = []string{"category"}
	if err := s.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.AttributesForFaceting) != 1 || loaded.AttributesForFaceting[0] != "category" {
		t.Fatalf("unexpected round-tripped settings: %+v", loaded)
	}
}

func TestLoadSettingsMissingFileReturnsDefault(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("expected missing file tolerated, got %v", err)
	}
	if s.HitsPerPage != 20 {
		t.Fatalf("expected default hitsPerPage 20, got %d", s.HitsPerPage)
	}
}
