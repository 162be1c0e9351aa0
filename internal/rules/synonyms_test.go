package rules

import (
	"path/filepath"
	"sort"
	"testing"
)

func TestSynonymMatchesTextByType(t *testing.T) {
	cases := []struct {
		name string
		syn  Synonym
		text string
		want bool
	}{
		{"regular hit", Synonym{Type: SynonymRegular, Synonyms: []string{"couch", "sofa"}}, "SOFA", true},
		{"regular miss", Synonym{Type: SynonymRegular, Synonyms: []string{"couch", "sofa"}}, "chair", false},
		{"oneway input", Synonym{Type: SynonymOneWay, Input: "NYC", Synonyms: []string{"New York City"}}, "nyc", true},
		{"oneway synonym", Synonym{Type: SynonymOneWay, Input: "NYC", Synonyms: []string{"New York City"}}, "new york", true},
		{"altcorrection word", Synonym{Type: SynonymAltCorrection1, Word: "tarte", Corrections: []string{"tart"}}, "TART", true},
		{"placeholder", Synonym{Type: SynonymPlaceholder, Placeholder: "<model>", Replacements: []string{"120", "130"}}, "130", true},
	}
	for _, c := range cases {
		if got := c.syn.MatchesText(c.text); got != c.want {
			t.Errorf("%s: MatchesText(%q) = %v, want %v", c.name, c.text, got, c.want)
		}
	}
}

func TestSynonymStoreCRUD(t *testing.T) {
	store := NewSynonymStore()
	store.Insert(Synonym{ObjectID: "s1", Type: SynonymRegular, Synonyms: []string{"couch", "sofa"}})

	if _, ok := store.Get("s1"); !ok {
		t.Fatal("expected s1 to be present")
	}
	if !store.Remove("s1") {
		t.Fatal("expected removal to succeed")
	}
	if _, ok := store.Get("s1"); ok {
		t.Fatal("expected s1 to be gone")
	}
	if store.Remove("s1") {
		t.Fatal("expected second removal to report failure")
	}
}

func TestSynonymStoreClear(t *testing.T) {
	store := NewSynonymStore()
	store.Insert(Synonym{ObjectID: "s1", Type: SynonymRegular})
	store.Insert(Synonym{ObjectID: "s2", Type: SynonymRegular})
	store.Clear()
	if _, total := store.Search("", "", 0, 10); total != 0 {
		t.Fatalf("expected empty store after clear, got %d", total)
	}
}

func TestSynonymStoreSearchFiltersByTypeAndText(t *testing.T) {
	store := NewSynonymStore()
	store.Insert(Synonym{ObjectID: "s1", Type: SynonymRegular, Synonyms: []string{"couch", "sofa"}})
	store.Insert(Synonym{ObjectID: "s2", Type: SynonymOneWay, Input: "NYC", Synonyms: []string{"New York City"}})

	results, total := store.Search("sofa", "", 0, 10)
	if total != 1 || len(results) != 1 || results[0].ObjectID != "s1" {
		t.Fatalf("expected only s1 to match 'sofa', got total=%d results=%+v", total, results)
	}

	results, total = store.Search("", SynonymOneWay, 0, 10)
	if total != 1 || results[0].ObjectID != "s2" {
		t.Fatalf("expected only s2 to match type filter, got total=%d results=%+v", total, results)
	}
}

func TestSynonymStoreSearchPagination(t *testing.T) {
	store := NewSynonymStore()
	for _, id := range []string{"a", "b", "c"} {
		store.Insert(Synonym{ObjectID: id, Type: SynonymRegular, Synonyms: []string{"x"}})
	}
	page, total := store.Search("x", "", 0, 2)
	if total != 3 || len(page) != 2 {
		t.Fatalf("expected total 3, page len 2; got total=%d page=%+v", total, page)
	}
}

func TestExpandQueryRegularSubstitutesTokens(t *testing.T) {
	store := NewSynonymStore()
	store.Insert(Synonym{ObjectID: "s1", Type: SynonymRegular, Synonyms: []string{"couch", "sofa"}})

	expanded := store.ExpandQuery("blue couch")
	sort.Strings(expanded)
	want := []string{"blue couch", "blue sofa"}
	sort.Strings(want)
	if len(expanded) != len(want) {
		t.Fatalf("expected %v, got %v", want, expanded)
	}
	for i := range want {
		if expanded[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, expanded)
		}
	}
}

func TestExpandQueryOneWayIsNotReversible(t *testing.T) {
	store := NewSynonymStore()
	store.Insert(Synonym{ObjectID: "s1", Type: SynonymOneWay, Input: "nyc", Synonyms: []string{"new york city"}})

	expanded := store.ExpandQuery("nyc apartments")
	found := false
	for _, q := range expanded {
		if q == "new york city apartments" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected expansion of input to synonym, got %v", expanded)
	}

	reverse := store.ExpandQuery("new york city apartments")
	if len(reverse) != 1 {
		t.Fatalf("expected one-way synonym not to expand in reverse, got %v", reverse)
	}
}

func TestExpandQueryAltCorrectionAndPlaceholderDoNotExpand(t *testing.T) {
	store := NewSynonymStore()
	store.Insert(Synonym{ObjectID: "s1", Type: SynonymAltCorrection1, Word: "tarte", Corrections: []string{"tart"}})
	store.Insert(Synonym{ObjectID: "s2", Type: SynonymPlaceholder, Placeholder: "<model>", Replacements: []string{"120"}})

	expanded := store.ExpandQuery("tart recipe")
	if len(expanded) != 1 {
		t.Fatalf("expected no query expansion from alt-correction/placeholder synonyms, got %v", expanded)
	}
}

func TestSynonymStoreSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.json")

	store := NewSynonymStore()
	store.path = path
	store.Insert(Synonym{ObjectID: "s1", Type: SynonymRegular, Synonyms: []string{"couch", "sofa"}})
	if err := store.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadSynonymStore(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	syn, ok := loaded.Get("s1")
	if !ok {
		t.Fatal("expected loaded store to contain s1")
	}
	if len(syn.Synonyms) != 2 {
		t.Fatalf("unexpected round-tripped synonym: %+v", syn)
	}
}

func TestLoadSynonymStoreMissingFileIsEmpty(t *testing.T) {
	store, err := LoadSynonymStore(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("expected missing file to be tolerated, got error: %v", err)
	}
	if _, total := store.Search("", "", 0, 10); total != 0 {
		t.Fatal("expected empty store")
	}
}
