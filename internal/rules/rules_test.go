package rules

import (
	"path/filepath"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestRuleIsEnabledDefaultsTrue(t *testing.T) {
	r := Rule{ObjectID: "r1"}
	if !r.IsEnabled() {
		t.Fatal("expected rule with nil Enabled to default to enabled")
	}
	r.Enabled = boolPtr(false)
	if r.IsEnabled() {
		t.Fatal("expected disabled rule to report disabled")
	}
}

func TestRuleIsValidAt(t *testing.T) {
	r := Rule{ObjectID: "r1"}
	if !r.IsValidAt(1000) {
		t.Fatal("rule with no validity windows should always be valid")
	}
	r.Validity = []TimeRange{{From: 100, Until: 200}}
	if !r.IsValidAt(150) {
		t.Fatal("expected timestamp inside window to be valid")
	}
	if r.IsValidAt(300) {
		t.Fatal("expected timestamp outside window to be invalid")
	}
}

func TestRuleMatchesAnchoring(t *testing.T) {
	cases := []struct {
		anchoring Anchoring
		pattern   string
		query     string
		want      bool
	}{
		{AnchorIs, "shoes", "shoes", true},
		{AnchorIs, "shoes", "running shoes", false},
		{AnchorStartsWith, "run", "running shoes", true},
		{AnchorEndsWith, "shoes", "running shoes", true},
		{AnchorContains, "ning sh", "running shoes", true},
		{AnchorContains, "xyz", "running shoes", false},
	}
	for _, c := range cases {
		r := Rule{ObjectID: "r1", Conditions: []Condition{{Pattern: c.pattern, Anchoring: c.anchoring}}}
		if got := r.Matches(c.query, ""); got != c.want {
			t.Errorf("anchoring=%v pattern=%q query=%q: got %v, want %v", c.anchoring, c.pattern, c.query, got, c.want)
		}
	}
}

func TestRuleMatchesNoConditionsAlwaysTrue(t *testing.T) {
	r := Rule{ObjectID: "r1"}
	if !r.Matches("anything", "") {
		t.Fatal("expected rule with no conditions to always match")
	}
}

func TestRuleMatchesRespectsContext(t *testing.T) {
	r := Rule{ObjectID: "r1", Conditions: []Condition{{Pattern: "shoes", Anchoring: AnchorContains, Context: "mobile"}}}
	if r.Matches("running shoes", "desktop") {
		t.Fatal("expected condition scoped to mobile context not to match desktop context")
	}
	if !r.Matches("running shoes", "mobile") {
		t.Fatal("expected condition scoped to mobile context to match mobile context")
	}
}

func TestRuleMatchesDisabledNeverMatches(t *testing.T) {
	r := Rule{ObjectID: "r1", Enabled: boolPtr(false)}
	if r.Matches("anything", "") {
		t.Fatal("expected disabled rule never to match")
	}
}

func TestApplyRulesCollectsPinsHiddenUserData(t *testing.T) {
	store := NewRuleStore()
	store.Insert(Rule{
		ObjectID: "promote-shoes",
		Conditions: []Condition{{Pattern: "shoes", Anchoring: AnchorContains}},
		Consequence: Consequence{
			Promote:  []Promote{{ObjectID: "shoe-1", Position: 0}},
			UserData: map[string]interface{}{"banner": "sale"},
		},
	})
	store.Insert(Rule{
		ObjectID:    "hide-discontinued",
		Conditions:  []Condition{{Pattern: "shoes", Anchoring: AnchorContains}},
		Consequence: Consequence{Hide: []Hide{{ObjectID: "shoe-old"}}},
	})

	effects := store.ApplyRules("running shoes", "")
	if len(effects.AppliedRules) != 2 {
		t.Fatalf("expected 2 applied rules, got %d", len(effects.AppliedRules))
	}
	if len(effects.Pins) != 1 || effects.Pins[0].ObjectID != "shoe-1" {
		t.Fatalf("unexpected pins: %+v", effects.Pins)
	}
	if len(effects.Hidden) != 1 || effects.Hidden[0] != "shoe-old" {
		t.Fatalf("unexpected hidden: %+v", effects.Hidden)
	}
	if len(effects.UserData) != 1 {
		t.Fatalf("expected 1 userData entry, got %d", len(effects.UserData))
	}
}

func TestApplyRulesMultiplePinsSamePosition(t *testing.T) {
	store := NewRuleStore()
	store.Insert(Rule{
		ObjectID:    "rule-a",
		Consequence: Consequence{Promote: []Promote{{ObjectID: "a", Position: 0}}},
	})
	store.Insert(Rule{
		ObjectID:    "rule-b",
		Consequence: Consequence{Promote: []Promote{{ObjectID: "b", Position: 0}}},
	})

	effects := store.ApplyRules("q", "")
	if len(effects.Pins) != 2 {
		t.Fatalf("expected 2 pins, got %d", len(effects.Pins))
	}
	if effects.Pins[0].ObjectID != "a" || effects.Pins[1].ObjectID != "b" {
		t.Fatalf("expected stable ordering a,b for same-position pins, got %+v", effects.Pins)
	}
}

func TestApplyRulesMultiplePromoteExpandsPositions(t *testing.T) {
	store := NewRuleStore()
	store.Insert(Rule{
		ObjectID:    "rule-a",
		Consequence: Consequence{Promote: []Promote{{ObjectIDs: []string{"x", "y"}, Position: 2}}},
	})
	effects := store.ApplyRules("q", "")
	if len(effects.Pins) != 2 {
		t.Fatalf("expected 2 pins, got %d", len(effects.Pins))
	}
	if effects.Pins[0] != (Pin{ObjectID: "x", Position: 2}) || effects.Pins[1] != (Pin{ObjectID: "y", Position: 3}) {
		t.Fatalf("unexpected pins: %+v", effects.Pins)
	}
}

func TestApplyQueryRewriteReturnsFirstMatch(t *testing.T) {
	store := NewRuleStore()
	store.Insert(Rule{
		ObjectID:    "rewrite-1",
		Conditions:  []Condition{{Pattern: "phones", Anchoring: AnchorContains}},
		Consequence: Consequence{Params: ConsequenceParams{Query: "smartphones"}},
	})
	store.Insert(Rule{
		ObjectID:    "rewrite-2",
		Conditions:  []Condition{{Pattern: "phones", Anchoring: AnchorContains}},
		Consequence: Consequence{Params: ConsequenceParams{Query: "mobile devices"}},
	})

	rewrite, ok := store.ApplyQueryRewrite("cheap phones", "")
	if !ok {
		t.Fatal("expected a rewrite")
	}
	if rewrite != "smartphones" {
		t.Fatalf("expected first matching rule's rewrite, got %q", rewrite)
	}
}

func TestApplyQueryRewriteNoMatch(t *testing.T) {
	store := NewRuleStore()
	store.Insert(Rule{ObjectID: "r1", Conditions: []Condition{{Pattern: "xyz", Anchoring: AnchorIs}}})
	if _, ok := store.ApplyQueryRewrite("abc", ""); ok {
		t.Fatal("expected no rewrite when nothing matches")
	}
}

func TestRuleStoreRemovePreservesOrder(t *testing.T) {
	store := NewRuleStore()
	store.Insert(Rule{ObjectID: "a"})
	store.Insert(Rule{ObjectID: "b"})
	store.Insert(Rule{ObjectID: "c"})
	if !store.Remove("b") {
		t.Fatal("expected removal to report success")
	}
	all := store.All()
	if len(all) != 2 || all[0].ObjectID != "a" || all[1].ObjectID != "c" {
		t.Fatalf("expected order [a c], got %+v", all)
	}
	if store.Remove("b") {
		t.Fatal("expected second removal of same id to report failure")
	}
}

func TestRuleStoreSearch(t *testing.T) {
	store := NewRuleStore()
	store.Insert(Rule{ObjectID: "zz-rule", Description: "boost winter coats"})
	store.Insert(Rule{ObjectID: "aa-rule", Conditions: []Condition{{Pattern: "coats", Anchoring: AnchorContains}}})
	store.Insert(Rule{ObjectID: "unrelated"})

	results, total := store.Search("coat", 0, 10)
	if total != 2 {
		t.Fatalf("expected 2 matches, got %d", total)
	}
	if len(results) != 2 || results[0].ObjectID != "aa-rule" || results[1].ObjectID != "zz-rule" {
		t.Fatalf("expected sorted results [aa-rule zz-rule], got %+v", results)
	}
}

func TestRuleStoreSearchPagination(t *testing.T) {
	store := NewRuleStore()
	for _, id := range []string{"r1", "r2", "r3"} {
		store.Insert(Rule{ObjectID: id})
	}
	page, total := store.Search("", 1, 2)
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(page) != 1 || page[0].ObjectID != "r3" {
		t.Fatalf("expected second page to contain only r3, got %+v", page)
	}
}

func TestRuleStoreSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")

	store := NewRuleStore()
	store.path = path
	store.Insert(Rule{
		ObjectID:   "r1",
		Conditions: []Condition{{Pattern: "shoes", Anchoring: AnchorContains}},
		Consequence: Consequence{
			Promote: []Promote{{ObjectID: "shoe-1", Position: 0}},
		},
	})
	if err := store.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadRuleStore(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	rule, ok := loaded.Get("r1")
	if !ok {
		t.Fatal("expected loaded store to contain r1")
	}
	if len(rule.Consequence.Promote) != 1 || rule.Consequence.Promote[0].ObjectID != "shoe-1" {
		t.Fatalf("unexpected round-tripped rule: %+v", rule)
	}
}

func TestLoadRuleStoreMissingFileIsEmpty(t *testing.T) {
	store, err := LoadRuleStore(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("expected missing file to be tolerated, got error: %v", err)
	}
	if len(store.All()) != 0 {
		t.Fatal("expected empty store")
	}
}
