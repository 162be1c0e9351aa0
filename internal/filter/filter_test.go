package filter

import (
	"fmt"
	"testing"

	"github.com/gridlhq/flapjack/internal/document"
)

func compiler(facets ...string) *Compiler {
	set := make(map[string]struct{}, len(facets))
	for _, f := range facets {
		set[f] = struct{}{}
	}
	return NewCompiler(set)
}

func TestEqualsOnNonFacetTextCompilesToMatchNone(t *testing.T) {
	c := compiler() // no facets declared
	q, err := c.Compile(Equals("brand", document.Text("acme")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fmt.Sprintf("%T", q); got != "*query.MatchNoneQuery" {
		t.Errorf("query type = %s, want MatchNoneQuery", got)
	}
}

func TestEqualsOnFacetTextCompiles(t *testing.T) {
	c := compiler("brand")
	q, err := c.Compile(Equals("brand", document.Text("acme")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}

func TestNumericEqualsCompiles(t *testing.T) {
	c := compiler()
	q, err := c.Compile(Equals("price", document.Integer(42)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}

func TestExclusiveFloatBoundErrors(t *testing.T) {
	c := compiler()
	_, err := c.Compile(Filter{Op: OpGreaterThan, Field: "price", Value: document.Float(9.99)})
	if err == nil {
		t.Fatal("expected error for exclusive float bound")
	}
}

func TestTooManyClausesErrors(t *testing.T) {
	c := compiler("tag")
	children := make([]Filter, MaxClauses+1)
	for i := range children {
		children[i] = Equals("tag", document.Text("x"))
	}
	_, err := c.Compile(Or(children...))
	if err == nil {
		t.Fatal("expected error for too many clauses")
	}
}

func TestDeepNotNestingErrors(t *testing.T) {
	c := compiler("tag")
	f := Equals("tag", document.Text("x"))
	for i := 0; i < MaxDepth+2; i++ {
		f = Not(f)
	}
	_, err := c.Compile(f)
	if err == nil {
		t.Fatal("expected error for excessive nesting depth")
	}
}

func TestNotEqualsUsesHybridPath(t *testing.T) {
	c := compiler("tag")
	q, err := c.Compile(NotEquals("tag", document.Text("x")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}

func TestAndOrCompile(t *testing.T) {
	c := compiler("tag")
	f := And(
		Equals("tag", document.Text("x")),
		Or(
			Equals("price", document.Integer(10)),
			Equals("price", document.Integer(20)),
		),
	)
	q, err := c.Compile(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}

func TestRangeFilterCompiles(t *testing.T) {
	c := compiler()
	q, err := c.Compile(Range("price", document.Integer(10), document.Integer(100)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil query")
	}
}
