package searchindex

import "testing"

func TestTokenizerSplitsOnWhitespace(t *testing.T) {
	tok := newCJKTokenizer()
	stream := tok.Tokenize([]byte("hot dog"))

	var terms []string
	for _, tk := range stream {
		terms = append(terms, string(tk.Term))
	}

	found := map[string]bool{}
	for _, term := range terms {
		found[term] = true
	}
	if !found["hot"] || !found["dog"] {
		t.Fatalf("expected plain tokens hot/dog, got %v", terms)
	}
	if !found["hotdog"] {
		t.Fatalf("expected concatenation token hotdog, got %v", terms)
	}
}

func TestTokenizerEmitsEachCJKRuneSeparately(t *testing.T) {
	tok := newCJKTokenizer()
	stream := tok.Tokenize([]byte("東京"))
	if len(stream) != 2 {
		t.Fatalf("expected 2 tokens for two CJK runes, got %d: %+v", len(stream), stream)
	}
}

func TestTokenizerDoesNotConcatenateAcrossNullByte(t *testing.T) {
	tok := newCJKTokenizer()
	stream := tok.Tokenize([]byte("ab\x00cd"))

	for _, tk := range stream {
		if string(tk.Term) == "abcd" {
			t.Fatalf("expected no concatenation across a null byte, got token stream %+v", stream)
		}
	}
}

func TestTokenizerSkipsConcatenationForLongTokens(t *testing.T) {
	tok := newCJKTokenizer()
	stream := tok.Tokenize([]byte("elephants mouse"))
	for _, tk := range stream {
		if string(tk.Term) == "elephantsmouse" {
			t.Fatalf("did not expect concatenation of a >8 byte token, got %+v", stream)
		}
	}
}

func TestIsFacetLike(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"electronics", true},
		{"electronics/phones", true},
		{"a-b_c", true},
		{"has spaces", false},
		{"this-string-is-definitely-too-long-for-a-facet", false},
	}
	for _, c := range cases {
		if got := IsFacetLike(c.in); got != c.want {
			t.Errorf("IsFacetLike(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
