// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package searchindex

import (
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

const tokenizerTypeName = "flapjack_cjk_tokenizer"

func init() {
	registry.RegisterTokenizer(tokenizerTypeName, func(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
		return &cjkTokenizer{}, nil
	})
}

// cjkTokenizer splits on Unicode whitespace/punctuation, treats every CJK
// rune (Han, Hangul, Hiragana, Katakana) as its own token, and additionally
// emits a concatenation token for runs of 2-6 adjacent short (<=8 byte)
// alphanumeric tokens separated only by whitespace or punctuation, so "hot dog" also
// indexes as "hotdog". Tokenization never crosses a \x00 byte, which the
// schema mapper uses as a nested-path separator.
type cjkTokenizer struct{}

func newCJKTokenizer() *cjkTokenizer { return &cjkTokenizer{} }

func isCJKRune(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (t *cjkTokenizer) Tokenize(input []byte) analysis.TokenStream {
	var stream analysis.TokenStream
	position := 1

	runes := []rune(string(input))
	n := len(runes)
	i := 0

	// byteOffsets[i] gives the byte offset of runes[i] within input.
	byteOffsets := make([]int, n+1)
	offset := 0
	for idx, r := range runes {
		byteOffsets[idx] = offset
		offset += runeLen(r)
	}
	byteOffsets[n] = offset

	type plainToken struct {
		start, end int // rune indices [start,end)
		term       []rune
	}
	var runTokens []plainToken

	flushConcat := func() {
		if len(runTokens) < 2 {
			runTokens = nil
			return
		}
		for span := 2; span <= 6 && span <= len(runTokens); span++ {
			for start := 0; start+span <= len(runTokens); start++ {
				var concat []rune
				ok := true
				for _, tok := range runTokens[start : start+span] {
					if len(string(tok.term)) > 8 {
						ok = false
						break
					}
					concat = append(concat, tok.term...)
				}
				if !ok || len(concat) == 0 {
					continue
				}
				stream = append(stream, &analysis.Token{
					Term:     []byte(string(concat)),
					Start:    byteOffsets[runTokens[start].start],
					End:      byteOffsets[runTokens[start+span-1].end],
					Position: position,
					Type:     analysis.AlphaNumeric,
				})
				position++
			}
		}
		runTokens = nil
	}

	for i < n {
		r := runes[i]

		switch {
		case r == 0:
			flushConcat()
			i++
		case isCJKRune(r):
			flushConcat()
			stream = append(stream, &analysis.Token{
				Term:     []byte(string(r)),
				Start:    byteOffsets[i],
				End:      byteOffsets[i+1],
				Position: position,
				Type:     analysis.Ideographic,
			})
			position++
			i++
		case isWordRune(r):
			start := i
			for i < n && isWordRune(runes[i]) {
				i++
			}
			term := runes[start:i]
			runTokens = append(runTokens, plainToken{start: start, end: i, term: term})
			stream = append(stream, &analysis.Token{
				Term:     []byte(string(term)),
				Start:    byteOffsets[start],
				End:      byteOffsets[i],
				Position: position,
				Type:     analysis.AlphaNumeric,
			})
			position++
		default:
			// Whitespace and punctuation do not break a pending
			// concatenation run, so "hot dog" also indexes as "hotdog".
			i++
		}
	}
	flushConcat()

	return stream
}

func runeLen(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}
