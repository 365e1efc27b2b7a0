// Package normalize implements text normalization: case folding, optional
// diacritic stripping, and word tokenization. It never raises — malformed
// or exotic input (emoji, CJK, RTL scripts) passes through unchanged
// aside from case folding and the optional diacritic strip.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticStripper decomposes to NFD and removes nonspacing marks (the
// combining-mark code points diacritics decompose into), then recomposes
// is unnecessary since we want the bare base letters.
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize lowercases s and, unless preserveDiacritics is true, strips
// combining diacritic marks. It is idempotent: Normalize(Normalize(s),
// preserveDiacritics) == Normalize(s, preserveDiacritics).
func Normalize(s string, preserveDiacritics bool) string {
	folded := strings.ToLower(s)
	if preserveDiacritics {
		return folded
	}
	stripped, _, err := transform.String(diacriticStripper, folded)
	if err != nil {
		// transform only fails on malformed UTF-8 input it cannot decode;
		// fall back to the case-folded form rather than raising.
		return folded
	}
	return stripped
}

// Token is a maximal run of Unicode letters/numbers produced by Tokenize,
// carrying its byte offsets in the normalized string so callers (the
// scorer) can build match spans without re-scanning.
type Token struct {
	Text  string
	Start int
	End   int
}

// Tokenize normalizes s and splits it on maximal runs of characters that
// are Unicode Letter or Number. The returned tokens are in document order
// and may be an empty slice (never nil-panics, never an error).
func Tokenize(s string, preserveDiacritics bool) []Token {
	normalized := Normalize(s, preserveDiacritics)
	var tokens []Token
	start := -1
	for i, r := range normalized {
		isWord := unicode.IsLetter(r) || unicode.IsNumber(r)
		if isWord {
			if start == -1 {
				start = i
			}
		} else if start != -1 {
			tokens = append(tokens, Token{Text: normalized[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start != -1 {
		tokens = append(tokens, Token{Text: normalized[start:], Start: start, End: len(normalized)})
	}
	return tokens
}

// Words is a convenience over Tokenize that discards offsets, used by
// callers (the parser) that only need the token text.
func Words(s string, preserveDiacritics bool) []string {
	toks := Tokenize(s, preserveDiacritics)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}
