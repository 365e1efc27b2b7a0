// Package query implements the query parser: a single-pass, total
// transformation of a raw, user-typed string into a structured
// document.ParsedQuery. Parsing never fails outright; malformed syntax
// (an invalid regex) is left out of the structure and reported as a
// non-fatal Error alongside it, rather than ever panicking or erroring
// on caller-supplied strings.
package query

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antflydb/vaultsearch/document"
)

// Settings is the subset of the engine's configuration the parser reads.
// config.Settings adapts to this via QuerySettings().
type Settings struct {
	CommandsEnablePrefix bool
	CommandsPrefixChar   rune
	PreserveDiacritics   bool
}

// DefaultSettings mirrors the engine's default settings table.
func DefaultSettings() Settings {
	return Settings{
		CommandsEnablePrefix: true,
		CommandsPrefixChar:   '>',
		PreserveDiacritics:   true,
	}
}

// ErrorKind classifies a non-fatal parse error.
type ErrorKind string

// ErrKindRegex is the only error kind the parser currently produces: an
// invalid /pattern/flags clause that was dropped from the structure.
const ErrKindRegex ErrorKind = "regex"

// Error is a non-fatal parse error, attached to the parsed query rather
// than returned as a Go error — malformed input still produces a
// best-effort ParsedQuery.
type Error struct {
	Kind     ErrorKind
	Message  string
	Position int
}

var orToken = "OR"

// Parse runs the parser and discards any non-fatal errors. Use
// ParseWithErrors to see them.
func Parse(raw string, s Settings) document.ParsedQuery {
	q, _ := ParseWithErrors(raw, s)
	return q
}

// ParseWithErrors parses raw into a structured query following a fixed
// precedence list, returning any non-fatal errors encountered along the
// way. Same input and settings always produce identical output.
func ParseWithErrors(raw string, s Settings) (document.ParsedQuery, []Error) {
	q := document.ParsedQuery{Raw: raw, Mode: document.ModeFiles}
	trimmed := strings.TrimSpace(raw)

	// Step 1: commands mode short-circuits everything else.
	if s.CommandsEnablePrefix && s.CommandsPrefixChar != 0 && strings.HasPrefix(trimmed, string(s.CommandsPrefixChar)) {
		q.Mode = document.ModeCommands
		remainder := strings.TrimSpace(strings.TrimPrefix(trimmed, string(s.CommandsPrefixChar)))
		if remainder != "" {
			q.Terms = []string{remainder}
		}
		return q, nil
	}

	var errs []Error

	// Step 2: literal phrases.
	phrases, residual := extractPhrases(trimmed)
	q.Phrases = phrases

	// Step 3: first valid /pattern/flags? clause.
	regexClause, residual2, regexErrs := extractRegex(residual)
	q.Regex = regexClause
	errs = append(errs, regexErrs...)

	// Step 4/5: tokenize the remainder and classify.
	tokens := strings.Fields(residual2)
	classifyTokens(tokens, &q)

	return q, errs
}

// extractPhrases finds all maximal "…" substrings with a non-empty
// interior, returning them in order and the input with each match
// replaced by a single space (so token boundaries survive). An unclosed
// quote is left untouched in the residual, to be tokenized as literal
// text.
func extractPhrases(s string) ([]string, string) {
	var phrases []string
	var out strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '"' {
			end := strings.IndexByte(s[i+1:], '"')
			if end == -1 {
				// Unclosed quote: leave the rest as literal residual.
				out.WriteString(s[i:])
				return phrases, out.String()
			}
			interior := s[i+1 : i+1+end]
			if interior != "" {
				phrases = append(phrases, interior)
				out.WriteByte(' ')
			} else {
				// Empty "" is not a phrase; keep it as inert residual text.
				out.WriteString(`""`)
			}
			i = i + 1 + end + 1
			continue
		}
		out.WriteByte(s[i])
		i++
	}
	return phrases, out.String()
}

// regexClauseRe matches /PATTERN/FLAGS? where PATTERN is any run not
// containing an unescaped '/'. The character class limits flags to the
// allowed letters; a repeated letter is rejected separately in
// extractRegex, since regexp can't easily bound a character class to
// "at most one of each".
var regexClauseRe = regexp.MustCompile(`/((?:\\.|[^/\\])+)/([igmsuy]*)`)

// extractRegex extracts and validates the first /pattern/flags clause in
// s, removing it from the residual regardless of validity — even an
// invalid clause is consumed: it is discarded and reported, not left as
// literal term tokens.
func extractRegex(s string) (*document.RegexClause, string, []Error) {
	loc := regexClauseRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return nil, s, nil
	}
	fullStart, fullEnd := loc[0], loc[1]
	pattern := s[loc[2]:loc[3]]
	flags := s[loc[4]:loc[5]]
	residual := s[:fullStart] + " " + s[fullEnd:]

	seen := make(map[rune]bool, len(flags))
	for _, f := range flags {
		if seen[f] {
			return nil, residual, []Error{{
				Kind:     ErrKindRegex,
				Message:  "invalid regex: repeated flag " + string(f),
				Position: fullStart,
			}}
		}
		seen[f] = true
	}

	unescaped := strings.ReplaceAll(pattern, `\/`, `/`)
	compiled := translateFlags(unescaped, flags)
	if _, err := regexp.Compile(compiled); err != nil {
		return nil, residual, []Error{{
			Kind:     ErrKindRegex,
			Message:  "invalid regex: " + err.Error(),
			Position: fullStart,
		}}
	}

	return &document.RegexClause{Source: unescaped, Flags: flags}, residual, nil
}

// translateFlags maps the JS-style flag letters the parser accepts onto
// Go regexp's inline flag syntax for validation purposes. g, u, and y have
// no Go regexp equivalent (global/unicode/sticky are execution-mode
// concerns handled by the caller, not the pattern) and are accepted but
// ignored here.
func translateFlags(pattern, flags string) string {
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i':
			inline.WriteByte('i')
		case 'm':
			inline.WriteByte('m')
		case 's':
			inline.WriteByte('s')
		}
	}
	if inline.Len() == 0 {
		return pattern
	}
	return "(?" + inline.String() + ")" + pattern
}

// classifyTokens classifies whitespace-delimited tokens into filters,
// excludes, field restrictions, or ordinary terms, and resolves OR
// tokens into or-groups.
func classifyTokens(tokens []string, q *document.ParsedQuery) {
	var ordinary []string
	var pendingGroup []string
	inGroup := false
	expectMore := false // true right after an OR token, awaiting the next chained term

	flushGroup := func() {
		if !inGroup {
			return
		}
		if len(pendingGroup) >= 2 {
			q.OrGroups = append(q.OrGroups, append([]string(nil), pendingGroup...))
		} else {
			ordinary = append(ordinary, pendingGroup...)
		}
		pendingGroup = nil
		inGroup = false
		expectMore = false
	}

	handleOrdinary := func(term string) {
		switch {
		case expectMore:
			pendingGroup = append(pendingGroup, term)
			expectMore = false
		case inGroup:
			// A term not chained by an immediately preceding OR ends the
			// group; it starts a fresh ordinary sequence of its own.
			flushGroup()
			ordinary = append(ordinary, term)
		default:
			ordinary = append(ordinary, term)
		}
	}

	handleOr := func() {
		if inGroup {
			expectMore = true
			return
		}
		if len(ordinary) > 0 {
			last := ordinary[len(ordinary)-1]
			ordinary = ordinary[:len(ordinary)-1]
			pendingGroup = []string{last}
			inGroup = true
			expectMore = true
		}
		// Leading OR with nothing to chain from is simply ignored.
	}

	for _, tok := range tokens {
		switch {
		case strings.EqualFold(tok, orToken) && len(tok) == 2:
			handleOr()
		case tok == "#":
			flushGroup()
			q.Filters.Restricted = document.RestrictHeadings
		case tok == "@":
			flushGroup()
			q.Filters.Restricted = document.RestrictSymbols
		case len(tok) > 1 && strings.HasPrefix(tok, "#"):
			flushGroup()
			q.Filters.Tag = append(q.Filters.Tag, tok[1:])
		case strings.HasPrefix(tok, "tag:") && len(tok) > len("tag:"):
			flushGroup()
			q.Filters.Tag = append(q.Filters.Tag, tok[len("tag:"):])
		case strings.HasPrefix(tok, "path:"):
			flushGroup()
			q.Filters.Path = append(q.Filters.Path, tok[len("path:"):])
		case strings.HasPrefix(tok, "in:"):
			flushGroup()
			q.Filters.In = append(q.Filters.In, tok[len("in:"):])
		case len(tok) > 1 && strings.HasPrefix(tok, "-"):
			flushGroup()
			q.Excludes = append(q.Excludes, tok[1:])
		default:
			handleOrdinary(tok)
		}
	}
	flushGroup()

	q.Terms = ordinary
}

// This blank reference to unicode.IsSpace documents the token boundary
// rule classifyTokens relies on: strings.Fields already splits on any run
// of unicode.IsSpace runes.
var _ = unicode.IsSpace

// CompileRegex compiles a parsed RegexClause the same way extractRegex
// validated it at parse time, for the provider's regex post-filter. The
// "global" flag has no Go regexp equivalent for a match test and is
// ignored, same as at parse time.
func CompileRegex(c *document.RegexClause) (*regexp.Regexp, error) {
	if c == nil {
		return nil, nil
	}
	return regexp.Compile(translateFlags(c.Source, c.Flags))
}
