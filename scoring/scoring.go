// Package scoring implements the per-document scorer: given a document, a
// parsed query, and a Config, it produces either a rejection or a
// document.Result carrying a score and match spans. Weights are held in a
// Config struct rather than scattered constants, so a caller can tune
// ranking without touching scorer logic.
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/antflydb/vaultsearch/document"
	"github.com/antflydb/vaultsearch/normalize"
)

// Config holds the per-field weights plus the recency half-life.
type Config struct {
	WeightTitle    float64
	WeightHeadings float64
	WeightPath     float64
	WeightTags     float64
	WeightSymbols  float64
	WeightBody     float64
	WeightRecency  float64
	PhraseBonus    float64
	HalfLifeDays   float64

	PreserveDiacritics bool
}

// DefaultConfig returns the scorer's default weights and half-life.
func DefaultConfig() Config {
	return Config{
		WeightTitle:    4.0,
		WeightHeadings: 2.0,
		WeightPath:     1.5,
		WeightTags:     1.5,
		WeightSymbols:  1.5,
		WeightBody:     1.0,
		WeightRecency:  0.5,
		PhraseBonus:    0.25,
		HalfLifeDays:   30,
	}
}

// fieldWeight returns the configured weight for a field.
func (c Config) fieldWeight(f document.FieldName) float64 {
	switch f {
	case document.FieldTitle:
		return c.WeightTitle
	case document.FieldHeadings:
		return c.WeightHeadings
	case document.FieldPath:
		return c.WeightPath
	case document.FieldTags:
		return c.WeightTags
	case document.FieldSymbols:
		return c.WeightSymbols
	case document.FieldBody:
		return c.WeightBody
	default:
		return 0
	}
}

// Score scores d against q. The second return value is false when d is
// rejected (an exclude term matched).
func Score(d *document.Document, q document.ParsedQuery, c Config, now time.Time) (document.Result, bool) {
	all := strings.Join([]string{
		normalize.Normalize(d.Title, c.PreserveDiacritics),
		normalize.Normalize(joinAll(d.Headings), c.PreserveDiacritics),
		normalize.Normalize(joinAll(d.Path), c.PreserveDiacritics),
		normalize.Normalize(joinAll(d.Tags), c.PreserveDiacritics),
		normalize.Normalize(joinAll(d.Symbols), c.PreserveDiacritics),
		normalize.Normalize(d.Body, c.PreserveDiacritics),
	}, " ")

	for _, ex := range q.Excludes {
		needle := normalize.Normalize(ex, c.PreserveDiacritics)
		if needle != "" && strings.Contains(all, needle) {
			return document.Result{}, false
		}
	}

	terms := allTerms(q)

	var spans []document.MatchSpan
	total := 0.0
	for _, f := range document.AllFields {
		if q.Filters.Restricted != document.RestrictNone && !restrictionAllows(q.Filters.Restricted, f) {
			continue
		}
		fieldScore, fieldSpans := scoreField(d, f, terms, c.PreserveDiacritics)
		total += c.fieldWeight(f) * fieldScore
		spans = append(spans, fieldSpans...)
	}

	if len(q.Phrases) > 0 {
		titleBody := normalize.Normalize(d.Title+" "+d.Body, c.PreserveDiacritics)
		occurrences := 0
		for _, p := range q.Phrases {
			needle := normalize.Normalize(p, c.PreserveDiacritics)
			if needle == "" {
				continue
			}
			occurrences += strings.Count(titleBody, needle)
		}
		total += c.PhraseBonus * float64(occurrences)
	}

	total += c.WeightRecency * recency(d.MTime, now, c.HalfLifeDays)

	return document.Result{ID: d.ID, Score: total, MatchSpans: spans}, true
}

func restrictionAllows(r document.FieldRestriction, f document.FieldName) bool {
	switch r {
	case document.RestrictHeadings:
		return f == document.FieldHeadings
	case document.RestrictSymbols:
		return f == document.FieldSymbols
	default:
		return true
	}
}

// allTerms gathers every positive term the scorer treats equivalently:
// ordinary terms plus every term inside every or-group (the provider has
// already resolved group membership for candidate selection; the scorer
// just needs something to match against for ranking).
func allTerms(q document.ParsedQuery) []string {
	terms := append([]string(nil), q.Terms...)
	for _, g := range q.OrGroups {
		terms = append(terms, g...)
	}
	return terms
}

// scoreField computes the per-field aggregate score and the best match
// span per term, if any.
func scoreField(d *document.Document, f document.FieldName, terms []string, preserveDiacritics bool) (float64, []document.MatchSpan) {
	if len(terms) == 0 {
		return 0, nil
	}
	raw := d.Field(f)
	toks := normalize.Tokenize(raw, preserveDiacritics)

	var spans []document.MatchSpan
	sum := 0.0
	for _, term := range terms {
		nt := normalize.Normalize(term, preserveDiacritics)
		best := 0.0
		var bestTok *normalize.Token
		for i := range toks {
			tok := toks[i]
			s := tokenScore(nt, tok.Text)
			if s > best {
				best = s
				bestTok = &toks[i]
			}
		}
		sum += best
		if bestTok != nil && best > 0 {
			spans = append(spans, document.MatchSpan{Field: f, Start: bestTok.Start, End: bestTok.End})
		}
	}
	return sum / float64(len(terms)), spans
}

// tokenScore scores one term against one field token:
// prefix match scores 1.0; otherwise a capped Damerau-Levenshtein distance
// maps to a similarity in [0, 1).
func tokenScore(term, field string) float64 {
	if term == "" || field == "" {
		return 0
	}
	if strings.HasPrefix(field, term) {
		return 1.0
	}
	if diff := len(term) - len(field); diff > 2 || diff < -2 {
		return 0
	}
	dist := damerauLevenshtein(term, field, 2)
	if dist > 2 {
		return 0
	}
	denom := len(term)
	if len(field) > denom {
		denom = len(field)
	}
	score := 1 - float64(dist)/float64(denom)
	if score < 0 {
		return 0
	}
	return score
}

// damerauLevenshtein computes the Damerau-Levenshtein edit distance between
// a and b (insert, delete, substitute, adjacent transpose). It returns
// cap+1 without building the table when the rune lengths differ by more
// than cap; otherwise it returns the full distance, which may exceed cap.
func damerauLevenshtein(a, b string, cap int) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	if abs(la-lb) > cap {
		return cap + 1
	}

	// da: greatest index i such that ra[i] == rb[j] and j' < j, used by
	// the standard Damerau-Levenshtein (unrestricted / true) recurrence.
	da := make(map[rune]int)

	maxDist := la + lb
	d := make([][]int, la+2)
	for i := range d {
		d[i] = make([]int, lb+2)
	}
	d[0][0] = maxDist
	for i := 0; i <= la; i++ {
		d[i+1][0] = maxDist
		d[i+1][1] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j+1] = maxDist
		d[1][j+1] = j
	}

	for i := 1; i <= la; i++ {
		db := 0
		for j := 1; j <= lb; j++ {
			i1 := da[rb[j-1]]
			j1 := db
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
				db = j
			}
			del := d[i][j+1] + 1
			ins := d[i+1][j] + 1
			sub := d[i][j] + cost
			trans := d[i1][j1] + (i-i1-1) + 1 + (j-j1-1)
			best := min4(del, ins, sub, trans)
			d[i+1][j+1] = best
		}
		da[ra[i-1]] = i
	}
	return d[la+1][lb+1]
}

func min4(a, b, c, d int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	if d < m {
		m = d
	}
	return m
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// recency computes an exponential decay bonus, clamped to [0, 0.5].
func recency(mtime, now time.Time, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 0
	}
	ageDays := now.Sub(mtime).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	v := 0.5 * math.Pow(2, -ageDays/halfLifeDays)
	if v < 0 {
		return 0
	}
	if v > 0.5 {
		return 0.5
	}
	return v
}

func joinAll(parts []string) string {
	return strings.Join(parts, " ")
}
