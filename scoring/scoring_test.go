package scoring

import (
	"testing"
	"time"

	"github.com/antflydb/vaultsearch/document"
)

func TestScoreRejectsExcludeTerm(t *testing.T) {
	d := &document.Document{ID: "a", Title: "Project Plan", Body: "this mentions excludeme somewhere"}
	q := document.ParsedQuery{Terms: []string{"plan"}, Excludes: []string{"excludeme"}}
	_, ok := Score(d, q, DefaultConfig(), time.Now())
	if ok {
		t.Fatalf("Score() ok = true, want false (exclude term present)")
	}
}

func TestScorePrefixMatchInTitle(t *testing.T) {
	d := &document.Document{ID: "a", Title: "Meeting Notes", MTime: time.Now()}
	q := document.ParsedQuery{Terms: []string{"meet"}}
	res, ok := Score(d, q, DefaultConfig(), time.Now())
	if !ok {
		t.Fatalf("Score() ok = false, want true")
	}
	if res.Score <= 0 {
		t.Errorf("Score = %v, want > 0 for prefix match", res.Score)
	}
}

func TestScoreFuzzyMatch(t *testing.T) {
	d := &document.Document{ID: "a", Title: "Recieve Shipment", MTime: time.Now()}
	q := document.ParsedQuery{Terms: []string{"receive"}}
	res, ok := Score(d, q, DefaultConfig(), time.Now())
	if !ok {
		t.Fatalf("Score() ok = false, want true")
	}
	if res.Score <= 0 {
		t.Errorf("Score = %v, want > 0 for near-miss typo", res.Score)
	}
}

func TestScoreNoMatchIsZeroOrRecencyOnly(t *testing.T) {
	d := &document.Document{ID: "a", Title: "Totally Unrelated", MTime: time.Now().Add(-365 * 24 * time.Hour)}
	q := document.ParsedQuery{Terms: []string{"zzzzzzzzzzzz"}}
	res, ok := Score(d, q, DefaultConfig(), time.Now())
	if !ok {
		t.Fatalf("Score() ok = false, want true")
	}
	if res.Score > DefaultConfig().WeightRecency*0.5+1e-9 {
		t.Errorf("Score = %v, want <= recency contribution only", res.Score)
	}
}

func TestScorePhraseBonus(t *testing.T) {
	cfg := DefaultConfig()
	withPhrase := document.ParsedQuery{Phrases: []string{"exact phrase"}}
	withoutPhrase := document.ParsedQuery{}
	d := &document.Document{ID: "a", Title: "has exact phrase in it", MTime: time.Now()}
	r1, _ := Score(d, withPhrase, cfg, time.Now())
	r2, _ := Score(d, withoutPhrase, cfg, time.Now())
	if r1.Score <= r2.Score {
		t.Errorf("phrase bonus not applied: with=%v without=%v", r1.Score, r2.Score)
	}
}

func TestScoreRecencyDecaysOverTime(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()
	fresh := &document.Document{ID: "fresh", Title: "doc", MTime: now}
	old := &document.Document{ID: "old", Title: "doc", MTime: now.Add(-365 * 24 * time.Hour)}
	q := document.ParsedQuery{}
	rf, _ := Score(fresh, q, cfg, now)
	ro, _ := Score(old, q, cfg, now)
	if rf.Score <= ro.Score {
		t.Errorf("expected fresher doc to score higher: fresh=%v old=%v", rf.Score, ro.Score)
	}
}

func TestScoreFieldRestrictionHeadings(t *testing.T) {
	d := &document.Document{
		ID:       "a",
		Title:    "meeting",
		Headings: []string{"unrelated"},
		MTime:    time.Now(),
	}
	q := document.ParsedQuery{Terms: []string{"meeting"}, Filters: document.Filters{Restricted: document.RestrictHeadings}}
	res, _ := Score(d, q, DefaultConfig(), time.Now())
	if res.Score > DefaultConfig().WeightRecency*0.5+1e-9 {
		t.Errorf("Score = %v, want title match ignored under headings restriction", res.Score)
	}
}

func TestDamerauLevenshteinTranspose(t *testing.T) {
	// "ab" -> "ba" is a single transposition, distance 1.
	if d := damerauLevenshtein("ab", "ba", 2); d != 1 {
		t.Errorf("damerauLevenshtein(ab, ba) = %d, want 1", d)
	}
}

func TestDamerauLevenshteinIdentical(t *testing.T) {
	if d := damerauLevenshtein("hello", "hello", 2); d != 0 {
		t.Errorf("damerauLevenshtein(hello, hello) = %d, want 0", d)
	}
}

func TestDamerauLevenshteinEarlyExit(t *testing.T) {
	if d := damerauLevenshtein("a", "abcdef", 2); d <= 2 {
		t.Errorf("damerauLevenshtein(a, abcdef) = %d, want > 2", d)
	}
}
