package index

import (
	"context"
	"testing"
	"time"

	"github.com/antflydb/vaultsearch/document"
)

func doc(id, title, body string, mtime time.Time) document.Document {
	return document.Document{ID: id, Title: title, Body: body, MTime: mtime}
}

func mustQuery(t *testing.T, p *Provider, q document.ParsedQuery, limit int, now time.Time) []document.Result {
	t.Helper()
	results, err := p.Query(context.Background(), q, limit, now)
	if err != nil {
		t.Fatalf("Query(%+v) returned error: %v", q, err)
	}
	return results
}

func TestUpsertAndQueryByTerm(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(doc("a", "Meeting Notes", "discuss project roadmap", now))
	p.Upsert(doc("b", "Grocery List", "milk eggs bread", now))

	results := mustQuery(t, p, document.ParsedQuery{Terms: []string{"meeting"}}, 10, now)
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("Query(meeting) = %+v, want only doc a", results)
	}
}

func TestRemoveDropsDocument(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(doc("a", "Meeting Notes", "", now))
	p.Remove("a")
	if p.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after remove", p.Len())
	}
	results := mustQuery(t, p, document.ParsedQuery{Terms: []string{"meeting"}}, 10, now)
	if len(results) != 0 {
		t.Fatalf("Query after remove = %+v, want empty", results)
	}
}

func TestUpsertReplacesExistingID(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(doc("a", "Old Title", "", now))
	p.Upsert(doc("a", "New Title", "", now))
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after re-upsert of same id", p.Len())
	}
	results := mustQuery(t, p, document.ParsedQuery{Terms: []string{"old"}}, 10, now)
	if len(results) != 0 {
		t.Errorf("Query(old) after replace = %+v, want empty", results)
	}
	results = mustQuery(t, p, document.ParsedQuery{Terms: []string{"new"}}, 10, now)
	if len(results) != 1 {
		t.Errorf("Query(new) after replace = %+v, want 1 hit", results)
	}
}

func TestQueryEmptyReturnsMostRecent(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(doc("old", "Old", "", now.Add(-48*time.Hour)))
	p.Upsert(doc("new", "New", "", now))

	results := mustQuery(t, p, document.ParsedQuery{}, 10, now)
	if len(results) != 2 || results[0].ID != "new" || results[1].ID != "old" {
		t.Fatalf("Query(empty) = %+v, want [new, old]", results)
	}
}

func TestQueryOrGroup(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(doc("a", "meeting", "", now))
	p.Upsert(doc("b", "research", "", now))
	p.Upsert(doc("c", "unrelated", "", now))

	q := document.ParsedQuery{OrGroups: [][]string{{"meeting", "research"}}}
	results := mustQuery(t, p, q, 10, now)
	if len(results) != 2 {
		t.Fatalf("Query(or-group) = %+v, want 2 hits", results)
	}
}

func TestQueryAndBetweenTerms(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(doc("a", "meeting project", "", now))
	p.Upsert(doc("b", "meeting", "", now))

	q := document.ParsedQuery{Terms: []string{"meeting", "project"}}
	results := mustQuery(t, p, q, 10, now)
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("Query(meeting AND project) = %+v, want only doc a", results)
	}
}

func TestQueryFiltersOnlyScansAllButRejectsNonMatching(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(document.Document{ID: "a", Title: "one", Tags: []string{"work"}, MTime: now})
	p.Upsert(document.Document{ID: "b", Title: "two", Tags: []string{"personal"}, MTime: now})

	q := document.ParsedQuery{Filters: document.Filters{Tag: []string{"work"}}}
	results := mustQuery(t, p, q, 10, now)
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("Query(tag:work) = %+v, want only doc a", results)
	}
}

func TestQueryTagFilterRejectsUntagged(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(document.Document{ID: "a", Title: "meeting", Tags: []string{"work"}, MTime: now})
	p.Upsert(document.Document{ID: "b", Title: "meeting", MTime: now})

	q := document.ParsedQuery{Terms: []string{"meeting"}, Filters: document.Filters{Tag: []string{"work"}}}
	results := mustQuery(t, p, q, 10, now)
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("Query(meeting tag:work) = %+v, want only doc a", results)
	}
}

func TestQueryPathFilterMatchesSubstring(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(document.Document{ID: "a", Title: "notes", Path: []string{"projects", "work"}, MTime: now})
	p.Upsert(document.Document{ID: "b", Title: "notes", Path: []string{"personal"}, MTime: now})

	q := document.ParsedQuery{Terms: []string{"notes"}, Filters: document.Filters{Path: []string{"proj"}}}
	results := mustQuery(t, p, q, 10, now)
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("Query(notes path:proj) = %+v, want only doc a", results)
	}
}

func TestQueryInFilterMatchesAnySegment(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(document.Document{ID: "a", Title: "notes", Path: []string{"projects", "work"}, MTime: now})
	p.Upsert(document.Document{ID: "b", Title: "notes", Path: []string{"projects", "personal"}, MTime: now})

	q := document.ParsedQuery{Terms: []string{"notes"}, Filters: document.Filters{In: []string{"work"}}}
	results := mustQuery(t, p, q, 10, now)
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("Query(notes in:work) = %+v, want only doc a", results)
	}
}

func TestQueryRegexPostFilter(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(doc("a", "meeting", "project code ABC-123", now))
	p.Upsert(doc("b", "meeting", "project code XYZ", now))

	q := document.ParsedQuery{
		Terms: []string{"meeting"},
		Regex: &document.RegexClause{Source: `ABC-\d+`},
	}
	results := mustQuery(t, p, q, 10, now)
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("Query(regex) = %+v, want only doc a", results)
	}
}

func TestQueryLimitIsRespected(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	for i := 0; i < 5; i++ {
		p.Upsert(doc(string(rune('a'+i)), "meeting", "", now))
	}
	results := mustQuery(t, p, document.ParsedQuery{Terms: []string{"meeting"}}, 2, now)
	if len(results) != 2 {
		t.Fatalf("Query(limit=2) = %d results, want 2", len(results))
	}
}

func TestQueryHonorsCancellation(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	for i := 0; i < 5; i++ {
		p.Upsert(doc(string(rune('a'+i)), "meeting", "", now))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := p.Query(ctx, document.ParsedQuery{Terms: []string{"meeting"}}, 10, now)
	if err == nil {
		t.Fatalf("Query with canceled context returned no error, results = %+v", results)
	}
	if results != nil {
		t.Fatalf("Query with canceled context = %+v, want nil", results)
	}
}

func TestQueryStreamYieldsSameFinalSetAsQuery(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	for i := 0; i < 10; i++ {
		p.Upsert(doc(string(rune('a'+i)), "meeting", "", now))
	}
	q := document.ParsedQuery{Terms: []string{"meeting"}}
	want := mustQuery(t, p, q, 5, now)

	ch := p.QueryStream(context.Background(), q, 5, now)
	gotIDs := map[string]struct{}{}
	for batch := range ch {
		for _, r := range batch {
			gotIDs[r.ID] = struct{}{}
		}
	}
	if len(gotIDs) != len(want) {
		t.Fatalf("QueryStream yielded %d ids, want %d", len(gotIDs), len(want))
	}
	for _, r := range want {
		if _, ok := gotIDs[r.ID]; !ok {
			t.Errorf("QueryStream missing id %q present in Query result", r.ID)
		}
	}
}

func TestClearResetsState(t *testing.T) {
	p := New(DefaultConfig())
	now := time.Now()
	p.Upsert(doc("a", "meeting", "", now))
	p.Clear()
	if p.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", p.Len())
	}
}

func TestMaxDocsRejectsBeyondCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDocs = 1
	p := New(cfg)
	now := time.Now()
	if ok := p.Upsert(doc("a", "one", "", now)); !ok {
		t.Fatalf("Upsert(a) = false, want true (under cap)")
	}
	if ok := p.Upsert(doc("b", "two", "", now)); ok {
		t.Fatalf("Upsert(b) = true, want false (at cap)")
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
}
