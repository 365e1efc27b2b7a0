package query

import (
	"reflect"
	"testing"

	"github.com/antflydb/vaultsearch/document"
)

func TestParseScenario1(t *testing.T) {
	raw := `tag:work "exact phrase" -exclude /pat/i @ test`
	q, errs := ParseWithErrors(raw, DefaultSettings())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if q.Mode != document.ModeFiles {
		t.Errorf("Mode = %q, want files", q.Mode)
	}
	if !reflect.DeepEqual(q.Terms, []string{"test"}) {
		t.Errorf("Terms = %v, want [test]", q.Terms)
	}
	if !reflect.DeepEqual(q.Phrases, []string{"exact phrase"}) {
		t.Errorf("Phrases = %v, want [exact phrase]", q.Phrases)
	}
	if !reflect.DeepEqual(q.Excludes, []string{"exclude"}) {
		t.Errorf("Excludes = %v, want [exclude]", q.Excludes)
	}
	if !reflect.DeepEqual(q.Filters.Tag, []string{"work"}) {
		t.Errorf("Filters.Tag = %v, want [work]", q.Filters.Tag)
	}
	if q.Filters.Restricted != document.RestrictSymbols {
		t.Errorf("Filters.Restricted = %q, want symbols", q.Filters.Restricted)
	}
	if q.Regex == nil || q.Regex.Source != "pat" || q.Regex.Flags != "i" {
		t.Errorf("Regex = %+v, want {pat i}", q.Regex)
	}
	if len(q.OrGroups) != 0 {
		t.Errorf("OrGroups = %v, want empty", q.OrGroups)
	}
}

func TestParseOrGroup(t *testing.T) {
	q := Parse("meeting OR research", DefaultSettings())
	if len(q.Terms) != 0 {
		t.Errorf("Terms = %v, want empty", q.Terms)
	}
	want := [][]string{{"meeting", "research"}}
	if !reflect.DeepEqual(q.OrGroups, want) {
		t.Errorf("OrGroups = %v, want %v", q.OrGroups, want)
	}
}

func TestParseOrGroupSingletonCollapses(t *testing.T) {
	// Trailing OR with nothing to chain leaves a size-1 group, which
	// collapses back into an ordinary term.
	q := Parse("project OR", DefaultSettings())
	if len(q.OrGroups) != 0 {
		t.Errorf("OrGroups = %v, want empty (collapsed)", q.OrGroups)
	}
	if !reflect.DeepEqual(q.Terms, []string{"project"}) {
		t.Errorf("Terms = %v, want [project]", q.Terms)
	}
}

func TestParseLeadingOrIgnored(t *testing.T) {
	q := Parse("OR project", DefaultSettings())
	if len(q.OrGroups) != 0 {
		t.Errorf("OrGroups = %v, want empty", q.OrGroups)
	}
	if !reflect.DeepEqual(q.Terms, []string{"project"}) {
		t.Errorf("Terms = %v, want [project]", q.Terms)
	}
}

func TestParseOrGroupEndsAtNonChainedTerm(t *testing.T) {
	// "meeting OR research project": project is not chained by an
	// immediately preceding OR, so it is a separate ordinary term.
	q := Parse("meeting OR research project", DefaultSettings())
	want := [][]string{{"meeting", "research"}}
	if !reflect.DeepEqual(q.OrGroups, want) {
		t.Errorf("OrGroups = %v, want %v", q.OrGroups, want)
	}
	if !reflect.DeepEqual(q.Terms, []string{"project"}) {
		t.Errorf("Terms = %v, want [project]", q.Terms)
	}
}

func TestParseCommandsMode(t *testing.T) {
	q := Parse(">reload index", DefaultSettings())
	if q.Mode != document.ModeCommands {
		t.Errorf("Mode = %q, want commands", q.Mode)
	}
	if !reflect.DeepEqual(q.Terms, []string{"reload index"}) {
		t.Errorf("Terms = %v, want [reload index]", q.Terms)
	}
}

func TestParseCommandsModeEmptyRemainder(t *testing.T) {
	q := Parse(">", DefaultSettings())
	if q.Mode != document.ModeCommands {
		t.Errorf("Mode = %q, want commands", q.Mode)
	}
	if len(q.Terms) != 0 {
		t.Errorf("Terms = %v, want empty", q.Terms)
	}
}

func TestParseInvalidRegexReportsErrorAndDropsClause(t *testing.T) {
	q, errs := ParseWithErrors(`project /[/i`, DefaultSettings())
	// "/[/i" matches the /PATTERN/FLAGS grammar with pattern "[", which
	// fails to compile: the clause is dropped, one regex error is
	// reported, and the rest of the query still parses.
	if q.Regex != nil {
		t.Errorf("Regex = %+v, want nil for invalid pattern", q.Regex)
	}
	if len(errs) != 1 || errs[0].Kind != ErrKindRegex {
		t.Errorf("errs = %+v, want one %q error", errs, ErrKindRegex)
	}
	if !reflect.DeepEqual(q.Terms, []string{"project"}) {
		t.Errorf("Terms = %v, want [project]", q.Terms)
	}
}

func TestParseUnclosedQuoteIsLiteral(t *testing.T) {
	q := Parse(`foo "bar`, DefaultSettings())
	if len(q.Phrases) != 0 {
		t.Errorf("Phrases = %v, want empty for unclosed quote", q.Phrases)
	}
}

func TestParseDeterministic(t *testing.T) {
	raw := `tag:work "exact phrase" -exclude /pat/i @ test OR other`
	a := Parse(raw, DefaultSettings())
	b := Parse(raw, DefaultSettings())
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Parse not deterministic: %+v != %+v", a, b)
	}
}

func TestParsePathAndInFilters(t *testing.T) {
	q := Parse("path:projects in:work", DefaultSettings())
	if !reflect.DeepEqual(q.Filters.Path, []string{"projects"}) {
		t.Errorf("Filters.Path = %v, want [projects]", q.Filters.Path)
	}
	if !reflect.DeepEqual(q.Filters.In, []string{"work"}) {
		t.Errorf("Filters.In = %v, want [work]", q.Filters.In)
	}
}
