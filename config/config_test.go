package config

import "testing"

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	d := Defaults()
	if s.WeightTitle != d.WeightTitle || s.IndexerMaxDocs != d.IndexerMaxDocs {
		t.Errorf("Load(\"\") = %+v, want defaults %+v", s, d)
	}
}

func TestQuerySettingsAdaptsPrefixChar(t *testing.T) {
	s := Defaults()
	qs := s.QuerySettings()
	if qs.CommandsPrefixChar != '>' {
		t.Errorf("CommandsPrefixChar = %q, want '>'", qs.CommandsPrefixChar)
	}
}

func TestScoringConfigAdaptsWeights(t *testing.T) {
	s := Defaults()
	sc := s.ScoringConfig()
	if sc.WeightTitle != 4 || sc.HalfLifeDays != 30 {
		t.Errorf("ScoringConfig() = %+v, want title=4 halfLife=30", sc)
	}
}

func TestIndexConfigAdaptsRegexCandidateK(t *testing.T) {
	s := Defaults()
	ic := s.IndexConfig()
	if ic.RegexCandidateK != 300 {
		t.Errorf("RegexCandidateK = %d, want 300", ic.RegexCandidateK)
	}
}
