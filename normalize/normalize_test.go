package normalize

import "testing"

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Café", "RÉSUMÉ", "hello world", "日本語", "👋 emoji", ""}
	for _, preserve := range []bool{true, false} {
		for _, in := range inputs {
			once := Normalize(in, preserve)
			twice := Normalize(once, preserve)
			if once != twice {
				t.Errorf("Normalize(%q, %v) not idempotent: %q != %q", in, preserve, once, twice)
			}
		}
	}
}

func TestNormalizePreservesLengthWithDiacritics(t *testing.T) {
	in := "Café Naïve"
	got := Normalize(in, true)
	if len([]rune(got)) != len([]rune(in)) {
		t.Errorf("Normalize(%q, true) changed rune length: %q", in, got)
	}
}

func TestNormalizeStripsDiacritics(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Café", "cafe"},
		{"naïve", "naive"},
		{"RÉSUMÉ", "resume"},
	}
	for _, tt := range tests {
		got := Normalize(tt.in, false)
		if got != tt.want {
			t.Errorf("Normalize(%q, false) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "hello world", []string{"hello", "world"}},
		{"punctuation splits", "foo-bar_baz!qux", []string{"foo", "bar", "baz", "qux"}},
		{"empty", "", nil},
		{"only punctuation", "!!!", nil},
		{"numbers", "note42 v2.0", []string{"note42", "v2", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Words(tt.in, true)
			if len(got) != len(tt.want) {
				t.Fatalf("Words(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Words(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenizeOffsetsRoundTrip(t *testing.T) {
	s := Normalize("hello world", true)
	toks := Tokenize("hello world", true)
	for _, tok := range toks {
		if s[tok.Start:tok.End] != tok.Text {
			t.Errorf("token %+v does not match slice %q", tok, s[tok.Start:tok.End])
		}
	}
}
