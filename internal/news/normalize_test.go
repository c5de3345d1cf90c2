package news

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "FDA Approves Gene Therapy", "fda approves gene therapy"},
		{"whitespace", "  FDA   approves\n\tgene therapy ", "fda approves gene therapy"},
		{"markup and entities", "<p>FDA &amp; <b>EMA</b> approve</p>", "fda & ema approve"},
		{"breaking prefix", "BREAKING: FDA approves gene therapy", "fda approves gene therapy"},
		{"stacked prefixes", "Breaking News: Exclusive: New CRISPR tool", "new crispr tool"},
		{"fullwidth letters", "ＦＤＡ approves", "fda approves"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTextKeepsPrefixes(t *testing.T) {
	if got := NormalizeText("Breaking: news"); got != "breaking: news" {
		t.Errorf("NormalizeText should not strip prefixes, got %q", got)
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tracking params", "https://example.com/story?utm_source=tw&utm_medium=social", "https://example.com/story"},
		{"keeps real params", "HTTPS://Example.COM/path/?utm_source=tw&id=5&fbclid=abc#frag", "https://example.com/path/?id=5"},
		{"trailing slash", "https://example.com/a/", "https://example.com/a"},
		{"newsletter params", "https://example.com/a?mc_cid=1&mc_eid=2&ref=feed", "https://example.com/a"},
		{"path case kept", "https://Example.com/Some/Path", "https://example.com/Some/Path"},
		{"not a url", "  story-42 ", "story-42"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalURL(tt.in); got != tt.want {
				t.Errorf("CanonicalURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripMarkupPlainText(t *testing.T) {
	in := "No markup here"
	if got := StripMarkup(in); got != in {
		t.Errorf("StripMarkup(%q) = %q", in, got)
	}
}

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Breaking: FDA approves <i>CRISPR</i> therapy", "FDA approves CRISPR therapy"},
		{"EXCLUSIVE NEWS:   Moderna &amp; Merck", "Moderna & Merck"},
		{"Plain title", "Plain title"},
		// Kelvin sign folds to k but is three bytes long
		{"BREA\u212AING: Gene therapy", "Gene therapy"},
		{"\u212Aey results", "\u212Aey results"},
		{"Update", "Update"},
	}
	for _, tt := range tests {
		if got := DisplayTitle(tt.in); got != tt.want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
