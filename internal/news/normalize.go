package news

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Newsroom noise that wire services prepend to otherwise identical headlines.
// Longer prefixes first so "breaking news:" wins over "breaking:".
var noisePrefixes = []string{
	"breaking news:",
	"exclusive news:",
	"breaking:",
	"exclusive:",
	"update:",
}

// Query parameters added by newsletters and social shares.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"mc_cid":  true,
	"mc_eid":  true,
	"igshid":  true,
	"ref":     true,
	"_hsenc":  true,
	"_hsmi":   true,
	"yclid":   true,
	"msclkid": true,
}

const blockElements = "p, br, div, li, h1, h2, h3, h4, h5, h6, tr, td, blockquote"

// StripMarkup removes tags and decodes entities. Text that does not parse
// as HTML is returned unchanged.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	// block elements would otherwise glue sentences together
	doc.Find(blockElements).AfterHtml(" ")
	return doc.Text()
}

// CollapseSpace trims and joins fields with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeText is the matching form of free text: markup stripped,
// NFKC-composed, case-folded and whitespace-collapsed.
func NormalizeText(s string) string {
	s = StripMarkup(s)
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return CollapseSpace(s)
}

// NormalizeTitle is NormalizeText plus removal of leading noise prefixes.
func NormalizeTitle(s string) string {
	t := NormalizeText(s)
	for changed := true; changed; {
		changed = false
		for _, p := range noisePrefixes {
			if strings.HasPrefix(t, p) {
				t = strings.TrimSpace(t[len(p):])
				changed = true
				break
			}
		}
	}
	return t
}

// DisplayTitle cleans a title for output while keeping its case.
func DisplayTitle(s string) string {
	t := CollapseSpace(StripMarkup(s))
	for changed := true; changed; {
		changed = false
		for _, p := range noisePrefixes {
			if rest, ok := cutPrefixFold(t, p); ok {
				t = strings.TrimSpace(rest)
				changed = true
				break
			}
		}
	}
	return t
}

// cutPrefixFold is strings.CutPrefix under Unicode case folding. It
// compares rune by rune, so prefixes whose case variants differ in byte
// length are cut on a rune boundary.
func cutPrefixFold(s, prefix string) (string, bool) {
	n := utf8.RuneCountInString(prefix)
	off := 0
	for i := 0; i < n; i++ {
		if off >= len(s) {
			return s, false
		}
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	if !strings.EqualFold(s[:off], prefix) {
		return s, false
	}
	return s[off:], true
}

// NormalizeSource folds a source name for identity hashing.
func NormalizeSource(s string) string {
	return CollapseSpace(cases.Fold().String(norm.NFKC.String(s)))
}

// CanonicalURL lowercases scheme and host, drops the fragment, tracking
// parameters and a trailing slash. Unparseable input is only trimmed.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for key := range q {
		lk := strings.ToLower(key)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	out := u.String()
	if u.RawQuery == "" {
		out = strings.TrimSuffix(out, "/")
	}
	return out
}
