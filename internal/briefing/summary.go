package briefing

import (
	"strings"
	"unicode/utf8"

	"github.com/deusflow/biobrief/internal/news"
)

const (
	briefMaxChars    = 200
	briefFallbackLen = 150
	detailedFallback = 200
)

var breakPoints = []string{" and ", " but ", " however, ", " although ", " while ", " though "}

// cleanText strips markup and collapses whitespace.
func cleanText(s string) string {
	return news.CollapseSpace(news.StripMarkup(s))
}

// splitSentences cuts after '.', '!' or '?' when followed by a space or
// the end of text.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && text[i+1] != ' ' {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func endSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}

// truncateWords cuts to at most n runes and drops the last, possibly
// partial, word.
func truncateWords(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	words := strings.Fields(string([]rune(s)[:n]))
	if len(words) > 3 {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// DetailedSummary is the first two sentences, used for headline stories.
func DetailedSummary(text string) string {
	text = cleanText(text)
	if text == "" {
		return ""
	}
	sentences := splitSentences(text)
	if len(sentences) >= 2 {
		return endSentence(sentences[0]) + " " + endSentence(sentences[1])
	}
	if utf8.RuneCountInString(text) > detailedFallback {
		return truncateWords(text, detailedFallback) + "..."
	}
	return endSentence(text)
}

// BriefSummary is one complete sentence of at most 200 characters.
func BriefSummary(text string) string {
	text = cleanText(text)
	if text == "" {
		return ""
	}
	sentences := splitSentences(text)
	first := endSentence(sentences[0])
	if utf8.RuneCountInString(first) <= briefMaxChars {
		return first
	}
	if len(sentences) > 1 {
		if second := endSentence(sentences[1]); utf8.RuneCountInString(second) <= briefMaxChars {
			return second
		}
	}
	for _, bp := range breakPoints {
		if head, _, ok := strings.Cut(first, bp); ok {
			if brief := endSentence(head); utf8.RuneCountInString(brief) <= briefMaxChars {
				return brief
			}
		}
	}
	return endSentence(truncateWords(text, briefFallbackLen))
}
