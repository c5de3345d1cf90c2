package gemini

import (
	"strings"
	"testing"
)

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"labelled", "SUMMARY: Moderna reported positive data.", "Moderna reported positive data.", false},
		{"multi line", "Sure.\n\nSummary: First part.\nSecond part.\n", "First part. Second part.", false},
		{"markdown label", "**Summary**: Quoted text", "Quoted text", false},
		{"stops at second label", "SUMMARY: one\nSUMMARY: two", "one", false},
		{"no label", "Just a plain reply\nover two lines", "Just a plain reply over two lines", false},
		{"empty", "  \n ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSummary(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildPromptTruncates(t *testing.T) {
	content := strings.Repeat("Sentence about results. ", 400)
	prompt := BuildPrompt("Title", content)
	if !strings.Contains(prompt, "[TRUNCATED]") {
		t.Error("long content should be truncated")
	}
	if !strings.Contains(prompt, "Title: Title") || !strings.Contains(prompt, "SUMMARY:") {
		t.Error("prompt missing title or label")
	}

	short := BuildPrompt("T", "Line one.\r\n  Line   two.")
	if !strings.Contains(short, "Content: Line one. Line two.") {
		t.Errorf("whitespace not collapsed: %s", short)
	}
}
