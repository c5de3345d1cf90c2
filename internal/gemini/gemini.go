package gemini

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/biobrief/internal/logger"
)

const (
	defaultModel    = "gemini-1.5-flash"
	maxPromptChars  = 6000
	maxSummaryChars = 600
)

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Summarize asks the model for a short spoken-style summary of an article.
func (c *Client) Summarize(ctx context.Context, title, content string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.3)

	resp, err := model.GenerateContent(ctx, genai.Text(BuildPrompt(title, content)))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return ParseSummary(sb.String())
}

// BuildPrompt limits the article to a prompt-sized excerpt and asks for a
// labelled summary.
func BuildPrompt(title, content string) string {
	content = strings.Join(strings.Fields(strings.ReplaceAll(content, "\r", "")), " ")
	if utf8.RuneCountInString(content) > maxPromptChars {
		runes := []rune(content)
		trimmed := string(runes[:maxPromptChars])
		if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
			trimmed = trimmed[:idx+1]
		}
		content = trimmed + "\n[TRUNCATED]"
	}

	return fmt.Sprintf(`You are writing for a weekly biotech news briefing read aloud as a podcast.

ARTICLE:
Title: %s
Content: %s

TASK:
Summarize the article in two or three plain sentences (under %d characters).
Keep company, drug and organization names exactly as written.
Do not start with phrases like "This article" or "The news is that".
State facts only; no speculation or advice.

Reply strictly in this format:

SUMMARY: <summary>
`, title, content, maxSummaryChars)
}

var summaryLabel = regexp.MustCompile(`(?i)^\**\s*summary\s*\**\s*: ?`)

// ParseSummary extracts the text after the SUMMARY label. Without a label
// the whole reply is used.
func ParseSummary(response string) (string, error) {
	var sb strings.Builder
	found := false

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if summaryLabel.MatchString(line) {
			if found {
				break
			}
			found = true
			line = strings.TrimSpace(summaryLabel.ReplaceAllString(line, ""))
		} else if !found {
			continue
		}
		if line == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(line)
	}

	summary := strings.TrimSpace(sb.String())
	if !found {
		logger.Warn("Summary label missing, using raw reply")
		summary = strings.Join(strings.Fields(response), " ")
	}
	summary = strings.Trim(summary, `"`)

	if summary == "" {
		return "", fmt.Errorf("could not parse Gemini response: empty summary")
	}
	return summary, nil
}
