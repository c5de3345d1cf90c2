package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/biobrief/internal/logger"
)

const (
	maxBodyBytes   = 4 << 20
	minContentLen  = 100
	maxContentLen  = 1800
	keepContentLen = 1600
)

// ArticleContent is full article content
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// Scraper downloads article pages and extracts their readable text.
type Scraper struct {
	client *http.Client
}

func New(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Scraper{client: &http.Client{Timeout: timeout}}
}

// ExtractFullArticle gets the text of an article. Readability runs first;
// when it finds too little, paragraph selectors take over.
func (s *Scraper) ExtractFullArticle(ctx context.Context, pageURL string) (*ArticleContent, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid article url %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; biobrief/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	var title, content string
	if article, err := readability.FromReader(bytes.NewReader(body), parsed); err == nil {
		title = strings.TrimSpace(article.Title)
		content = cleanContent(article.TextContent)
	}

	if len(content) < minContentLen {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("error parsing HTML: %w", err)
		}
		content = cleanContent(extractGenericContent(doc))
		if title == "" {
			title = extractTitle(doc)
		}
	}

	if len(content) < minContentLen {
		return nil, fmt.Errorf("can't get content")
	}

	return &ArticleContent{
		Title:   title,
		Content: content,
		URL:     pageURL,
	}, nil
}

// extractGenericContent is the selector fallback for any site
func extractGenericContent(doc *goquery.Document) string {
	var paragraphs []string

	selectors := []string{
		"article p",
		".article-body p",
		".article p",
		".content p",
		".post-content p",
		".entry-content p",
		"main p",
		"#content p",
		"p",
	}

	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 {
			break
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		".article-title",
		".headline",
		".entry-title",
		"title",
	}

	for _, selector := range selectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}

	return ""
}

var junkIndicators = []string{
	"cookie", "gdpr", "subscribe to", "sign up for", "newsletter",
	"advertisement", "read more", "click here", "follow us",
	"share this article", "all rights reserved", "privacy policy",
}

// cleanContent drops boilerplate lines, joins wrapped sentences into
// paragraphs and keeps whole paragraphs up to the length cap.
func cleanContent(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	var cleanLines []string
	var currentParagraph strings.Builder

	flush := func() {
		paragraph := strings.TrimSpace(currentParagraph.String())
		if len(paragraph) > 30 {
			cleanLines = append(cleanLines, paragraph)
		}
		currentParagraph.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.Join(strings.Fields(line), " ")

		if len(line) < 8 {
			if currentParagraph.Len() > 0 {
				flush()
			}
			continue
		}
		if isJunk(line) {
			continue
		}

		if currentParagraph.Len() > 0 {
			currentParagraph.WriteString(" ")
		}
		currentParagraph.WriteString(line)
		if strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") || strings.HasSuffix(line, "?") {
			flush()
		}
	}
	if currentParagraph.Len() > 0 {
		flush()
	}

	resultText := strings.Join(cleanLines, "\n\n")

	if len(resultText) > maxContentLen {
		var selected []string
		total := 0
		for _, paragraph := range cleanLines {
			if total+len(paragraph) >= keepContentLen {
				break
			}
			selected = append(selected, paragraph)
			total += len(paragraph) + 2
		}
		if len(selected) > 0 {
			resultText = strings.Join(selected, "\n\n")
		} else if cut := strings.LastIndex(resultText[:keepContentLen], " "); cut > 0 {
			resultText = resultText[:cut]
		} else {
			resultText = resultText[:keepContentLen]
		}
	}

	return resultText
}

func isJunk(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// ExtractAll fetches several articles with bounded concurrency. Failures
// are logged and left out of the result.
func (s *Scraper) ExtractAll(ctx context.Context, urls []string, concurrency int) map[string]*ArticleContent {
	log := logger.With("scraper")
	articles := make([]*ArticleContent, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			article, err := s.ExtractFullArticle(gctx, u)
			if err != nil {
				log.Warn("Can't get content", "url", u, "error", err)
				return nil
			}
			log.Debug("Got content", "url", u, "chars", len(article.Content))
			articles[i] = article
			return nil
		})
	}
	_ = g.Wait()

	result := make(map[string]*ArticleContent)
	for i, a := range articles {
		if a != nil {
			result[urls[i]] = a
		}
	}
	return result
}
