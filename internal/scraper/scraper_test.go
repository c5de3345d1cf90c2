package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articlePage = `<html><head><title>Site | Trial results</title></head>
<body>
<nav><a href="/">Home</a> <a href="/news">News</a></nav>
<article>
<h1>Phase 3 trial meets primary endpoint</h1>
<p>The company said its antibody reduced disease progression by forty percent in a trial of nine hundred patients.</p>
<p>Researchers plan to file for approval with regulators in both the United States and Europe later this year.</p>
<p>Analysts expect the drug to compete with two existing therapies that already hold most of the market.</p>
<p>Subscribe to our newsletter for more biotech coverage delivered every morning.</p>
</article>
</body></html>`

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>short</p></body></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestExtractFullArticle(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	s := New(5 * time.Second)
	article, err := s.ExtractFullArticle(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("ExtractFullArticle error = %v", err)
	}
	if !strings.Contains(article.Content, "reduced disease progression") {
		t.Errorf("content = %q", article.Content)
	}
	if strings.Contains(strings.ToLower(article.Content), "newsletter") {
		t.Errorf("boilerplate should be removed: %q", article.Content)
	}
	if article.Title == "" {
		t.Error("title should be extracted")
	}
}

func TestExtractFullArticleErrors(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	s := New(5 * time.Second)

	for _, path := range []string{"/empty", "/missing"} {
		if _, err := s.ExtractFullArticle(context.Background(), srv.URL+path); err == nil {
			t.Errorf("%s: expected error", path)
		}
	}
	if _, err := s.ExtractFullArticle(context.Background(), "not a url"); err == nil {
		t.Error("invalid url should fail")
	}
}

func TestExtractAll(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	s := New(5 * time.Second)
	urls := []string{srv.URL + "/article", srv.URL + "/missing"}
	got := s.ExtractAll(context.Background(), urls, 2)
	if len(got) != 1 || got[urls[0]] == nil {
		t.Errorf("ExtractAll = %v", got)
	}
}

func TestCleanContent(t *testing.T) {
	in := "First line of a paragraph that\ncontinues here and ends.\n\nClick here to share\nok\nAnother complete paragraph with enough text."
	got := cleanContent(in)
	want := "First line of a paragraph that continues here and ends.\n\nAnother complete paragraph with enough text."
	if got != want {
		t.Errorf("cleanContent = %q, want %q", got, want)
	}
}

func TestCleanContentCapsLength(t *testing.T) {
	para := strings.Repeat("word ", 60) + "end."
	in := strings.Repeat(para+"\n\n", 10)
	got := cleanContent(in)
	if len(got) > maxContentLen {
		t.Errorf("length %d over cap", len(got))
	}
	if !strings.HasSuffix(got, "end.") {
		t.Error("should keep whole paragraphs")
	}
}
