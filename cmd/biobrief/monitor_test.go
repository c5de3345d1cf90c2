package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/biobrief/internal/app"
	"github.com/deusflow/biobrief/internal/briefing"
	"github.com/deusflow/biobrief/internal/metrics"
	"github.com/deusflow/biobrief/internal/news"
	"github.com/deusflow/biobrief/internal/storage"
)

type fakeSource struct {
	m *metrics.Metrics
	w *storage.RunWriter
	h app.RunHistory
}

func (f fakeSource) Metrics() *metrics.Metrics  { return f.m }
func (f fakeSource) Writer() *storage.RunWriter { return f.w }
func (f fakeSource) History() app.RunHistory    { return f.h }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()
	src := fakeSource{m: metrics.New(), w: storage.NewRunWriter(t.TempDir())}
	r := newRouter(src)

	if rec := get(t, r, "/health"); rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d", rec.Code)
	}

	src.m.SetError("feed down")
	rec := get(t, r, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "error" || body["last_error"] != "feed down" {
		t.Errorf("body = %v", body)
	}
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()
	src := fakeSource{m: metrics.New(), w: storage.NewRunWriter(t.TempDir())}
	src.m.RecordRun(metrics.RunCounts{Fetched: 12, Duplicates: 3})

	rec := get(t, newRouter(src), "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"records_fetched":12`) {
		t.Errorf("metrics = %d %s", rec.Code, rec.Body.String())
	}

	post := httptest.NewRecorder()
	newRouter(src).ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if post.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /metrics = %d", post.Code)
	}
}

func TestLatestBriefing(t *testing.T) {
	t.Parallel()
	w := storage.NewRunWriter(t.TempDir())
	src := fakeSource{m: metrics.New(), w: w}
	r := newRouter(src)

	if rec := get(t, r, "/briefing/latest"); rec.Code != http.StatusNotFound {
		t.Errorf("empty status = %d", rec.Code)
	}

	sel := news.Selection{Headlines: []news.ScoredItem{{
		Item:  news.Item{ID: "a", Title: "Base editing trial starts", SourceName: "STAT", Occurrences: 1},
		Topic: news.Therapeutics, Score: 9,
	}}}
	out := briefing.Assemble(sel, briefing.RunMetadata{RunID: "run-9", GeneratedAt: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)})
	if _, err := w.Write(out, briefing.RunStats{}); err != nil {
		t.Fatal(err)
	}

	rec := get(t, r, "/briefing/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	var got struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got.RunID != "run-9" {
		t.Errorf("run_id = %q, %v", got.RunID, err)
	}
}

func TestRunsRoutes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	archive, err := storage.OpenArchive(ctx, "sqlite:"+t.TempDir()+"/archive.db")
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	gen := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b"} {
		run := storage.RunRecord{RunID: id, Title: "Biotech Weekly", GeneratedAt: gen.AddDate(0, 0, i)}
		items := []storage.ItemRecord{{ItemID: "x" + id, Section: "headlines", Title: "Story " + id, Topic: "genetics", Occurrences: 1}}
		if err := archive.SaveRun(ctx, run, items); err != nil {
			t.Fatal(err)
		}
	}
	r := newRouter(fakeSource{m: metrics.New(), w: storage.NewRunWriter(t.TempDir()), h: archive})

	rec := get(t, r, "/runs?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	var runs []storage.RunRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-b" {
		t.Errorf("runs = %+v", runs)
	}

	rec = get(t, r, "/runs/run-a")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"item_id":"xrun-a"`) {
		t.Errorf("items = %d %s", rec.Code, rec.Body.String())
	}
	if rec := get(t, r, "/runs/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d", rec.Code)
	}
	if rec := get(t, r, "/runs?limit=zero"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}

func TestRunsWithoutArchive(t *testing.T) {
	t.Parallel()
	r := newRouter(fakeSource{m: metrics.New(), w: storage.NewRunWriter(t.TempDir())})
	if rec := get(t, r, "/runs"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
