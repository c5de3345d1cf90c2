// Package rss loads the feed list and turns feed entries into raw news
// records.
package rss

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/biobrief/internal/logger"
	"github.com/deusflow/biobrief/internal/news"
	"github.com/deusflow/biobrief/internal/retry"
)

// ErrNoFeeds is returned when the feed list is empty.
var ErrNoFeeds = errors.New("no feeds configured")

const userAgent = "Mozilla/5.0 (compatible; biobrief/1.0; +https://github.com/deusflow/biobrief)"

// Feed is one configured source. A bare URL in YAML is accepted too; the
// host then serves as the name.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

func (f *Feed) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.URL = strings.TrimSpace(node.Value)
		return nil
	}
	type plain Feed
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*f = Feed(p)
	return nil
}

// FeedsConfig is the YAML layout:
//
//	feeds:
//	  - name: STAT
//	    url: https://...
//	  - https://...
type FeedsConfig struct {
	Feeds []Feed `yaml:"feeds"`
}

// LoadFeeds reads the feed list from a YAML file.
func LoadFeeds(path string) ([]Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds %s: %w", path, err)
	}
	return ParseFeeds(data)
}

// ParseFeeds decodes the feed list, fills missing names and drops blank or
// repeated URLs.
func ParseFeeds(data []byte) ([]Feed, error) {
	var cfg FeedsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse feeds: %w", err)
	}

	seen := make(map[string]bool)
	feeds := make([]Feed, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		f.URL = strings.TrimSpace(f.URL)
		if f.URL == "" || seen[f.URL] {
			continue
		}
		seen[f.URL] = true
		if strings.TrimSpace(f.Name) == "" {
			f.Name = hostName(f.URL)
		}
		feeds = append(feeds, f)
	}
	if len(feeds) == 0 {
		return nil, ErrNoFeeds
	}
	return feeds, nil
}

func hostName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// FetchOptions tune the fetcher.
type FetchOptions struct {
	Timeout     time.Duration
	Retry       retry.RetryConfig
	Concurrency int
}

// FetchResult is what came back from one feed.
type FetchResult struct {
	Feed  Feed
	Items []*gofeed.Item
	Err   error
}

// FetchAll downloads and parses all feeds in parallel. Failing feeds are
// logged and reported in the results; they never fail the whole fetch.
func FetchAll(ctx context.Context, feeds []Feed, opts FetchOptions) []FetchResult {
	log := logger.With("rss")
	results := make([]FetchResult, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	var mu sync.Mutex
	ok := 0
	for i, feed := range feeds {
		i, feed := i, feed
		g.Go(func() error {
			items, err := fetchFeed(ctx, feed, opts)
			results[i] = FetchResult{Feed: feed, Items: items, Err: err}
			if err != nil {
				log.Warn("Error parsing feed", "feed", feed.Name, "url", feed.URL, "error", err)
				return nil
			}
			mu.Lock()
			ok++
			mu.Unlock()
			log.Debug("Loaded feed", "feed", feed.Name, "items", len(items))
			return nil
		})
	}
	_ = g.Wait()

	log.Info("Processed feeds", "ok", ok, "total", len(feeds))
	return results
}

func fetchFeed(ctx context.Context, feed Feed, opts FetchOptions) ([]*gofeed.Item, error) {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent

	var items []*gofeed.Item
	err := retry.WithRetry(ctx, opts.Retry, func() error {
		fctx := ctx
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}
		parsed, err := parser.ParseURLWithContext(feed.URL, fctx)
		if err != nil {
			var httpErr gofeed.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}
		items = parsed.Items
		return nil
	})
	return items, err
}

// ToRecords converts feed entries to raw records attributed to the feed.
func ToRecords(feed Feed, items []*gofeed.Item) []news.RawRecord {
	records := make([]news.RawRecord, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		records = append(records, toRecord(feed, it))
	}
	return records
}

func toRecord(feed Feed, it *gofeed.Item) news.RawRecord {
	rec := news.RawRecord{
		Title:      strings.TrimSpace(it.Title),
		URL:        strings.TrimSpace(it.Link),
		SourceName: feed.Name,
		Summary:    it.Description,
	}
	if strings.TrimSpace(rec.Summary) == "" {
		rec.Summary = it.Content
	}
	if rec.URL == "" && len(it.Links) > 0 {
		rec.URL = strings.TrimSpace(it.Links[0])
	}
	switch {
	case it.PublishedParsed != nil:
		rec.PublishedAt = it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		rec.PublishedAt = it.UpdatedParsed.UTC()
	}
	return rec
}

// Records flattens fetch results into raw records, skipping failed feeds.
func Records(results []FetchResult) []news.RawRecord {
	var records []news.RawRecord
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		records = append(records, ToRecords(r.Feed, r.Items)...)
	}
	return records
}

// FilterWindow keeps records published within [start, end]. Undated
// records are kept.
func FilterWindow(records []news.RawRecord, start, end time.Time) []news.RawRecord {
	out := make([]news.RawRecord, 0, len(records))
	for _, r := range records {
		if !r.PublishedAt.IsZero() && (r.PublishedAt.Before(start) || r.PublishedAt.After(end)) {
			continue
		}
		out = append(out, r)
	}
	return out
}
