// Package news is the selection engine: it merges duplicate records,
// labels them with a topic, scores them and picks what goes on air.
package news

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// RawRecord is one entry as delivered by the feed stage.
// A zero PublishedAt means the feed gave no usable date.
type RawRecord struct {
	Title       string
	URL         string
	SourceName  string
	PublishedAt time.Time
	Summary     string

	// Set when a merged Item is fed back in. Zero means 1 and {SourceName}.
	Occurrences int
	Sources     []string
}

// Item is the canonical record for one story after deduplication.
type Item struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	NormalizedTitle string    `json:"-"`
	URL             string    `json:"url"`
	SourceName      string    `json:"source_name"`
	PublishedAt     time.Time `json:"published_at,omitempty"`
	Summary         string    `json:"summary"`
	Occurrences     int       `json:"occurrence_count"`
	Sources         []string  `json:"sources"`
}

// HasPublished reports whether the item carries a publication time.
func (it Item) HasPublished() bool {
	return !it.PublishedAt.IsZero()
}

// Record converts the item back into a RawRecord with its merge state.
func (it Item) Record() RawRecord {
	return RawRecord{
		Title:       it.Title,
		URL:         it.URL,
		SourceName:  it.SourceName,
		PublishedAt: it.PublishedAt,
		Summary:     it.Summary,
		Occurrences: it.Occurrences,
		Sources:     append([]string(nil), it.Sources...),
	}
}

// MakeID derives a stable identifier from a normalized title and source.
func MakeID(normalizedTitle, source string) string {
	h := sha256.New()
	h.Write([]byte(normalizedTitle + "|" + NormalizeSource(source)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ScoredItem is an Item with its topic and impact score.
type ScoredItem struct {
	Item
	Topic Topic   `json:"topic"`
	Score float64 `json:"impact_score"`
}

// MalformedRecordError describes a record that cannot take part in
// deduplication because it has neither a title nor a URL.
type MalformedRecordError struct {
	Index  int
	Source string
}

func (e *MalformedRecordError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("record %d: missing both title and url", e.Index)
	}
	return fmt.Sprintf("record %d from %q: missing both title and url", e.Index, e.Source)
}
