package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Domain contains core models and interfaces.

// TimestampLayout is the fixed-width UTC layout used for every persisted timestamp.
// Lexicographic order of formatted values equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// FeedSource is one registered syndication endpoint.
type FeedSource struct {
	Source      string `json:"source" yaml:"source"`
	SourceLabel string `json:"source_label" yaml:"source_label"`
	URL         string `json:"url" yaml:"url"`
	Color       string `json:"color" yaml:"color"`
}

// Article is the canonical normalized record persisted across runs.
type Article struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	URL         string   `json:"url"`
	Source      string   `json:"source"`
	SourceLabel string   `json:"source_label"`
	PublishedAt string   `json:"published_at"`
	FetchedAt   string   `json:"fetched_at"`
	ImageURL    *string  `json:"image_url"`
	Tags        []string `json:"tags"`
	IsSaved     bool     `json:"is_saved"`
}

// Cache is the persisted aggregate of all known articles.
type Cache struct {
	LastFetched *string   `json:"last_fetched"`
	Articles    []Article `json:"articles"`
}

// EmptyCache returns the default cache used when nothing usable is persisted.
func EmptyCache() Cache {
	return Cache{Articles: []Article{}}
}

// MakeID derives the article identity from its URL: the first 16 hex chars of sha256(url).
// The URL is hashed exactly as given.
func MakeID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
