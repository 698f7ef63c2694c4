package domain

import "time"

// RawEntry is one feed item as handed over by the parser. Pointer fields are nil when the
// feed did not carry them; list fields are empty when absent.
type RawEntry struct {
	Title           *string
	Link            *string
	Published       *string
	PublishedParsed *time.Time
	Summary         *string
	Content         []ContentBlock
	MediaContent    []Media
	Enclosures      []Enclosure
	Tags            []Tag
}

// ContentBlock is one full-content body of an entry.
type ContentBlock struct {
	Value string
}

// Media is a media:content element.
type Media struct {
	URL  string
	Type string
}

// Enclosure is an RSS enclosure or Atom enclosure link.
type Enclosure struct {
	URL  string
	Href string
	Type string
}

// Tag is a category attached to an entry.
type Tag struct {
	Term string
}

// String returns a pointer to s, for building entries.
func String(s string) *string {
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
