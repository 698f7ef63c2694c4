package providers

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"

	"github.com/Adda-Baaj/scruper/internal/domain"
)

// Document is a parsed feed. Malformed carries the parser's complaint when the body could not
// be read as RSS, Atom or JSON Feed.
type Document struct {
	Title     string
	Entries   []domain.RawEntry
	Malformed error
}

// ParseFeed parses a feed body into raw entries.
func ParseFeed(body []byte) Document {
	feed, err := newParser().Parse(bytes.NewReader(body))
	if err != nil {
		return Document{Malformed: err}
	}

	doc := Document{
		Title:   strings.TrimSpace(feed.Title),
		Entries: make([]domain.RawEntry, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		doc.Entries = append(doc.Entries, rawEntry(item))
	}
	return doc
}

func newParser() *gofeed.Parser {
	p := gofeed.NewParser()
	p.AtomTranslator = &atomTranslator{}
	p.RSSTranslator = &rssTranslator{}
	return p
}

// atomTranslator keeps only <published> as the publish date (the default falls back to
// <updated>) and uses category terms rather than labels.
type atomTranslator struct {
	gofeed.DefaultAtomTranslator
}

func (t *atomTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	af, ok := feed.(*atom.Feed)
	if !ok {
		return nil, fmt.Errorf("feed did not match expected type of *atom.Feed")
	}
	out, err := t.DefaultAtomTranslator.Translate(af)
	if err != nil {
		return nil, err
	}
	for i, entry := range af.Entries {
		if i >= len(out.Items) || entry == nil {
			break
		}
		item := out.Items[i]
		item.Published = entry.Published
		item.PublishedParsed = entry.PublishedParsed
		item.Categories = atomTerms(entry.Categories)
	}
	return out, nil
}

func atomTerms(cats []*atom.Category) []string {
	var terms []string
	for _, c := range cats {
		if c != nil {
			terms = append(terms, c.Term)
		}
	}
	return terms
}

// rssTranslator keeps only <pubDate> as the publish date; dc:date is a modification date.
type rssTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *rssTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	rf, ok := feed.(*rss.Feed)
	if !ok {
		return nil, fmt.Errorf("feed did not match expected type of *rss.Feed")
	}
	out, err := t.DefaultRSSTranslator.Translate(rf)
	if err != nil {
		return nil, err
	}
	for i, item := range rf.Items {
		if i >= len(out.Items) || item == nil {
			break
		}
		out.Items[i].Published = item.PubDate
		out.Items[i].PublishedParsed = item.PubDateParsed
	}
	return out, nil
}

// rawEntry maps a gofeed item onto the optional-field entry shape.
func rawEntry(item *gofeed.Item) domain.RawEntry {
	entry := domain.RawEntry{
		Title:           optional(item.Title),
		Link:            optional(item.Link),
		Published:       optional(item.Published),
		PublishedParsed: item.PublishedParsed,
		Summary:         optional(item.Description),
		MediaContent:    mediaContent(item.Extensions),
	}

	if item.Content != "" {
		entry.Content = []domain.ContentBlock{{Value: item.Content}}
	}

	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		entry.Enclosures = append(entry.Enclosures, domain.Enclosure{URL: enc.URL, Type: enc.Type})
	}

	for _, cat := range item.Categories {
		entry.Tags = append(entry.Tags, domain.Tag{Term: cat})
	}

	return entry
}

// mediaContent collects media:content elements, including those nested in media:group.
func mediaContent(exts ext.Extensions) []domain.Media {
	media, ok := exts["media"]
	if !ok {
		return nil
	}

	var out []domain.Media
	appendContent := func(items []ext.Extension) {
		for _, m := range items {
			out = append(out, domain.Media{URL: m.Attrs["url"], Type: m.Attrs["type"]})
		}
	}

	appendContent(media["content"])
	for _, group := range media["group"] {
		appendContent(group.Children["content"])
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
