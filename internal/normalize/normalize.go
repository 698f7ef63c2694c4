// Package normalize maps raw feed entries onto the canonical article schema.
package normalize

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/Adda-Baaj/scruper/internal/domain"
)

// Normalize converts entry into an Article. It returns false when the entry has no
// usable title or link.
func Normalize(entry domain.RawEntry, feed domain.FeedSource, fetchedAt time.Time) (domain.Article, bool) {
	title := strings.TrimSpace(domain.Deref(entry.Title))
	link := strings.TrimSpace(domain.Deref(entry.Link))
	if title == "" || link == "" {
		return domain.Article{}, false
	}

	doc := parseHTML(rawBody(entry))

	published, ok := PublishedTime(entry)
	published = orDefault(published, ok, fetchedAt)

	var imageURL *string
	if img, ok := firstOf(
		func() (string, bool) { return mediaImage(entry.MediaContent) },
		func() (string, bool) { return enclosureImage(entry.Enclosures) },
		func() (string, bool) { return bodyImage(doc) },
	); ok {
		imageURL = &img
	}

	return domain.Article{
		ID:          domain.MakeID(link),
		Title:       title,
		Summary:     Truncate(textOf(doc), SummaryLimit),
		URL:         link,
		Source:      feed.Source,
		SourceLabel: feed.SourceLabel,
		PublishedAt: domain.FormatTimestamp(published),
		FetchedAt:   domain.FormatTimestamp(fetchedAt),
		ImageURL:    imageURL,
		Tags:        tags(entry.Tags),
		IsSaved:     false,
	}, true
}

// rawBody picks the first content block, falling back to the summary.
func rawBody(entry domain.RawEntry) string {
	if len(entry.Content) > 0 && entry.Content[0].Value != "" {
		return entry.Content[0].Value
	}
	return domain.Deref(entry.Summary)
}

func mediaImage(media []domain.Media) (string, bool) {
	for _, m := range media {
		if isImageType(m.Type) {
			if u := strings.TrimSpace(m.URL); u != "" {
				return u, true
			}
		}
	}
	return "", false
}

func enclosureImage(enclosures []domain.Enclosure) (string, bool) {
	for _, enc := range enclosures {
		if !isImageType(enc.Type) {
			continue
		}
		if u := strings.TrimSpace(enc.URL); u != "" {
			return u, true
		}
		if h := strings.TrimSpace(enc.Href); h != "" {
			return h, true
		}
	}
	return "", false
}

func isImageType(typ string) bool {
	return strings.HasPrefix(strings.TrimSpace(typ), "image")
}

func tags(raw []domain.Tag) []string {
	return lo.FilterMap(raw, func(t domain.Tag, _ int) (string, bool) {
		term := strings.TrimSpace(t.Term)
		return term, term != ""
	})
}
