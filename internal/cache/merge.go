// Package cache merges fresh articles into the persisted article set and stores it.
package cache

import (
	"slices"
	"strings"

	"github.com/Adda-Baaj/scruper/internal/domain"
)

// Merge combines existing and fresh articles, deduplicated by ID. A fresh article replaces the
// existing one but inherits its IsSaved flag; existing articles absent from fresh are kept.
// The result is ordered by PublishedAt, newest first; ties keep insertion order.
func Merge(existing, fresh []domain.Article) []domain.Article {
	byID := make(map[string]domain.Article, len(existing)+len(fresh))
	order := make([]string, 0, len(existing)+len(fresh))

	put := func(art domain.Article) {
		if _, seen := byID[art.ID]; !seen {
			order = append(order, art.ID)
		}
		byID[art.ID] = art
	}

	for _, art := range existing {
		put(art)
	}
	for _, art := range fresh {
		if prev, ok := byID[art.ID]; ok {
			art.IsSaved = prev.IsSaved
		}
		put(art)
	}

	merged := make([]domain.Article, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	slices.SortStableFunc(merged, func(a, b domain.Article) int {
		return strings.Compare(b.PublishedAt, a.PublishedAt)
	})
	return merged
}

// NewArticles returns the merged articles whose ID was not present in existing, in merged order.
func NewArticles(existing, merged []domain.Article) []domain.Article {
	known := make(map[string]struct{}, len(existing))
	for _, art := range existing {
		known[art.ID] = struct{}{}
	}

	var out []domain.Article
	for _, art := range merged {
		if _, ok := known[art.ID]; !ok {
			out = append(out, art)
		}
	}
	return out
}
