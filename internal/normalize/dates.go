package normalize

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/Adda-Baaj/scruper/internal/domain"
)

// PublishedTime resolves an entry's publish time from the parser's structured value, then from
// the raw date string. ok is false when neither yields a usable timestamp.
func PublishedTime(entry domain.RawEntry) (time.Time, bool) {
	return firstOf(
		func() (time.Time, bool) { return structuredTime(entry.PublishedParsed) },
		func() (time.Time, bool) { return parseLenient(domain.Deref(entry.Published)) },
	)
}

func structuredTime(t *time.Time) (time.Time, bool) {
	if t == nil || t.IsZero() {
		return time.Time{}, false
	}
	utc := t.UTC()
	if y := utc.Year(); y < 1 || y > 9999 {
		return time.Time{}, false
	}
	return utc, true
}

// parseLenient parses free-form dates; values without a zone are read as UTC.
func parseLenient(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return structuredTime(&t)
}

// firstOf runs lookups in order and returns the first value reported present.
func firstOf[T any](lookups ...func() (T, bool)) (T, bool) {
	for _, lookup := range lookups {
		if v, ok := lookup(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// orDefault returns v when ok, otherwise def.
func orDefault[T any](v T, ok bool, def T) T {
	if ok {
		return v
	}
	return def
}
