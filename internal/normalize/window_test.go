package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Adda-Baaj/scruper/internal/domain"
)

func TestWindowBoundary(t *testing.T) {
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	w := NewWindow(now, 24)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), w.Cutoff)

	atCutoff := domain.RawEntry{PublishedParsed: timePtr(w.Cutoff)}
	assert.True(t, w.Includes(atCutoff))

	justBefore := domain.RawEntry{PublishedParsed: timePtr(w.Cutoff.Add(-time.Second))}
	assert.False(t, w.Includes(justBefore))

	recent := domain.RawEntry{Published: domain.String("2024-03-02T08:00:00Z")}
	assert.True(t, w.Includes(recent))

	old := domain.RawEntry{Published: domain.String("Mon, 01 Jan 2024 00:00:00 GMT")}
	assert.False(t, w.Includes(old))
}

func TestWindowIncludesUndatedEntries(t *testing.T) {
	w := NewWindow(time.Now(), 1)
	assert.True(t, w.Includes(domain.RawEntry{}))
	assert.True(t, w.Includes(domain.RawEntry{Published: domain.String("sometime last week")}))
}

func TestWindowUsesLocalNowAsUTC(t *testing.T) {
	now := time.Date(2024, 3, 2, 17, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	w := NewWindow(now, 48)
	assert.Equal(t, time.UTC, w.Cutoff.Location())
	assert.Equal(t, time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), w.Cutoff)
}
