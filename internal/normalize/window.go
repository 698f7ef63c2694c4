package normalize

import (
	"time"

	"github.com/Adda-Baaj/scruper/internal/domain"
)

// Window is the recency filter applied to entries before normalization.
type Window struct {
	Cutoff time.Time
}

// NewWindow returns a window admitting entries published within the last hours before now.
func NewWindow(now time.Time, hours int) Window {
	return Window{Cutoff: now.UTC().Add(-time.Duration(hours) * time.Hour)}
}

// Includes reports whether entry is inside the window. Entries without a resolvable
// publish date are included.
func (w Window) Includes(entry domain.RawEntry) bool {
	published, ok := PublishedTime(entry)
	if !ok {
		return true
	}
	return !published.Before(w.Cutoff)
}
