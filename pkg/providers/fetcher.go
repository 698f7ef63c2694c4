package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/scruper/internal/domain"
	"github.com/Adda-Baaj/scruper/internal/logger"
	"github.com/Adda-Baaj/scruper/internal/normalize"
	"github.com/Adda-Baaj/scruper/pkg/httpclient"
)

// DefaultTimeout bounds a single feed fetch.
const DefaultTimeout = 15 * time.Second

// ErrMalformedFeed reports a body the parser could not read and that yielded no entries.
var ErrMalformedFeed = errors.New("feed parse error")

// HTTPClient is the transport used by the fetcher.
type HTTPClient = httpclient.Client

// DefaultHTTPClient returns a tuned client for feed fetches.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(DefaultTimeout) }

// Batch is the outcome of fetching one feed.
type Batch struct {
	Source        domain.FeedSource
	Articles      []domain.Article
	Entries       int
	OutsideWindow int
	Rejected      int
}

// Fetcher retrieves and normalizes a single feed source.
type Fetcher struct {
	client  HTTPClient
	headers map[string]string
	log     logger.Logger
}

// NewFetcher builds a Fetcher. A nil client gets DefaultHTTPClient; an empty userAgent gets
// DefaultUserAgent.
func NewFetcher(client HTTPClient, userAgent string, log logger.Logger) *Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &Fetcher{
		client:  client,
		headers: Headers(userAgent),
		log:     logger.Ensure(log),
	}
}

// FetchAndNormalize downloads feed, parses it and turns every entry inside window into an
// Article stamped with fetchedAt. Any transport or parse failure is returned as an error and
// no articles.
func (f *Fetcher) FetchAndNormalize(ctx context.Context, feed domain.FeedSource, window normalize.Window, fetchedAt time.Time) (Batch, error) {
	batch := Batch{Source: feed}
	if strings.TrimSpace(feed.URL) == "" {
		return batch, fmt.Errorf("feed %q has no url", feed.Source)
	}

	f.log.InfoObj("fetching feed", "feed_fetch_start", map[string]any{
		"source": feed.Source,
		"label":  feed.SourceLabel,
		"url":    feed.URL,
	})

	body, err := fetchDocument(ctx, f.client, feed.URL, f.headers)
	if err != nil {
		return batch, err
	}

	doc := ParseFeed(body)
	if doc.Malformed != nil && len(doc.Entries) == 0 {
		return batch, fmt.Errorf("%w: %v", ErrMalformedFeed, doc.Malformed)
	}
	batch.Entries = len(doc.Entries)

	f.log.InfoObj("feed parsed", "feed_parsed", map[string]any{
		"source":  feed.Source,
		"entries": batch.Entries,
	})

	for _, entry := range doc.Entries {
		if !window.Includes(entry) {
			batch.OutsideWindow++
			continue
		}
		art, ok := normalize.Normalize(entry, feed, fetchedAt)
		if !ok {
			batch.Rejected++
			continue
		}
		batch.Articles = append(batch.Articles, art)
	}

	f.log.InfoObj("feed normalized", "feed_normalized", map[string]any{
		"source":         feed.Source,
		"articles":       len(batch.Articles),
		"outside_window": batch.OutsideWindow,
		"rejected":       batch.Rejected,
		"cutoff":         domain.FormatTimestamp(window.Cutoff),
	})
	return batch, nil
}
