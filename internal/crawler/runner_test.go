package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/scruper/internal/cache"
	"github.com/Adda-Baaj/scruper/internal/domain"
	"github.com/Adda-Baaj/scruper/internal/errlog"
	"github.com/Adda-Baaj/scruper/internal/metrics"
	"github.com/Adda-Baaj/scruper/internal/normalize"
	"github.com/Adda-Baaj/scruper/pkg/httpclient"
	"github.com/Adda-Baaj/scruper/pkg/providers"
	"github.com/Adda-Baaj/scruper/pkg/publishers"
)

var fixedNow = time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

const launchFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Ben's Bites</title>
    <item>
      <title>Launch Day</title>
      <link>https://ex.com/launch</link>
      <pubDate>Sat, 02 Mar 2024 10:00:00 GMT</pubDate>
      <description>&lt;p&gt;We shipped it.&lt;/p&gt;</description>
    </item>
    <item>
      <title>Saved</title>
      <link>https://ex.com/saved</link>
      <pubDate>Sat, 02 Mar 2024 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Last month</title>
      <link>https://ex.com/stale</link>
      <pubDate>Thu, 01 Feb 2024 09:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishers.Event
}

func (p *recordingPublisher) ID() string   { return "recorder" }
func (p *recordingPublisher) Type() string { return "test" }
func (p *recordingPublisher) Close() error { return nil }
func (p *recordingPublisher) Publish(_ context.Context, evt publishers.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func TestRunMergesFeedsAndIsolatesFailures(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(launchFeed))
	}))
	defer okSrv.Close()
	downSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer downSrv.Close()

	dir := t.TempDir()
	store := cache.NewJSONStore(filepath.Join(dir, "articles.json"))
	errPath := filepath.Join(dir, "errors.log")

	seed := domain.Cache{Articles: []domain.Article{
		{ID: domain.MakeID("https://ex.com/saved"), Title: "Old title", URL: "https://ex.com/saved",
			Source: "bensbites", PublishedAt: "2024-03-02T09:00:00+00:00", Tags: []string{}, IsSaved: true},
		{ID: domain.MakeID("https://ex.com/archived"), Title: "Archived", URL: "https://ex.com/archived",
			Source: "bensbites", PublishedAt: "2024-02-01T00:00:00+00:00", Tags: []string{}},
	}}
	require.NoError(t, store.Save(context.Background(), seed))

	feeds := []domain.FeedSource{
		{Source: "bensbites", SourceLabel: "Ben's Bites", URL: okSrv.URL},
		{Source: "rundown_ai", SourceLabel: "The AI Rundown", URL: downSrv.URL},
	}
	pub := &recordingPublisher{}
	m := metrics.NewRun()
	runner := NewRunner(feeds,
		providers.NewFetcher(httpclient.NewRestyClient(5*time.Second), "", nil),
		store,
		Options{
			Workers:    2,
			ErrorLog:   errlog.NewFile(errPath),
			Publishers: []publishers.Publisher{pub},
			Metrics:    m,
			Now:        func() time.Time { return fixedNow },
		},
		nil,
	)

	res, err := runner.Run(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02T12:00:00+00:00", res.FetchedAt)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, []string{"rundown_ai"}, res.Failed)
	assert.Equal(t, 1, res.NewArticles)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, publishers.Summary{Sent: 1}, res.Published)

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, saved.LastFetched)
	assert.Equal(t, "2024-03-02T12:00:00+00:00", *saved.LastFetched)
	require.Len(t, saved.Articles, 3)
	assert.Equal(t, "Launch Day", saved.Articles[0].Title)
	assert.Equal(t, "We shipped it.", saved.Articles[0].Summary)
	assert.Equal(t, "Saved", saved.Articles[1].Title)
	assert.True(t, saved.Articles[1].IsSaved)
	assert.Equal(t, "Archived", saved.Articles[2].Title)

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.MakeID("https://ex.com/launch"), pub.events[0].ID)

	logged, err := os.ReadFile(errPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), fmt.Sprintf("ERROR fetching The AI Rundown (%s): ", downSrv.URL))
	assert.Contains(t, string(logged), "status 503")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedFailures.WithLabelValues("rundown_ai")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EntriesSeen.WithLabelValues("bensbites")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EntriesOutside.WithLabelValues("bensbites")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheArticles))
}

type stubFetcher struct {
	mu      sync.Mutex
	delay   func(feed domain.FeedSource) time.Duration
	fail    map[string]bool
	started []time.Time
}

func (s *stubFetcher) FetchAndNormalize(_ context.Context, feed domain.FeedSource, _ normalize.Window, fetchedAt time.Time) (providers.Batch, error) {
	s.mu.Lock()
	s.started = append(s.started, time.Now())
	s.mu.Unlock()
	if s.delay != nil {
		time.Sleep(s.delay(feed))
	}
	if s.fail[feed.Source] {
		return providers.Batch{Source: feed}, errors.New("unreachable")
	}
	url := "https://ex.com/" + feed.Source
	return providers.Batch{Source: feed, Articles: []domain.Article{{
		ID: domain.MakeID(url), Title: feed.Source, URL: url, Source: feed.Source,
		PublishedAt: domain.FormatTimestamp(fetchedAt), FetchedAt: domain.FormatTimestamp(fetchedAt), Tags: []string{},
	}}}, nil
}

func feedsNamed(names ...string) []domain.FeedSource {
	out := make([]domain.FeedSource, len(names))
	for i, n := range names {
		out[i] = domain.FeedSource{Source: n, SourceLabel: n, URL: "https://" + n + ".test/feed"}
	}
	return out
}

func TestRunAggregatesInRegistryOrder(t *testing.T) {
	feeds := feedsNamed("a", "b", "c", "d")
	fetcher := &stubFetcher{
		delay: func(f domain.FeedSource) time.Duration {
			return time.Duration('e'-f.Source[0]) * 10 * time.Millisecond
		},
		fail: map[string]bool{"b": true, "d": true},
	}
	store := cache.NewJSONStore(filepath.Join(t.TempDir(), "articles.json"))
	runner := NewRunner(feeds, fetcher, store, Options{Workers: 4, Now: func() time.Time { return fixedNow }}, nil)

	res, err := runner.Run(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, res.Failed)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 2, res.Total)
}

func TestRunSpacesDispatches(t *testing.T) {
	fetcher := &stubFetcher{}
	store := cache.NewJSONStore(filepath.Join(t.TempDir(), "articles.json"))
	runner := NewRunner(feedsNamed("a", "b", "c"), fetcher, store, Options{Workers: 3, Spacing: 50 * time.Millisecond}, nil)

	_, err := runner.Run(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, fetcher.started, 3)
	assert.GreaterOrEqual(t, fetcher.started[2].Sub(fetcher.started[0]), 90*time.Millisecond)
}

func TestRunTreatsCorruptCacheAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	runner := NewRunner(feedsNamed("a"), &stubFetcher{}, cache.NewJSONStore(path), Options{Now: func() time.Time { return fixedNow }}, nil)
	res, err := runner.Run(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 1, res.NewArticles)
}

type failingStore struct{}

func (failingStore) Load(context.Context) (domain.Cache, error) { return domain.EmptyCache(), nil }
func (failingStore) Save(context.Context, domain.Cache) error   { return errors.New("disk full") }
func (failingStore) Close() error                              { return nil }

func TestRunReturnsCacheWriteFailure(t *testing.T) {
	runner := NewRunner(feedsNamed("a"), &stubFetcher{}, failingStore{}, Options{}, nil)
	_, err := runner.Run(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRunWithNoFeedsStillWritesCache(t *testing.T) {
	store := cache.NewJSONStore(filepath.Join(t.TempDir(), "articles.json"))
	runner := NewRunner(nil, &stubFetcher{}, store, Options{Now: func() time.Time { return fixedNow }}, nil)

	res, err := runner.Run(context.Background(), 24)
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, saved.LastFetched)
	assert.Empty(t, saved.Articles)
}
