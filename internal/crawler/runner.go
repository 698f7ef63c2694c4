// Package crawler runs one harvest: fetch every registered feed, merge into the cache, persist.
package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Adda-Baaj/scruper/internal/cache"
	"github.com/Adda-Baaj/scruper/internal/domain"
	"github.com/Adda-Baaj/scruper/internal/errlog"
	"github.com/Adda-Baaj/scruper/internal/logger"
	"github.com/Adda-Baaj/scruper/internal/metrics"
	"github.com/Adda-Baaj/scruper/internal/normalize"
	"github.com/Adda-Baaj/scruper/pkg/providers"
	"github.com/Adda-Baaj/scruper/pkg/publishers"
)

const (
	DefaultWorkers = 1
	DefaultSpacing = time.Second
)

// FeedFetcher fetches and normalizes one feed.
type FeedFetcher interface {
	FetchAndNormalize(ctx context.Context, feed domain.FeedSource, window normalize.Window, fetchedAt time.Time) (providers.Batch, error)
}

// Options tunes a Runner. Zero values get defaults; a nil ErrorLog or Metrics disables them.
type Options struct {
	Workers    int
	Spacing    time.Duration
	ErrorLog   errlog.Recorder
	Publishers []publishers.Publisher
	Metrics    *metrics.Run
	Now        func() time.Time
}

// Result summarizes a completed run.
type Result struct {
	FetchedAt   string
	Fetched     int
	Failed      []string
	NewArticles int
	Total       int
	Published   publishers.Summary
}

// Runner orchestrates a harvest over a fixed feed registry.
type Runner struct {
	feeds   []domain.FeedSource
	fetcher FeedFetcher
	store   cache.Store
	opts    Options
	log     logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(feeds []domain.FeedSource, fetcher FeedFetcher, store cache.Store, opts Options, log logger.Logger) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Spacing < 0 {
		opts.Spacing = 0
	}
	if opts.ErrorLog == nil {
		opts.ErrorLog = errlog.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		feeds:   feeds,
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		log:     logger.Ensure(log),
	}
}

// outcome is the per-slot result of one feed fetch.
type outcome struct {
	batch providers.Batch
	err   error
	done  bool
}

// Run fetches all feeds admitted by the last hours, merges them into the cache and writes it.
// Feed failures are recorded and skipped; only a cache write failure is returned.
func (r *Runner) Run(ctx context.Context, hours int) (Result, error) {
	started := r.opts.Now()
	fetchedAt := started.UTC()
	window := normalize.NewWindow(fetchedAt, hours)
	res := Result{FetchedAt: domain.FormatTimestamp(fetchedAt)}

	r.log.InfoObj("run started", "run_start", map[string]any{
		"feeds":   len(r.feeds),
		"hours":   hours,
		"cutoff":  domain.FormatTimestamp(window.Cutoff),
		"workers": r.opts.Workers,
	})

	var fresh []domain.Article
	for i, out := range r.fetchAll(ctx, window, fetchedAt) {
		feed := r.feeds[i]
		if !out.done {
			continue
		}
		if out.err != nil {
			res.Failed = append(res.Failed, feed.Source)
			r.countFailure(feed)
			continue
		}
		r.countBatch(out.batch)
		fresh = append(fresh, out.batch.Articles...)
	}
	res.Fetched = len(fresh)

	existing, err := cache.LoadOrEmpty(ctx, r.store)
	if err != nil {
		r.log.DebugObj("cache unreadable, starting empty", "cache_load_fallback", map[string]any{
			"error": err.Error(),
		})
	}

	merged := cache.Merge(existing.Articles, fresh)
	added := cache.NewArticles(existing.Articles, merged)
	res.NewArticles = len(added)
	res.Total = len(merged)

	lastFetched := res.FetchedAt
	if err := r.store.Save(ctx, domain.Cache{LastFetched: &lastFetched, Articles: merged}); err != nil {
		r.log.ErrorObj("cache write failed", "cache_save_error", map[string]any{"error": err.Error()})
		return res, fmt.Errorf("write cache: %w", err)
	}

	if len(r.opts.Publishers) > 0 && len(added) > 0 {
		events := publishers.NewArticleEvents(added, res.FetchedAt)
		res.Published = publishers.PublishAll(ctx, r.opts.Publishers, events, r.log)
	}

	if m := r.opts.Metrics; m != nil {
		m.CacheArticles.Set(float64(res.Total))
		m.NewArticles.Set(float64(res.NewArticles))
		m.Finish(started, r.opts.Now())
	}

	r.log.InfoObj("run finished", "run_finish", map[string]any{
		"fetched":      res.Fetched,
		"new":          res.NewArticles,
		"total":        res.Total,
		"failed_feeds": res.Failed,
		"published":    res.Published.Sent,
		"publish_fail": res.Published.Failed,
	})
	return res, nil
}

// fetchAll fetches every feed through a bounded worker pool. Dispatches are spaced by the
// configured interval; results land in registry order.
func (r *Runner) fetchAll(ctx context.Context, window normalize.Window, fetchedAt time.Time) []outcome {
	out := make([]outcome, len(r.feeds))
	if len(r.feeds) == 0 {
		return out
	}

	limit := rate.Inf
	if r.opts.Spacing > 0 {
		limit = rate.Every(r.opts.Spacing)
	}
	limiter := rate.NewLimiter(limit, 1)

	workerCount := min(len(r.feeds), r.opts.Workers)
	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := range workerCount {
		wg.Add(1)
		go r.feedWorker(ctx, window, fetchedAt, jobCh, out, &wg, workerID)
	}

	for idx := range r.feeds {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		jobCh <- idx
	}
	close(jobCh)

	wg.Wait()
	return out
}

func (r *Runner) feedWorker(
	ctx context.Context,
	window normalize.Window,
	fetchedAt time.Time,
	jobCh <-chan int,
	out []outcome,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for idx := range jobCh {
		feed := r.feeds[idx]
		batch, err := r.fetcher.FetchAndNormalize(ctx, feed, window, fetchedAt)
		if err != nil {
			r.recordFailure(feed, err, workerID)
		}
		out[idx] = outcome{batch: batch, err: err, done: true}
	}
}

func (r *Runner) recordFailure(feed domain.FeedSource, err error, workerID int) {
	r.log.ErrorObj("feed fetch failed", "feed_fetch_error", map[string]any{
		"worker_id": workerID,
		"source":    feed.Source,
		"url":       feed.URL,
		"error":     err.Error(),
	})
	if recErr := r.opts.ErrorLog.Record(feed.SourceLabel, feed.URL, err); recErr != nil {
		r.log.WarnObj("error log write failed", "error_log_write_error", map[string]any{
			"error": recErr.Error(),
		})
	}
}

func (r *Runner) countBatch(b providers.Batch) {
	m := r.opts.Metrics
	if m == nil {
		return
	}
	src := b.Source.Source
	m.EntriesSeen.WithLabelValues(src).Add(float64(b.Entries))
	m.EntriesOutside.WithLabelValues(src).Add(float64(b.OutsideWindow))
	m.ArticlesAccepted.WithLabelValues(src).Add(float64(len(b.Articles)))
}

func (r *Runner) countFailure(feed domain.FeedSource) {
	if m := r.opts.Metrics; m != nil {
		m.FeedFailures.WithLabelValues(feed.Source).Inc()
	}
}
