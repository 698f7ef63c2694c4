// Package metrics holds the run's Prometheus collectors and pushes them to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Run collects the counters of one harvest run on a private registry.
type Run struct {
	registry *prometheus.Registry

	EntriesSeen      *prometheus.CounterVec
	EntriesOutside   *prometheus.CounterVec
	ArticlesAccepted *prometheus.CounterVec
	FeedFailures     *prometheus.CounterVec
	CacheArticles    prometheus.Gauge
	NewArticles      prometheus.Gauge
	RunDuration      prometheus.Gauge
	LastSuccess      prometheus.Gauge
}

// NewRun registers a fresh set of collectors.
func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		EntriesSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scruper_feed_entries_total",
			Help: "Entries returned by the feed parser",
		}, []string{"source"}),
		EntriesOutside: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scruper_feed_entries_outside_window_total",
			Help: "Entries dropped by the recency window",
		}, []string{"source"}),
		ArticlesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scruper_articles_normalized_total",
			Help: "Entries that normalized into articles",
		}, []string{"source"}),
		FeedFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scruper_feed_failures_total",
			Help: "Feeds that failed to fetch or parse",
		}, []string{"source"}),
		CacheArticles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scruper_cache_articles",
			Help: "Articles in the cache after the merge",
		}),
		NewArticles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scruper_new_articles",
			Help: "Articles added to the cache by this run",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scruper_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scruper_last_success_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
	}
	r.registry.MustRegister(
		r.EntriesSeen, r.EntriesOutside, r.ArticlesAccepted, r.FeedFailures,
		r.CacheArticles, r.NewArticles, r.RunDuration, r.LastSuccess,
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Run) Registry() *prometheus.Registry { return r.registry }

// Finish records the run duration and completion time.
func (r *Run) Finish(started, finished time.Time) {
	r.RunDuration.Set(finished.Sub(started).Seconds())
	r.LastSuccess.Set(float64(finished.Unix()))
}

// Push sends the collectors to a Pushgateway. An empty url is a no-op.
func (r *Run) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if job == "" {
		job = "scruper"
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
