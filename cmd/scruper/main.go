package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/Adda-Baaj/scruper/internal/cache"
	"github.com/Adda-Baaj/scruper/internal/config"
	"github.com/Adda-Baaj/scruper/internal/crawler"
	"github.com/Adda-Baaj/scruper/internal/errlog"
	"github.com/Adda-Baaj/scruper/internal/logger"
	"github.com/Adda-Baaj/scruper/internal/metrics"
	"github.com/Adda-Baaj/scruper/pkg/httpclient"
	"github.com/Adda-Baaj/scruper/pkg/providers"
	"github.com/Adda-Baaj/scruper/pkg/publishers"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feeds, err := providers.LoadRegistry(cfg.FeedsFile)
	if err != nil {
		log.ErrorObj("feed registry load failed", "startup_error", map[string]any{"error": err.Error()})
		return 1
	}

	store, err := cache.Open(cfg.Store.Backend, cfg.Output, cfg.Store.BoltPath)
	if err != nil {
		log.ErrorObj("cache store open failed", "startup_error", map[string]any{"error": err.Error()})
		return 1
	}
	defer store.Close()

	pubCfgs, err := publishers.LoadConfigs(cfg.PublishersFile)
	if err != nil {
		log.ErrorObj("publishers config load failed", "startup_error", map[string]any{"error": err.Error()})
		return 1
	}
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), pubCfgs, log)
	if err != nil {
		log.ErrorObj("publishers build failed", "startup_error", map[string]any{"error": err.Error()})
		return 1
	}
	defer publishers.CloseAll(pubs, log)

	m := metrics.NewRun()
	fetcher := providers.NewFetcher(httpclient.NewRestyClient(cfg.HTTP.Timeout), cfg.HTTP.UserAgent, log)
	runner := crawler.NewRunner(feeds, fetcher, store, crawler.Options{
		Workers:    cfg.Fetch.Workers,
		Spacing:    cfg.Fetch.Spacing,
		ErrorLog:   errlog.NewFile(cfg.ErrorLog),
		Publishers: pubs,
		Metrics:    m,
	}, log)

	// Past startup the exit code is 0 whatever the outcome.
	res, err := runner.Run(ctx, cfg.Hours)
	if err != nil {
		log.ErrorObj("run finished without writing the cache", "run_error", map[string]any{"error": err.Error()})
		fmt.Fprintf(os.Stderr, "cache not written: %v\n", err)
		return 0
	}

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		log.WarnObj("metrics push failed", "metrics_push_error", map[string]any{"error": err.Error()})
	}

	fmt.Printf("Fetched %d articles (%d new, %d cached) from %d feeds, %d failed. Cache written to %s\n",
		res.Fetched, res.NewArticles, res.Total, len(feeds), len(res.Failed), cfg.Output)
	return 0
}
