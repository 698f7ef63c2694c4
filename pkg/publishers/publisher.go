// Package publishers fans newly cached articles out to configured sinks (HTTP endpoints and
// cloud queues).
package publishers

import (
	"context"

	"github.com/samber/lo"

	"github.com/Adda-Baaj/scruper/internal/domain"
	"github.com/Adda-Baaj/scruper/internal/logger"
)

// EventTypeArticleNew marks an article seen for the first time.
const EventTypeArticleNew = "article.new"

// Logger is the logging contract used by publishers.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger { return logger.Ensure(log) }

// Event is the payload delivered to every sink.
type Event struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	EmittedAt string         `json:"emitted_at"`
	Article   domain.Article `json:"article"`
}

// Publisher delivers events to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NewArticleEvents builds one article.new event per article.
func NewArticleEvents(articles []domain.Article, emittedAt string) []Event {
	return lo.Map(articles, func(a domain.Article, _ int) Event {
		return Event{
			Type:      EventTypeArticleNew,
			ID:        a.ID,
			Source:    a.Source,
			EmittedAt: emittedAt,
			Article:   a,
		}
	})
}

// Summary counts deliveries of one fan-out.
type Summary struct {
	Sent   int
	Failed int
}

// PublishAll sends every event to every publisher. Failures are logged and counted, never returned.
func PublishAll(ctx context.Context, pubs []Publisher, events []Event, log Logger) Summary {
	log = ensureLogger(log)
	var sum Summary
	for _, pub := range pubs {
		for _, evt := range events {
			if ctx.Err() != nil {
				return sum
			}
			if err := pub.Publish(ctx, evt); err != nil {
				sum.Failed++
				log.WarnObj("publish failed", "publish_error", map[string]any{
					"publisher_id": pub.ID(),
					"article_id":   evt.ID,
					"source":       evt.Source,
					"error":        err.Error(),
				})
				continue
			}
			sum.Sent++
		}
	}
	return sum
}

// CloseAll closes every publisher, logging failures.
func CloseAll(pubs []Publisher, log Logger) {
	log = ensureLogger(log)
	for _, pub := range pubs {
		if err := pub.Close(); err != nil {
			log.WarnObj("publisher close failed", "publisher_close_error", map[string]any{
				"publisher_id": pub.ID(),
				"error":        err.Error(),
			})
		}
	}
}
