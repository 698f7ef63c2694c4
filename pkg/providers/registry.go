package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Adda-Baaj/scruper/internal/domain"
)

// registryFile is the structure of an optional feeds file.
type registryFile struct {
	Feeds []domain.FeedSource `json:"feeds" yaml:"feeds"`
}

// DefaultRegistry returns the compiled-in feed sources.
func DefaultRegistry() []domain.FeedSource {
	return []domain.FeedSource{
		{
			Source:      "bensbites",
			SourceLabel: "Ben's Bites",
			URL:         "https://bensbites.substack.com/feed",
			Color:       "#6366f1",
		},
		{
			Source:      "rundown_ai",
			SourceLabel: "The AI Rundown",
			URL:         "https://rss.beehiiv.com/feeds/2R3C6Bt5wj.xml",
			Color:       "#f59e0b",
		},
	}
}

// LoadRegistry reads feed sources from a YAML or JSON file. An empty path returns the
// compiled-in registry.
func LoadRegistry(path string) ([]domain.FeedSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRegistry(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds file: %w", err)
	}

	reg, err := parseRegistry([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(reg.Feeds) == 0 {
		return nil, errors.New("feeds file contains no feeds entries")
	}

	seen := make(map[string]struct{}, len(reg.Feeds))
	feeds := make([]domain.FeedSource, 0, len(reg.Feeds))
	for i, feed := range reg.Feeds {
		feed = sanitizeFeed(feed)
		if err := validateFeed(feed); err != nil {
			return nil, fmt.Errorf("feeds[%d]: %w", i, err)
		}
		if _, dup := seen[feed.Source]; dup {
			return nil, fmt.Errorf("duplicate feed source %q", feed.Source)
		}
		seen[feed.Source] = struct{}{}
		feeds = append(feeds, feed)
	}
	return feeds, nil
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	var reg registryFile
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &reg); err != nil {
			return registryFile{}, fmt.Errorf("decode json feeds: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &reg); err != nil {
			return registryFile{}, fmt.Errorf("decode yaml feeds: %w", err)
		}
	}
	return reg, nil
}

func sanitizeFeed(feed domain.FeedSource) domain.FeedSource {
	feed.Source = strings.ToLower(strings.TrimSpace(feed.Source))
	feed.SourceLabel = strings.TrimSpace(feed.SourceLabel)
	feed.URL = strings.TrimSpace(feed.URL)
	feed.Color = strings.TrimSpace(feed.Color)
	if feed.SourceLabel == "" {
		feed.SourceLabel = feed.Source
	}
	return feed
}

func validateFeed(feed domain.FeedSource) error {
	if feed.Source == "" {
		return errors.New("source is required")
	}
	if feed.URL == "" {
		return fmt.Errorf("url is required for feed %q", feed.Source)
	}
	if !strings.HasPrefix(feed.URL, "http://") && !strings.HasPrefix(feed.URL, "https://") {
		return fmt.Errorf("url for feed %q must be http(s)", feed.Source)
	}
	return nil
}
