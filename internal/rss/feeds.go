package rss

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Feed is a single configured syndication source.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FeedsConfig is the YAML config structure:
//
//	feeds:
//	  - name: TechCrunch Ecommerce
//	    url: https://techcrunch.com/category/e-commerce/feed/
type FeedsConfig struct {
	Feeds []Feed `yaml:"feeds"`
}

// Entry is one raw feed item, normalized across RSS and Atom. SourceURL is
// the publisher hint that aggregator feeds carry alongside a wrapped link.
type Entry struct {
	FeedName    string
	Title       string
	Summary     string
	Description string
	Link        string
	SourceURL   string
	Published   string
	Updated     string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
}

// LoadFeeds reads the feed list from a YAML file, dropping entries without a
// URL and collapsing duplicate URLs (first name wins).
func LoadFeeds(path string) ([]Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feeds config: %w", err)
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse feeds config: %w", err)
	}

	seen := make(map[string]struct{}, len(cfg.Feeds))
	feeds := make([]Feed, 0, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		if feed.URL == "" {
			continue
		}
		if _, dup := seen[feed.URL]; dup {
			continue
		}
		seen[feed.URL] = struct{}{}
		if feed.Name == "" {
			feed.Name = "Unknown"
		}
		feeds = append(feeds, feed)
	}
	return feeds, nil
}
