package rss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	gofeedrss "github.com/mmcdole/gofeed/rss"

	"github.com/Ethan0723/Insight-Hub/internal/logger"
	"github.com/Ethan0723/Insight-Hub/internal/retry"
)

const feedUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher downloads and parses syndication feeds. Capped Google News search
// feeds are split into date windows; everything else is a single request.
type Fetcher struct {
	client     *http.Client
	windowDays int
	maxWindows int
	maxEntries int
	retryCfg   retry.Config
}

func NewFetcher(timeout time.Duration, windowDays, maxWindows, maxEntries int, retryCfg retry.Config) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		windowDays: windowDays,
		maxWindows: maxWindows,
		maxEntries: maxEntries,
		retryCfg:   retryCfg,
	}
}

// Fetch returns the feed's entries since the given lower bound, deduplicated
// by (title, link) across windows and capped per feed. Transport and parse
// failures degrade to whatever was collected; they never abort a run.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed, since time.Time) []Entry {
	urls := windowURLs(feed.URL, since, time.Now().UTC(), f.windowDays, f.maxWindows)

	seen := make(map[string]struct{})
	var entries []Entry

	for _, u := range urls {
		batch, err := f.fetchOne(ctx, feed, u)
		if err != nil {
			logger.Warn("feed fetch failed", "feed", feed.Name, "url", u, "error", err)
			continue
		}
		for _, entry := range batch {
			key := entry.Title + "|" + entry.Link
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			entries = append(entries, entry)
			if f.maxEntries > 0 && len(entries) >= f.maxEntries {
				logger.Debug("per-feed entry cap reached", "feed", feed.Name, "cap", f.maxEntries)
				return entries
			}
		}
	}

	logger.Info("feed fetched", "feed", feed.Name, "windows", len(urls), "entries", len(entries))
	return entries
}

func (f *Fetcher) fetchOne(ctx context.Context, feed Feed, rawURL string) ([]Entry, error) {
	// Feed servers flake; one transient failure should not drop a whole
	// window, so the round-trip is retried.
	var body []byte
	err := retry.WithRetry(ctx, f.retryCfg, func() error {
		raw, fetchErr := f.download(ctx, rawURL)
		if fetchErr != nil {
			return fetchErr
		}
		body = raw
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The low-level RSS parser keeps the <source> element aggregator feeds
	// use for the publisher hint; the universal parser drops it.
	if IsCappedSearchFeed(feed.URL) {
		return parseAggregatorFeed(feed.Name, body)
	}
	return parseGenericFeed(feed.Name, body)
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", feedUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	return body, nil
}

func parseGenericFeed(feedName string, body []byte) ([]Entry, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, Entry{
			FeedName:    feedName,
			Title:       item.Title,
			Summary:     item.Description,
			Description: item.Content,
			Link:        item.Link,
			Published:   item.Published,
			Updated:     item.Updated,
			PublishedAt: item.PublishedParsed,
			UpdatedAt:   item.UpdatedParsed,
		})
	}
	return entries, nil
}

func parseAggregatorFeed(feedName string, body []byte) ([]Entry, error) {
	parsed, err := (&gofeedrss.Parser{}).Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse aggregator feed: %w", err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entry := Entry{
			FeedName:    feedName,
			Title:       item.Title,
			Summary:     item.Description,
			Link:        item.Link,
			Published:   item.PubDate,
			PublishedAt: item.PubDateParsed,
		}
		if item.Source != nil {
			entry.SourceURL = item.Source.URL
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
