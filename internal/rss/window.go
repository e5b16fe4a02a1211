package rss

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const googleNewsHost = "news.google.com"

// IsCappedSearchFeed reports whether the feed URL is a Google News search
// feed, which silently caps results to a single page regardless of the date
// range asked for.
func IsCappedSearchFeed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Hostname(), googleNewsHost) && strings.Contains(u.Path, "/rss/search")
}

// windowURLs splits a capped search feed into sequential date windows,
// rewriting the search query with explicit after:/before: bounds so each
// request gets its own result page. A zero or future lower bound yields the
// unmodified URL: there is nothing to window over.
func windowURLs(rawURL string, since, now time.Time, windowDays, maxWindows int) []string {
	if since.IsZero() || !since.Before(now) || !IsCappedSearchFeed(rawURL) {
		return []string{rawURL}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return []string{rawURL}
	}
	query := u.Query()
	baseQ := query.Get("q")
	if baseQ == "" {
		return []string{rawURL}
	}

	width := time.Duration(windowDays) * 24 * time.Hour
	var urls []string
	for start := since; start.Before(now) && len(urls) < maxWindows; start = start.Add(width) {
		end := start.Add(width)
		if end.After(now) {
			end = now
		}

		wq := fmt.Sprintf("%s after:%s before:%s",
			baseQ,
			start.UTC().Format("2006-01-02"),
			// before: is exclusive, so cover the end day fully
			end.UTC().AddDate(0, 0, 1).Format("2006-01-02"))

		wu := *u
		wquery := u.Query()
		wquery.Set("q", wq)
		wu.RawQuery = wquery.Encode()
		urls = append(urls, wu.String())
	}

	if len(urls) == 0 {
		return []string{rawURL}
	}
	return urls
}
