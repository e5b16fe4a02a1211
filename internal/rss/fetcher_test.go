package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ethan0723/Insight-Hub/internal/retry"
)

func singleTry() retry.Config {
	return retry.Config{MaxAttempts: 1, Delay: time.Millisecond}
}

const genericRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Example Feed</title>
<item>
<title>EU proposes parcel duty</title>
<link>https://pub.example/eu-duty</link>
<description>The Commission proposed a flat duty on low-value parcels.</description>
<pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
</item>
<item>
<title>Stripe updates payouts</title>
<link>https://pub.example/stripe</link>
<description>Payout schedules shift to a rolling basis.</description>
<pubDate>Tue, 03 Jun 2025 09:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

const aggregatorRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Search Results</title>
<item>
<title>Temu expands into Brazil - Example Wire</title>
<link>https://news.google.com/rss/articles/abc123</link>
<pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
<source url="https://examplewire.com">Example Wire</source>
</item>
</channel>
</rss>`

func TestParseGenericFeed(t *testing.T) {
	entries, err := parseGenericFeed("Example Feed", []byte(genericRSS))
	if err != nil {
		t.Fatalf("parseGenericFeed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	e := entries[0]
	if e.Title != "EU proposes parcel duty" || e.Link != "https://pub.example/eu-duty" {
		t.Errorf("entry = %+v", e)
	}
	if e.FeedName != "Example Feed" {
		t.Errorf("FeedName = %q", e.FeedName)
	}
	if e.PublishedAt == nil || !e.PublishedAt.Equal(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", e.PublishedAt)
	}
}

func TestParseAggregatorFeed_KeepsPublisherHint(t *testing.T) {
	entries, err := parseAggregatorFeed("Search", []byte(aggregatorRSS))
	if err != nil {
		t.Fatalf("parseAggregatorFeed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].SourceURL != "https://examplewire.com" {
		t.Errorf("SourceURL = %q, want the publisher hint", entries[0].SourceURL)
	}
}

func TestFetch_DeduplicatesAndCaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(genericRSS))
	}))
	defer srv.Close()

	f := NewFetcher(2*time.Second, 7, 24, 1, singleTry())
	entries := f.Fetch(context.Background(), Feed{Name: "Example Feed", URL: srv.URL}, time.Time{})

	if len(entries) != 1 {
		t.Fatalf("got %d entries, want cap of 1", len(entries))
	}
}

func TestFetch_TransportFailureYieldsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, 7, 24, 80, singleTry())
	if entries := f.Fetch(context.Background(), Feed{Name: "Broken", URL: srv.URL}, time.Time{}); len(entries) != 0 {
		t.Errorf("got %d entries from a 502 feed, want 0", len(entries))
	}
}

func TestFetch_RetriesFlakyServer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(genericRSS))
	}))
	defer srv.Close()

	f := NewFetcher(2*time.Second, 7, 24, 80, retry.Config{MaxAttempts: 3, Delay: time.Millisecond})
	entries := f.Fetch(context.Background(), Feed{Name: "Flaky", URL: srv.URL}, time.Time{})

	if len(entries) != 2 {
		t.Fatalf("got %d entries after retry, want 2", len(entries))
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server saw %d requests, want 2", got)
	}
}
