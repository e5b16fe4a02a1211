package resolver

import (
	"context"
	"testing"
	"time"
)

func TestResolve_NonAggregatorLinkPassesThrough(t *testing.T) {
	r := New(time.Second)
	link := "https://techcrunch.com/2025/06/01/some-article/"
	if got := r.Resolve(context.Background(), link, "https://example.com"); got != link {
		t.Errorf("Resolve = %q, want the link unchanged", got)
	}
}

func TestResolve_EmptyLinkFallsBackToHint(t *testing.T) {
	r := New(time.Second)
	if got := r.Resolve(context.Background(), "", "https://publisher.example/article"); got != "https://publisher.example/article" {
		t.Errorf("Resolve = %q, want the publisher hint", got)
	}
	if got := r.Resolve(context.Background(), "", ""); got != "" {
		t.Errorf("Resolve = %q, want empty when nothing is available", got)
	}
}

func TestIsAggregatorURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://news.google.com/rss/articles/abc123", true},
		{"https://news.google.com/articles/xyz?hl=en", true},
		{"https://www.reuters.com/markets/", false},
		{"https://notnews.google.com.evil.example/", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isAggregatorURL(tt.url); got != tt.want {
			t.Errorf("isAggregatorURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
