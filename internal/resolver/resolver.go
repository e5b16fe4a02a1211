package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ethan0723/Insight-Hub/internal/cache"
	"github.com/Ethan0723/Insight-Hub/internal/logger"
)

const (
	aggregatorHost = "news.google.com"
	browserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	cacheTTL       = 6 * time.Hour
)

// Resolver turns feed-supplied links into canonical source-article URLs by
// unwrapping aggregator redirects. It never fails: on any transport problem
// it falls back to the best available URL deterministically.
type Resolver struct {
	client *http.Client
	cache  *cache.Cache
}

func New(timeout time.Duration) *Resolver {
	return &Resolver{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		cache: cache.New(),
	}
}

// Resolve returns the canonical article URL for a feed link. Links outside
// the aggregator domain are already canonical. Aggregator links are followed
// through their redirect chain; if the chain never leaves the aggregator,
// the publisher hint wins, then the original link, then empty.
func (r *Resolver) Resolve(ctx context.Context, link, sourceHint string) string {
	if link == "" {
		if sourceHint != "" {
			return sourceHint
		}
		return ""
	}

	if !isAggregatorURL(link) {
		return link
	}

	if cached, ok := r.cache.Get(link); ok {
		return cached
	}

	resolved := r.follow(ctx, link)
	if resolved == "" || isAggregatorURL(resolved) {
		if sourceHint != "" {
			resolved = sourceHint
		} else {
			resolved = link
		}
	}

	r.cache.Set(link, resolved, cacheTTL)
	return resolved
}

func (r *Resolver) follow(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Debug("redirect resolution failed", "url", link, "error", err)
		return ""
	}
	defer resp.Body.Close()

	return resp.Request.URL.String()
}

func isAggregatorURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == aggregatorHost || strings.HasSuffix(host, "."+aggregatorHost)
}
