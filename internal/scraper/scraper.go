package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/Ethan0723/Insight-Hub/internal/logger"
	"github.com/Ethan0723/Insight-Hub/internal/news"
)

const (
	browserUA   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodySize = 4 << 20
	minParaLen  = 20
)

// Likely content containers, most specific first. The selector fallback
// takes the longest container that yields paragraph text.
var contentSelectors = []string{
	"article",
	".article-body",
	".article-content",
	".post-content",
	".entry-content",
	".story-body",
	".content",
	"main",
	"#content",
}

// Extractor fetches article pages and produces independent plain-text
// extraction candidates for the scorer to choose from.
type Extractor struct {
	client *http.Client
}

func New(timeout time.Duration) *Extractor {
	return &Extractor{
		client: &http.Client{Timeout: timeout},
	}
}

// Extract fetches the page and runs each extraction strategy over it.
// Transport errors and non-2xx responses yield no candidates and a nil
// error: a missing page degrades the entry, it does not fail the run.
func (e *Extractor) Extract(ctx context.Context, pageURL string) []news.Candidate {
	if pageURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Debug("article fetch failed", "url", pageURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("article fetch non-2xx", "url", pageURL, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		logger.Debug("article body read failed", "url", pageURL, "error", err)
		return nil
	}

	return ExtractFromHTML(body, pageURL)
}

// ExtractFromHTML runs the extraction strategies over already-fetched HTML.
// Strategies are independent; a failure in one never blocks the others.
func ExtractFromHTML(body []byte, pageURL string) []news.Candidate {
	var candidates []news.Candidate

	if text := readabilityText(body, pageURL); text != "" {
		candidates = append(candidates, news.Candidate{Text: text, Origin: news.OriginReadability})
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return candidates
	}

	if text := articleBodyFromJSONLD(doc); text != "" {
		candidates = append(candidates, news.Candidate{Text: text, Origin: news.OriginMetadata})
	}

	if text := selectorFallback(doc); text != "" {
		candidates = append(candidates, news.Candidate{Text: text, Origin: news.OriginSelector})
	}

	return candidates
}

func readabilityText(body []byte, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil || parsedURL.Host == "" {
		parsedURL = &url.URL{Scheme: "https", Host: "localhost"}
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return ""
	}
	return cleanText(article.TextContent)
}

// articleBodyFromJSONLD digs articleBody out of embedded structured-metadata
// blocks. Publishers nest it in plain objects, arrays and @graph wrappers.
func articleBodyFromJSONLD(doc *goquery.Document) string {
	var found string

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var payload interface{}
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		if body := findArticleBody(payload); body != "" {
			found = body
			return false
		}
		return true
	})

	return cleanText(found)
}

func findArticleBody(node interface{}) string {
	switch v := node.(type) {
	case map[string]interface{}:
		if body, ok := v["articleBody"].(string); ok && strings.TrimSpace(body) != "" {
			return body
		}
		if graph, ok := v["@graph"]; ok {
			if body := findArticleBody(graph); body != "" {
				return body
			}
		}
	case []interface{}:
		for _, item := range v {
			if body := findArticleBody(item); body != "" {
				return body
			}
		}
	}
	return ""
}

// selectorFallback concatenates paragraph text inside likely content
// containers and keeps the longest container match.
func selectorFallback(doc *goquery.Document) string {
	var best string

	for _, selector := range contentSelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}

		var paragraphs []string
		container.Find("p").Each(func(i int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			if len(text) >= minParaLen {
				paragraphs = append(paragraphs, text)
			}
		})

		joined := strings.Join(paragraphs, "\n\n")
		if len(joined) > len(best) {
			best = joined
		}
	}

	return cleanText(best)
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}
