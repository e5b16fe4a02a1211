package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/Ethan0723/Insight-Hub/internal/logger"
	"github.com/Ethan0723/Insight-Hub/internal/metrics"
	"github.com/Ethan0723/Insight-Hub/internal/news"
	"github.com/Ethan0723/Insight-Hub/internal/rss"
	"github.com/Ethan0723/Insight-Hub/internal/storage"
	"github.com/Ethan0723/Insight-Hub/internal/summary"
)

// Store is the persistence contract the pipeline depends on; *storage.Store
// satisfies it, tests fake it.
type Store interface {
	GetByHash(ctx context.Context, contentHash string) (*storage.Record, error)
	Insert(ctx context.Context, rec storage.Record) (int64, error)
	UpdateSummary(ctx context.Context, id int64, sum summary.Summary) error
	MissingSummaries(ctx context.Context, limit int) ([]storage.Record, error)
	MissingLocalizedTitles(ctx context.Context, limit int) ([]storage.Record, error)
	LatestPublishTime(ctx context.Context) (time.Time, error)
	CleanupCandidates(ctx context.Context, limit int) ([]storage.CleanupRecord, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

// Fetcher pulls raw entries from one configured feed.
type Fetcher interface {
	Fetch(ctx context.Context, feed rss.Feed, since time.Time) []rss.Entry
}

// Resolver canonicalizes a feed link.
type Resolver interface {
	Resolve(ctx context.Context, link, sourceHint string) string
}

// Extractor produces body-text candidates for an article URL.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) []news.Candidate
}

// Summarizer yields a schema-valid summary for one accepted item.
type Summarizer interface {
	Generate(ctx context.Context, title, content string) (summary.Summary, error)
}

// Deps wires all collaborators into the pipeline.
type Deps struct {
	Store      Store
	Fetcher    Fetcher
	Resolver   Resolver
	Extractor  Extractor
	Summarizer Summarizer
}

// Stats aggregates per-item outcomes of one run. No individual item failure
// ever unwinds a run; it lands in a counter instead.
type Stats struct {
	Processed       int
	Inserted        int
	Skipped         int
	Filtered        int
	Errors          int
	Summarized      int
	SummaryFailures int
}

// Pipeline is the run-to-completion batch orchestrator. Feeds and entries
// are processed sequentially in encounter order.
type Pipeline struct {
	deps            Deps
	feeds           []rss.Feed
	publishFloor    time.Time
	watermarkBuffer time.Duration
	summariesOn     bool
	batchLimit      int

	summariesHalted bool
}

func New(deps Deps, feeds []rss.Feed, publishFloor time.Time, watermarkBuffer time.Duration, summariesOn bool) *Pipeline {
	return &Pipeline{
		deps:            deps,
		feeds:           feeds,
		publishFloor:    publishFloor,
		watermarkBuffer: watermarkBuffer,
		summariesOn:     summariesOn,
		batchLimit:      500,
	}
}

// watermark derives the incremental lower bound: most recent persisted
// publish time minus a buffer, never earlier than the configured floor.
func (p *Pipeline) watermark(ctx context.Context) time.Time {
	latest, err := p.deps.Store.LatestPublishTime(ctx)
	if err != nil {
		logger.Warn("watermark lookup failed, using publish floor", "error", err)
		return p.publishFloor
	}
	if latest.IsZero() {
		return p.publishFloor
	}

	since := latest.Add(-p.watermarkBuffer)
	if since.Before(p.publishFloor) {
		return p.publishFloor
	}
	return since
}

// RunIngest executes one normal incremental ingestion run.
func (p *Pipeline) RunIngest(ctx context.Context) Stats {
	start := time.Now()
	defer func() {
		metrics.Global.RecordRunDuration(time.Since(start))
		metrics.Global.SetLastRun()
	}()

	var stats Stats
	since := p.watermark(ctx)
	logger.Info("starting ingest run", "feeds", len(p.feeds), "since", since)

	for _, feed := range p.feeds {
		entries := p.deps.Fetcher.Fetch(ctx, feed, since)
		for _, entry := range entries {
			p.processEntry(ctx, entry, since, &stats)
		}
	}

	logger.Info("ingest run finished",
		"processed", stats.Processed,
		"inserted", stats.Inserted,
		"skipped", stats.Skipped,
		"filtered", stats.Filtered,
		"errors", stats.Errors,
		"summarized", stats.Summarized,
	)
	return stats
}

func (p *Pipeline) processEntry(ctx context.Context, entry rss.Entry, since time.Time, stats *Stats) {
	stats.Processed++
	metrics.Global.IncrementProcessed()

	// Recency gate first: a stale or undated entry costs no article fetch.
	publishTime := entryPublishTime(entry)
	if publishTime == nil || publishTime.Before(since) {
		stats.Filtered++
		metrics.Global.IncrementFiltered()
		logger.Debug("entry filtered by recency gate", "title", entry.Title, "published", entry.Published)
		return
	}

	canonical := p.deps.Resolver.Resolve(ctx, entry.Link, entry.SourceURL)
	candidates := p.deps.Extractor.Extract(ctx, canonical)

	content := news.PickContent(
		entry.Title,
		candidates,
		news.StripHTML(entry.Summary),
		news.StripHTML(entry.Description),
	)
	if content == "" || !news.Relevant(entry.Title, content) {
		stats.Filtered++
		metrics.Global.IncrementFiltered()
		logger.Debug("entry filtered by relevance gate", "title", entry.Title)
		return
	}

	hash := storage.Fingerprint(content)
	existing, err := p.deps.Store.GetByHash(ctx, hash)
	if err != nil {
		stats.Errors++
		metrics.Global.IncrementErrors()
		logger.Error("fingerprint lookup failed", "title", entry.Title, "error", err)
		return
	}
	if existing != nil {
		stats.Skipped++
		metrics.Global.IncrementSkipped()
		logger.Debug("duplicate content skipped", "title", entry.Title, "hash", hash)
		return
	}

	id, err := p.deps.Store.Insert(ctx, storage.Record{
		ContentHash: hash,
		Title:       entry.Title,
		Content:     content,
		Source:      entry.FeedName,
		URL:         canonical,
		PublishTime: publishTime,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		// a concurrent run inserted the same content between lookup and insert
		stats.Skipped++
		metrics.Global.IncrementSkipped()
		return
	}
	if err != nil {
		stats.Errors++
		metrics.Global.IncrementErrors()
		logger.Error("insert failed", "title", entry.Title, "error", err)
		return
	}

	stats.Inserted++
	metrics.Global.IncrementInserted()
	logger.Info("new item ingested", "id", id, "title", entry.Title, "source", entry.FeedName)

	p.summarize(ctx, id, entry.Title, content, stats)
}

func (p *Pipeline) summarize(ctx context.Context, id int64, title, content string, stats *Stats) {
	if !p.summariesOn || p.summariesHalted || p.deps.Summarizer == nil {
		return
	}

	sum, err := p.deps.Summarizer.Generate(ctx, title, content)
	if errors.Is(err, summary.ErrHalted) {
		p.summariesHalted = true
		logger.Warn("summary generation halted, remaining items stay ingested without summaries")
		return
	}
	if err != nil {
		stats.SummaryFailures++
		metrics.Global.IncrementSummariesFailed()
		logger.Error("summary generation failed", "id", id, "error", err)
		return
	}

	if err := p.deps.Store.UpdateSummary(ctx, id, sum); err != nil {
		stats.SummaryFailures++
		metrics.Global.IncrementSummariesFailed()
		logger.Error("summary persist failed", "id", id, "error", err)
		return
	}

	stats.Summarized++
	metrics.Global.IncrementSummariesOK()
}

// entryPublishTime picks the best-effort publish time across the entry's
// published/updated fields. Nil means unparseable, which fails closed.
func entryPublishTime(entry rss.Entry) *time.Time {
	if entry.PublishedAt != nil {
		return entry.PublishedAt
	}
	return entry.UpdatedAt
}
