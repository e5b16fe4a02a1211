package app

import (
	"context"
	"fmt"

	"github.com/Ethan0723/Insight-Hub/internal/config"
	"github.com/Ethan0723/Insight-Hub/internal/llm"
	"github.com/Ethan0723/Insight-Hub/internal/logger"
	"github.com/Ethan0723/Insight-Hub/internal/metrics"
	"github.com/Ethan0723/Insight-Hub/internal/pipeline"
	"github.com/Ethan0723/Insight-Hub/internal/ratelimit"
	"github.com/Ethan0723/Insight-Hub/internal/resolver"
	"github.com/Ethan0723/Insight-Hub/internal/retry"
	"github.com/Ethan0723/Insight-Hub/internal/rss"
	"github.com/Ethan0723/Insight-Hub/internal/scraper"
	"github.com/Ethan0723/Insight-Hub/internal/storage"
	"github.com/Ethan0723/Insight-Hub/internal/summary"
)

// Mode names accepted by Run.
const (
	ModeIngest            = "ingest"
	ModeBackfillSummaries = "backfill-summaries"
	ModeBackfillTitles    = "backfill-titles"
	ModeCleanup           = "cleanup"
)

// Run wires the whole pipeline from configuration and executes one batch in
// the requested mode. The process exits after one run; scheduling lives
// outside (cron, CI workflow).
func Run(ctx context.Context, mode string, del bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init()
	logger.Info("starting run", "mode", mode)

	store, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		metrics.Global.RecordError(err)
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	feeds, err := rss.LoadFeeds(cfg.FeedsConfigPath)
	if err != nil {
		metrics.Global.RecordError(err)
		return fmt.Errorf("load feeds: %w", err)
	}

	retryCfg := retry.Config{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}

	deps := pipeline.Deps{
		Store:     store,
		Fetcher:   rss.NewFetcher(cfg.FetchTimeout, cfg.GoogleWindowDays, cfg.MaxGoogleWindows, cfg.MaxEntriesPerFeed, retryCfg),
		Resolver:  resolver.New(cfg.RequestTimeout),
		Extractor: scraper.New(cfg.FetchTimeout),
	}

	if cfg.EnableSummary {
		client := llm.NewClient(cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
		limiter := ratelimit.NewLimiter(cfg.MaxLLMCalls, cfg.LLMTripThreshold)
		deps.Summarizer = summary.NewGenerator(
			client,
			limiter,
			cfg.LLMMaxInputChars,
			cfg.LLMMaxTokens,
			cfg.RepairMaxTokens,
			retryCfg,
		)
	}

	p := pipeline.New(deps, feeds, cfg.PublishFloor, cfg.WatermarkBuffer, cfg.EnableSummary)

	switch mode {
	case ModeIngest:
		p.RunIngest(ctx)
	case ModeBackfillSummaries:
		if !cfg.EnableSummary {
			return fmt.Errorf("mode %q requires summaries to be enabled", mode)
		}
		p.RunBackfillSummaries(ctx)
	case ModeBackfillTitles:
		if !cfg.EnableSummary {
			return fmt.Errorf("mode %q requires summaries to be enabled", mode)
		}
		p.RunBackfillTitles(ctx)
	case ModeCleanup:
		p.RunCleanup(ctx, del)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	return nil
}
