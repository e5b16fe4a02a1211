package pipeline

import (
	"context"
	"errors"

	"github.com/Ethan0723/Insight-Hub/internal/logger"
	"github.com/Ethan0723/Insight-Hub/internal/metrics"
	"github.com/Ethan0723/Insight-Hub/internal/news"
	"github.com/Ethan0723/Insight-Hub/internal/storage"
	"github.com/Ethan0723/Insight-Hub/internal/summary"
)

const deleteBatchSize = 100

// RunBackfillSummaries retries summary generation for persisted rows that
// have none, without re-ingesting anything.
func (p *Pipeline) RunBackfillSummaries(ctx context.Context) Stats {
	var stats Stats

	records, err := p.deps.Store.MissingSummaries(ctx, p.batchLimit)
	if err != nil {
		logger.Error("missing-summary scan failed", "error", err)
		metrics.Global.RecordError(err)
		stats.Errors++
		return stats
	}
	logger.Info("starting summary backfill", "candidates", len(records))

	for _, rec := range records {
		if p.summariesHalted {
			break
		}
		stats.Processed++

		sum, err := p.deps.Summarizer.Generate(ctx, rec.Title, rec.Content)
		if errors.Is(err, summary.ErrHalted) {
			p.summariesHalted = true
			logger.Warn("summary backfill halted", "completed", stats.Summarized, "remaining", len(records)-stats.Processed)
			break
		}
		if err != nil {
			stats.SummaryFailures++
			metrics.Global.IncrementSummariesFailed()
			logger.Error("summary backfill item failed", "id", rec.ID, "error", err)
			continue
		}

		if err := p.deps.Store.UpdateSummary(ctx, rec.ID, sum); err != nil {
			stats.SummaryFailures++
			metrics.Global.IncrementSummariesFailed()
			logger.Error("summary backfill persist failed", "id", rec.ID, "error", err)
			continue
		}

		stats.Summarized++
		metrics.Global.IncrementSummariesOK()
	}

	logger.Info("summary backfill finished", "processed", stats.Processed, "summarized", stats.Summarized, "failed", stats.SummaryFailures)
	return stats
}

// RunBackfillTitles regenerates the full summary for rows whose localized
// title is missing or still the untranslated placeholder. The regenerated
// payload overwrites the old one, so the title and the rest of the summary
// stay consistent.
func (p *Pipeline) RunBackfillTitles(ctx context.Context) Stats {
	var stats Stats

	records, err := p.deps.Store.MissingLocalizedTitles(ctx, p.batchLimit)
	if err != nil {
		logger.Error("missing-title scan failed", "error", err)
		metrics.Global.RecordError(err)
		stats.Errors++
		return stats
	}
	logger.Info("starting title backfill", "candidates", len(records))

	for _, rec := range records {
		if p.summariesHalted {
			break
		}
		stats.Processed++

		sum, err := p.deps.Summarizer.Generate(ctx, rec.Title, rec.Content)
		if errors.Is(err, summary.ErrHalted) {
			p.summariesHalted = true
			logger.Warn("title backfill halted", "completed", stats.Summarized)
			break
		}
		if err != nil {
			stats.SummaryFailures++
			metrics.Global.IncrementSummariesFailed()
			logger.Error("title backfill item failed", "id", rec.ID, "error", err)
			continue
		}
		if sum.TitleZH == "" || sum.TitleZH == summary.UntranslatedTitle {
			stats.SummaryFailures++
			logger.Warn("title backfill produced no usable title", "id", rec.ID)
			continue
		}

		if err := p.deps.Store.UpdateSummary(ctx, rec.ID, sum); err != nil {
			stats.SummaryFailures++
			metrics.Global.IncrementSummariesFailed()
			logger.Error("title backfill persist failed", "id", rec.ID, "error", err)
			continue
		}

		stats.Summarized++
		metrics.Global.IncrementSummariesOK()
	}

	logger.Info("title backfill finished", "processed", stats.Processed, "updated", stats.Summarized, "failed", stats.SummaryFailures)
	return stats
}

// CleanupStats reports one maintenance sweep.
type CleanupStats struct {
	Scanned int
	Flagged int
	Deleted int64
}

// RunCleanup re-applies the relevance gate to persisted rows and flags the
// ones that no longer pass, plus rows whose summary carries the
// low-confidence marker. Dry-run unless del is set.
func (p *Pipeline) RunCleanup(ctx context.Context, del bool) CleanupStats {
	var stats CleanupStats

	records, err := p.deps.Store.CleanupCandidates(ctx, cleanupScanLimit)
	if err != nil {
		logger.Error("cleanup scan failed", "error", err)
		metrics.Global.RecordError(err)
		return stats
	}
	stats.Scanned = len(records)

	var flagged []int64
	for _, rec := range records {
		reason := cleanupReason(rec)
		if reason == "" {
			continue
		}
		stats.Flagged++
		flagged = append(flagged, rec.ID)
		logger.Info("cleanup flagged row", "id", rec.ID, "title", rec.Title, "reason", reason, "dry_run", !del)
	}

	if !del || len(flagged) == 0 {
		logger.Info("cleanup finished", "scanned", stats.Scanned, "flagged", stats.Flagged, "deleted", 0, "dry_run", !del)
		return stats
	}

	for start := 0; start < len(flagged); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(flagged) {
			end = len(flagged)
		}
		n, err := p.deps.Store.DeleteByIDs(ctx, flagged[start:end])
		if err != nil {
			logger.Error("cleanup delete batch failed", "from", flagged[start], "error", err)
			metrics.Global.RecordError(err)
			continue
		}
		stats.Deleted += n
	}

	logger.Info("cleanup finished", "scanned", stats.Scanned, "flagged", stats.Flagged, "deleted", stats.Deleted)
	return stats
}

const cleanupScanLimit = 5000

func cleanupReason(rec storage.CleanupRecord) string {
	if !news.Relevant(rec.Title, rec.Content) {
		return "irrelevant"
	}
	if rec.LowConfidence {
		return "low-confidence summary"
	}
	return ""
}
