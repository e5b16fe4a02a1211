package storage

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Ethan0723/Insight-Hub/internal/summary"
)

// ErrDuplicate marks an insert that lost to an existing row with the same
// content fingerprint. Callers treat it as an expected skip, never a failure.
var ErrDuplicate = errors.New("record with this content hash already exists")

const uniqueViolation = "23505"

// Fingerprint computes the dedup key: a stable hash over trimmed article
// content. Identical content with different surrounding whitespace always
// maps to the same fingerprint.
func Fingerprint(content string) string {
	normalized := strings.TrimSpace(content)
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Record is a persisted ingestion row. Summary is nil until the normalizer
// has run for the record.
type Record struct {
	ID          int64
	ContentHash string
	Title       string
	Content     string
	Source      string
	URL         string
	PublishTime *time.Time
	Summary     *summary.Summary
	TitleZH     string
	CreatedAt   time.Time
}

// Store is the single gateway to persisted state. The unique constraint on
// content_hash is the system's only cross-run concurrency-safety mechanism.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres, verifies the connection and ensures the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS news_raw (
		id BIGSERIAL PRIMARY KEY,
		content_hash VARCHAR(64) UNIQUE NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		source VARCHAR(200),
		url TEXT,
		publish_time TIMESTAMPTZ,
		summary JSONB,
		title_zh TEXT,
		impact_score INTEGER,
		risk_level VARCHAR(20),
		platform VARCHAR(50),
		region VARCHAR(50),
		tags TEXT[],
		summary_generated_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_news_raw_content_hash ON news_raw(content_hash);
	CREATE INDEX IF NOT EXISTS idx_news_raw_publish_time ON news_raw(publish_time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// GetByHash looks up a record id by content fingerprint. A nil record means
// the fingerprint is unseen.
func (s *Store) GetByHash(ctx context.Context, contentHash string) (*Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx,
		`SELECT id, content_hash, title FROM news_raw WHERE content_hash = $1 LIMIT 1`,
		contentHash,
	).Scan(&rec.ID, &rec.ContentHash, &rec.Title)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup by hash: %w", err)
	}
	return &rec, nil
}

// Insert creates one ingestion row and returns its id. A unique-constraint
// conflict on content_hash maps to ErrDuplicate.
func (s *Store) Insert(ctx context.Context, rec Record) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO news_raw (content_hash, title, content, source, url, publish_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		rec.ContentHash, rec.Title, rec.Content, rec.Source, rec.URL, rec.PublishTime,
	).Scan(&id)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// UpdateSummary stores the normalized summary JSON plus the denormalized
// scalar columns used by dashboard queries, keyed by record id.
func (s *Store) UpdateSummary(ctx context.Context, id int64, sum summary.Summary) error {
	payload, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE news_raw
		 SET summary = $2,
		     title_zh = $3,
		     impact_score = $4,
		     risk_level = $5,
		     platform = $6,
		     region = $7,
		     tags = $8,
		     summary_generated_at = NOW()
		 WHERE id = $1`,
		id, payload, sum.TitleZH, sum.ImpactScore, sum.RiskLevel, sum.Platform, sum.Region, pq.StringArray(sum.Tags),
	)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return nil
}

// MissingSummaries returns records that were ingested without a summary.
func (s *Store) MissingSummaries(ctx context.Context, limit int) ([]Record, error) {
	return s.scan(ctx,
		`SELECT id, content_hash, title, content, source, url, publish_time, created_at
		 FROM news_raw WHERE summary IS NULL ORDER BY created_at LIMIT $1`, limit)
}

// MissingLocalizedTitles returns records whose localized title was never
// produced or is still the untranslated placeholder.
func (s *Store) MissingLocalizedTitles(ctx context.Context, limit int) ([]Record, error) {
	return s.scan(ctx,
		`SELECT id, content_hash, title, content, source, url, publish_time, created_at
		 FROM news_raw
		 WHERE summary IS NOT NULL AND (title_zh IS NULL OR title_zh = '' OR title_zh = $2)
		 ORDER BY created_at LIMIT $1`, limit, summary.UntranslatedTitle)
}

// LatestPublishTime returns the most recent persisted publish time, or the
// zero time when the store holds nothing yet.
func (s *Store) LatestPublishTime(ctx context.Context) (time.Time, error) {
	var latest sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT MAX(publish_time) FROM news_raw`).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest publish time: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time, nil
}

// CleanupRecord pairs a record with its persisted low-confidence flag for
// the cleanup scan.
type CleanupRecord struct {
	Record
	LowConfidence bool
}

// CleanupCandidates returns every record together with whether its stored
// summary was marked low-confidence, oldest first.
func (s *Store) CleanupCandidates(ctx context.Context, limit int) ([]CleanupRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_hash, title, content, source, url, publish_time, created_at,
		        (summary IS NOT NULL AND (tags @> ARRAY['insufficient-information'] OR summary->>'tldr' ILIKE '%'||$2||'%'))
		 FROM news_raw ORDER BY created_at LIMIT $1`,
		limit, summary.LowConfidenceMarker)
	if err != nil {
		return nil, fmt.Errorf("query cleanup candidates: %w", err)
	}
	defer rows.Close()

	var records []CleanupRecord
	for rows.Next() {
		var rec CleanupRecord
		var source, url sql.NullString
		var publishTime sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.ContentHash, &rec.Title, &rec.Content, &source, &url, &publishTime, &rec.CreatedAt, &rec.LowConfidence); err != nil {
			return nil, fmt.Errorf("scan cleanup candidate: %w", err)
		}
		rec.Source = source.String
		rec.URL = url.String
		if publishTime.Valid {
			t := publishTime.Time
			rec.PublishTime = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cleanup candidates: %w", err)
	}
	return records, nil
}

// DeleteByIDs removes records in one id batch.
func (s *Store) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM news_raw WHERE id = ANY($1)`, pq.Int64Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (s *Store) scan(ctx context.Context, query string, args ...interface{}) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var source, url sql.NullString
		var publishTime sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.ContentHash, &rec.Title, &rec.Content, &source, &url, &publishTime, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Source = source.String
		rec.URL = url.String
		if publishTime.Valid {
			t := publishTime.Time
			rec.PublishTime = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
