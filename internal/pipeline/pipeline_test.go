package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ethan0723/Insight-Hub/internal/news"
	"github.com/Ethan0723/Insight-Hub/internal/rss"
	"github.com/Ethan0723/Insight-Hub/internal/storage"
	"github.com/Ethan0723/Insight-Hub/internal/summary"
)

const goodBody = "The European Commission proposed a flat customs duty on low-value parcels entering the bloc, a move aimed at cross-border marketplaces shipping directly from Asia to European consumers."

var (
	floor   = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent  = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ancient = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

type fakeStore struct {
	byHash    map[string]storage.Record
	nextID    int64
	inserted  []storage.Record
	summaries map[int64]summary.Summary
	latest    time.Time

	missingSummaries []storage.Record
	missingTitles    []storage.Record
	cleanup          []storage.CleanupRecord
	deleted          []int64

	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byHash:    make(map[string]storage.Record),
		summaries: make(map[int64]summary.Summary),
	}
}

func (s *fakeStore) GetByHash(_ context.Context, hash string) (*storage.Record, error) {
	if rec, ok := s.byHash[hash]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *fakeStore) Insert(_ context.Context, rec storage.Record) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	if _, ok := s.byHash[rec.ContentHash]; ok {
		return 0, storage.ErrDuplicate
	}
	s.nextID++
	rec.ID = s.nextID
	s.byHash[rec.ContentHash] = rec
	s.inserted = append(s.inserted, rec)
	return rec.ID, nil
}

func (s *fakeStore) UpdateSummary(_ context.Context, id int64, sum summary.Summary) error {
	s.summaries[id] = sum
	return nil
}

func (s *fakeStore) MissingSummaries(_ context.Context, _ int) ([]storage.Record, error) {
	return s.missingSummaries, nil
}

func (s *fakeStore) MissingLocalizedTitles(_ context.Context, _ int) ([]storage.Record, error) {
	return s.missingTitles, nil
}

func (s *fakeStore) LatestPublishTime(_ context.Context) (time.Time, error) {
	return s.latest, nil
}

func (s *fakeStore) CleanupCandidates(_ context.Context, _ int) ([]storage.CleanupRecord, error) {
	return s.cleanup, nil
}

func (s *fakeStore) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	s.deleted = append(s.deleted, ids...)
	return int64(len(ids)), nil
}

type fakeFetcher struct {
	entries map[string][]rss.Entry
}

func (f *fakeFetcher) Fetch(_ context.Context, feed rss.Feed, _ time.Time) []rss.Entry {
	return f.entries[feed.Name]
}

type fakeResolver struct {
	calls int
}

func (r *fakeResolver) Resolve(_ context.Context, link, hint string) string {
	r.calls++
	if link == "" {
		return hint
	}
	return link
}

type fakeExtractor struct {
	calls      int
	candidates map[string][]news.Candidate
}

func (e *fakeExtractor) Extract(_ context.Context, pageURL string) []news.Candidate {
	e.calls++
	return e.candidates[pageURL]
}

type summarizerResult struct {
	sum summary.Summary
	err error
}

type fakeSummarizer struct {
	calls   int
	results []summarizerResult
}

func (g *fakeSummarizer) Generate(_ context.Context, title, content string) (summary.Summary, error) {
	g.calls++
	if len(g.results) == 0 {
		return summary.Default("fake"), nil
	}
	res := g.results[0]
	g.results = g.results[1:]
	return res.sum, res.err
}

func entry(title, link string, published time.Time) rss.Entry {
	return rss.Entry{
		FeedName:    "Test Feed",
		Title:       title,
		Link:        link,
		PublishedAt: &published,
	}
}

func buildPipeline(store *fakeStore, fetcher *fakeFetcher, res *fakeResolver, ext *fakeExtractor, gen *fakeSummarizer) *Pipeline {
	deps := Deps{Store: store, Fetcher: fetcher, Resolver: res, Extractor: ext}
	if gen != nil {
		deps.Summarizer = gen
	}
	return New(deps, []rss.Feed{{Name: "Test Feed", URL: "https://feed.example/rss"}}, floor, time.Hour, gen != nil)
}

func TestRunIngest_NewItemFlowsEndToEnd(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{entries: map[string][]rss.Entry{
		"Test Feed": {entry("EU proposes parcel duty", "https://pub.example/a", recent)},
	}}
	ext := &fakeExtractor{candidates: map[string][]news.Candidate{
		"https://pub.example/a": {{Text: goodBody, Origin: news.OriginReadability}},
	}}
	gen := &fakeSummarizer{results: []summarizerResult{{sum: summary.Default("ok")}}}

	stats := buildPipeline(store, fetcher, &fakeResolver{}, ext, gen).RunIngest(context.Background())

	if stats.Processed != 1 || stats.Inserted != 1 || stats.Summarized != 1 {
		t.Fatalf("stats = %+v, want 1 processed/inserted/summarized", stats)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("store has %d inserts, want 1", len(store.inserted))
	}
	rec := store.inserted[0]
	if rec.ContentHash != storage.Fingerprint(goodBody) {
		t.Errorf("stored hash %q does not match content fingerprint", rec.ContentHash)
	}
	if rec.Source != "Test Feed" || rec.URL != "https://pub.example/a" {
		t.Errorf("stored record = %+v", rec)
	}
	if _, ok := store.summaries[rec.ID]; !ok {
		t.Error("summary not persisted for inserted record")
	}
}

func TestRunIngest_DuplicateContentSkipped(t *testing.T) {
	store := newFakeStore()
	store.byHash[storage.Fingerprint(goodBody)] = storage.Record{ID: 7, ContentHash: storage.Fingerprint(goodBody)}

	fetcher := &fakeFetcher{entries: map[string][]rss.Entry{
		"Test Feed": {entry("Same story, different headline", "https://pub.example/b", recent)},
	}}
	ext := &fakeExtractor{candidates: map[string][]news.Candidate{
		"https://pub.example/b": {{Text: goodBody, Origin: news.OriginReadability}},
	}}
	gen := &fakeSummarizer{}

	stats := buildPipeline(store, fetcher, &fakeResolver{}, ext, gen).RunIngest(context.Background())

	if stats.Skipped != 1 || stats.Inserted != 0 {
		t.Errorf("stats = %+v, want 1 skipped, 0 inserted", stats)
	}
	if gen.calls != 0 {
		t.Errorf("summarizer called %d times for a duplicate, want 0", gen.calls)
	}
}

func TestRunIngest_StaleEntryCostsNoNetworkCalls(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{entries: map[string][]rss.Entry{
		"Test Feed": {
			entry("Old story", "https://pub.example/old", ancient),
			{FeedName: "Test Feed", Title: "Undated story", Link: "https://pub.example/undated"},
		},
	}}
	res := &fakeResolver{}
	ext := &fakeExtractor{}

	stats := buildPipeline(store, fetcher, res, ext, nil).RunIngest(context.Background())

	if stats.Filtered != 2 {
		t.Errorf("stats = %+v, want 2 filtered", stats)
	}
	if res.calls != 0 || ext.calls != 0 {
		t.Errorf("resolver/extractor called %d/%d times for stale entries, want 0/0", res.calls, ext.calls)
	}
}

func TestRunIngest_IrrelevantContentFiltered(t *testing.T) {
	store := newFakeStore()
	offTopic := "A lengthy feature about a local bakery winning a regional sourdough competition this weekend, with interviews and photographs from the event and quotes from the judges."

	fetcher := &fakeFetcher{entries: map[string][]rss.Entry{
		"Test Feed": {entry("Bakery wins award", "https://pub.example/bread", recent)},
	}}
	ext := &fakeExtractor{candidates: map[string][]news.Candidate{
		"https://pub.example/bread": {{Text: offTopic, Origin: news.OriginReadability}},
	}}

	stats := buildPipeline(store, fetcher, &fakeResolver{}, ext, nil).RunIngest(context.Background())

	if stats.Filtered != 1 || stats.Inserted != 0 {
		t.Errorf("stats = %+v, want 1 filtered, 0 inserted", stats)
	}
}

func TestRunIngest_HaltedSummariesKeepIngesting(t *testing.T) {
	store := newFakeStore()
	second := goodBody + " Officials said the change would take effect next year for all cross-border shipments."

	fetcher := &fakeFetcher{entries: map[string][]rss.Entry{
		"Test Feed": {
			entry("Story one", "https://pub.example/1", recent),
			entry("Story two", "https://pub.example/2", recent),
		},
	}}
	ext := &fakeExtractor{candidates: map[string][]news.Candidate{
		"https://pub.example/1": {{Text: goodBody, Origin: news.OriginReadability}},
		"https://pub.example/2": {{Text: second, Origin: news.OriginReadability}},
	}}
	gen := &fakeSummarizer{results: []summarizerResult{{err: summary.ErrHalted}}}

	stats := buildPipeline(store, fetcher, &fakeResolver{}, ext, gen).RunIngest(context.Background())

	if stats.Inserted != 2 {
		t.Errorf("stats = %+v, want both items inserted despite the halt", stats)
	}
	if stats.Summarized != 0 {
		t.Errorf("stats = %+v, want no summaries after the halt", stats)
	}
	if gen.calls != 1 {
		t.Errorf("summarizer called %d times, want 1 (halt stops further attempts)", gen.calls)
	}
}

func TestRunIngest_SummaryFailureDoesNotBlockItem(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{entries: map[string][]rss.Entry{
		"Test Feed": {entry("Story", "https://pub.example/x", recent)},
	}}
	ext := &fakeExtractor{candidates: map[string][]news.Candidate{
		"https://pub.example/x": {{Text: goodBody, Origin: news.OriginReadability}},
	}}
	gen := &fakeSummarizer{results: []summarizerResult{{err: errors.New("model returned status 500")}}}

	stats := buildPipeline(store, fetcher, &fakeResolver{}, ext, gen).RunIngest(context.Background())

	if stats.Inserted != 1 {
		t.Errorf("stats = %+v, want item inserted despite summary failure", stats)
	}
	if stats.SummaryFailures != 1 || stats.Summarized != 0 {
		t.Errorf("stats = %+v, want 1 summary failure", stats)
	}
}

func TestRunIngest_InsertErrorCountsAndContinues(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("connection reset")

	fetcher := &fakeFetcher{entries: map[string][]rss.Entry{
		"Test Feed": {entry("Story", "https://pub.example/x", recent)},
	}}
	ext := &fakeExtractor{candidates: map[string][]news.Candidate{
		"https://pub.example/x": {{Text: goodBody, Origin: news.OriginReadability}},
	}}

	stats := buildPipeline(store, fetcher, &fakeResolver{}, ext, nil).RunIngest(context.Background())

	if stats.Errors != 1 || stats.Inserted != 0 {
		t.Errorf("stats = %+v, want 1 error, 0 inserted", stats)
	}
}

func TestRunBackfillSummaries(t *testing.T) {
	store := newFakeStore()
	store.missingSummaries = []storage.Record{
		{ID: 1, Title: "One", Content: goodBody},
		{ID: 2, Title: "Two", Content: goodBody},
	}
	gen := &fakeSummarizer{results: []summarizerResult{
		{sum: summary.Default("a")},
		{sum: summary.Default("b")},
	}}

	stats := buildPipeline(store, &fakeFetcher{}, &fakeResolver{}, &fakeExtractor{}, gen).RunBackfillSummaries(context.Background())

	if stats.Summarized != 2 {
		t.Errorf("stats = %+v, want 2 summarized", stats)
	}
	if len(store.summaries) != 2 {
		t.Errorf("store has %d summaries, want 2", len(store.summaries))
	}
}

func TestRunBackfillSummaries_HaltStopsBatch(t *testing.T) {
	store := newFakeStore()
	store.missingSummaries = []storage.Record{
		{ID: 1, Title: "One", Content: goodBody},
		{ID: 2, Title: "Two", Content: goodBody},
		{ID: 3, Title: "Three", Content: goodBody},
	}
	gen := &fakeSummarizer{results: []summarizerResult{
		{sum: summary.Default("a")},
		{err: summary.ErrHalted},
	}}

	stats := buildPipeline(store, &fakeFetcher{}, &fakeResolver{}, &fakeExtractor{}, gen).RunBackfillSummaries(context.Background())

	if stats.Summarized != 1 {
		t.Errorf("stats = %+v, want 1 summarized before the halt", stats)
	}
	if gen.calls != 2 {
		t.Errorf("summarizer called %d times, want 2", gen.calls)
	}
}

func TestRunBackfillTitles_SkipsUnusableTitles(t *testing.T) {
	store := newFakeStore()
	store.missingTitles = []storage.Record{
		{ID: 1, Title: "One", Content: goodBody},
		{ID: 2, Title: "Two", Content: goodBody},
	}

	withTitle := summary.Default("x")
	withTitle.TitleZH = "欧盟新关税"
	gen := &fakeSummarizer{results: []summarizerResult{
		{sum: withTitle},
		{sum: summary.Default("still untranslated")},
	}}

	stats := buildPipeline(store, &fakeFetcher{}, &fakeResolver{}, &fakeExtractor{}, gen).RunBackfillTitles(context.Background())

	if stats.Summarized != 1 {
		t.Errorf("stats = %+v, want only the usable title persisted", stats)
	}
	if _, ok := store.summaries[1]; !ok {
		t.Error("record 1 should have its regenerated summary persisted")
	}
	if _, ok := store.summaries[2]; ok {
		t.Error("record 2 got a summary despite the placeholder title")
	}
}

func TestRunCleanup_DryRunFlagsWithoutDeleting(t *testing.T) {
	store := newFakeStore()
	store.cleanup = []storage.CleanupRecord{
		{Record: storage.Record{ID: 1, Title: "Relevant", Content: goodBody}},
		{Record: storage.Record{ID: 2, Title: "Bakery feature", Content: "A story about sourdough baking techniques and local flour suppliers in the valley."}},
		{Record: storage.Record{ID: 3, Title: "Thin", Content: goodBody}, LowConfidence: true},
	}

	p := buildPipeline(store, &fakeFetcher{}, &fakeResolver{}, &fakeExtractor{}, nil)
	stats := p.RunCleanup(context.Background(), false)

	if stats.Scanned != 3 || stats.Flagged != 2 {
		t.Errorf("stats = %+v, want 3 scanned, 2 flagged", stats)
	}
	if stats.Deleted != 0 || len(store.deleted) != 0 {
		t.Errorf("dry-run deleted rows: %v", store.deleted)
	}
}

func TestRunCleanup_DeleteRemovesFlaggedRows(t *testing.T) {
	store := newFakeStore()
	store.cleanup = []storage.CleanupRecord{
		{Record: storage.Record{ID: 1, Title: "Relevant", Content: goodBody}},
		{Record: storage.Record{ID: 2, Title: "Thin", Content: goodBody}, LowConfidence: true},
	}

	p := buildPipeline(store, &fakeFetcher{}, &fakeResolver{}, &fakeExtractor{}, nil)
	stats := p.RunCleanup(context.Background(), true)

	if stats.Deleted != 1 {
		t.Errorf("stats = %+v, want 1 deleted", stats)
	}
	if len(store.deleted) != 1 || store.deleted[0] != 2 {
		t.Errorf("deleted IDs = %v, want [2]", store.deleted)
	}
}

func TestWatermark(t *testing.T) {
	store := newFakeStore()
	p := buildPipeline(store, &fakeFetcher{}, &fakeResolver{}, &fakeExtractor{}, nil)

	// Empty store falls back to the publish floor.
	if got := p.watermark(context.Background()); !got.Equal(floor) {
		t.Errorf("watermark = %v, want floor %v for empty store", got, floor)
	}

	// A recent latest is buffered backwards.
	store.latest = recent
	if got := p.watermark(context.Background()); !got.Equal(recent.Add(-time.Hour)) {
		t.Errorf("watermark = %v, want latest minus buffer", got)
	}

	// The buffer never drags the bound below the floor.
	store.latest = floor.Add(30 * time.Minute)
	if got := p.watermark(context.Background()); !got.Equal(floor) {
		t.Errorf("watermark = %v, want clamped to floor", got)
	}
}
