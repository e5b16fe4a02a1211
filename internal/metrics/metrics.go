package metrics

import (
	"sync"
	"time"
)

// Metrics aggregates pipeline counters across a process lifetime. A single
// batch run updates Global; the optional monitoring listener reads it.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	EntriesProcessed  int64
	ItemsInserted     int64
	DuplicatesSkipped int64
	ItemsFiltered     int64
	ItemErrors        int64
	SummariesOK       int64
	SummariesFailed   int64

	// Timings
	LastRunDuration  time.Duration
	TotalRunDuration time.Duration
	RunCount         int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EntriesProcessed++
}

func (m *Metrics) IncrementInserted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsInserted++
}

func (m *Metrics) IncrementSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesSkipped++
}

func (m *Metrics) IncrementFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsFiltered++
}

func (m *Metrics) IncrementErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemErrors++
}

func (m *Metrics) IncrementSummariesOK() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesOK++
}

func (m *Metrics) IncrementSummariesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesFailed++
}

func (m *Metrics) RecordRunDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunDuration = d
	m.TotalRunDuration += d
	m.RunCount++
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastErrorTime = time.Now()
	m.LastError = err.Error()
	m.IsHealthy = false
}

// GetStats returns a snapshot for the monitoring endpoints.
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"entries_processed":  m.EntriesProcessed,
		"items_inserted":     m.ItemsInserted,
		"duplicates_skipped": m.DuplicatesSkipped,
		"items_filtered":     m.ItemsFiltered,
		"item_errors":        m.ItemErrors,
		"summaries_ok":       m.SummariesOK,
		"summaries_failed":   m.SummariesFailed,
		"last_run_duration":  m.LastRunDuration.String(),
		"last_run_time":      m.LastRunTime,
		"last_error":         m.LastError,
		"last_error_time":    m.LastErrorTime,
		"run_count":          m.RunCount,
		"is_healthy":         m.IsHealthy,
	}
}
