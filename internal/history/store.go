// Package history owns the persisted vote time series: one rolling list of
// daily snapshots plus a per-question series of daily totals.
//
// Merging is idempotent per calendar date: re-running the job on the same
// date replaces that date's entries instead of appending, so history never
// holds two records for one day.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"votewatch/internal/domain"
	"votewatch/internal/fsatomic"
)

// Store persists the history structure at a fixed path. It is the sole
// mutator of the persisted state; a single process instance is assumed.
type Store struct {
	path string
}

// New returns a store persisted at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted history, or an empty structure when no file
// exists yet.
func (s *Store) Load() (*domain.History, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewHistory(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	h := domain.NewHistory()
	if err := json.Unmarshal(raw, h); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	if h.Questions == nil {
		h.Questions = make(map[string]*domain.QuestionSeries)
	}
	return h, nil
}

// Merge folds one day's enriched stats into the history. The last snapshot is
// replaced in place when it already carries date; otherwise the new snapshot
// is appended. Each question's daily_totals follows the same
// same-date-replace-else-append rule.
func Merge(h *domain.History, date string, stats []domain.EnrichedStat, now time.Time) {
	snapshot := domain.DailySnapshot{
		Date:      date,
		Timestamp: now.Format(time.RFC3339),
		Questions: stats,
	}
	if n := len(h.DailySnapshots); n > 0 && h.DailySnapshots[n-1].Date == date {
		h.DailySnapshots[n-1] = snapshot
	} else {
		h.DailySnapshots = append(h.DailySnapshots, snapshot)
	}

	for _, q := range stats {
		series, ok := h.Questions[q.QuestionID]
		if !ok {
			series = &domain.QuestionSeries{
				Question:    q.Question,
				PublishDate: q.PublishDate,
			}
			h.Questions[q.QuestionID] = series
		}
		entry := domain.DailyTotal{Date: date, Total: q.Total, CountA: q.CountA, CountB: q.CountB}
		if n := len(series.DailyTotals); n > 0 && series.DailyTotals[n-1].Date == date {
			series.DailyTotals[n-1] = entry
		} else {
			series.DailyTotals = append(series.DailyTotals, entry)
		}
	}
}

// Save persists the full structure atomically. A crash between Load and Save
// leaves the previous file intact; a partial write is never visible.
func (s *Store) Save(h *domain.History) error {
	raw, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir history dir: %w", err)
	}
	if err := fsatomic.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
