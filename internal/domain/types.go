package domain

import "time"

// DateFormat is the calendar-date encoding used in question ids and in every
// persisted file (YYYY-MM-DD).
const DateFormat = time.DateOnly

// Question is one tracked vote question. Questions are never deleted, only
// deactivated.
type Question struct {
	ID          string `json:"id"`
	Text        string `json:"question"`
	PublishDate string `json:"publish_date"`
	Active      bool   `json:"active"`
}

// Reading is a single external observation of one question's tally at
// collection time. Total is authoritative; CountA+CountB may undercount it
// when the source reports extra buckets.
type Reading struct {
	QuestionID  string `json:"question_id"`
	LegacyID    string `json:"id,omitempty"`
	Question    string `json:"question,omitempty"`
	PublishDate string `json:"publish_date,omitempty"`
	Total       int    `json:"total"`
	CountA      int    `json:"count_a"`
	CountB      int    `json:"count_b"`
}

// ID returns the question id, falling back to the legacy "id" field some
// collectors still emit.
func (r Reading) ID() string {
	if r.QuestionID != "" {
		return r.QuestionID
	}
	return r.LegacyID
}

// EnrichedStat is the computed per-question record for one calendar day.
type EnrichedStat struct {
	QuestionID  string `json:"question_id"`
	Question    string `json:"question"`
	Total       int    `json:"total"`
	Delta       int    `json:"delta"`
	CountA      int    `json:"count_a"`
	CountB      int    `json:"count_b"`
	PercentA    int    `json:"percent_a"`
	PercentB    int    `json:"percent_b"`
	DaysActive  int    `json:"days_active"`
	PublishDate string `json:"publish_date"`
}

// DailySnapshot holds the enriched records for all tracked questions on one
// calendar date. The history store keeps at most one snapshot per date.
type DailySnapshot struct {
	Date      string         `json:"date"`
	Timestamp string         `json:"timestamp"`
	Questions []EnrichedStat `json:"questions"`
}

// DailyTotal is one point in a question's own time series.
type DailyTotal struct {
	Date   string `json:"date"`
	Total  int    `json:"total"`
	CountA int    `json:"count_a"`
	CountB int    `json:"count_b"`
}

// QuestionSeries is the per-question history: identity plus at most one
// DailyTotal per calendar date, in insertion order.
type QuestionSeries struct {
	Question    string       `json:"question"`
	PublishDate string       `json:"publish_date"`
	DailyTotals []DailyTotal `json:"daily_totals"`
}

// History is the full persisted unit: the per-question series map plus the
// rolling list of daily snapshots.
type History struct {
	Questions      map[string]*QuestionSeries `json:"questions"`
	DailySnapshots []DailySnapshot            `json:"daily_snapshots"`
}

// NewHistory returns an empty history structure ready for merging.
func NewHistory() *History {
	return &History{Questions: make(map[string]*QuestionSeries)}
}

// PriorSnapshot returns the most recent snapshot whose date differs from
// today, for delta computation. A snapshot written earlier the same day is
// not a prior day.
func (h *History) PriorSnapshot(today string) (DailySnapshot, bool) {
	for i := len(h.DailySnapshots) - 1; i >= 0; i-- {
		if h.DailySnapshots[i].Date != today {
			return h.DailySnapshots[i], true
		}
	}
	return DailySnapshot{}, false
}
