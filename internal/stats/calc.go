// Package stats computes the enriched per-question statistics for one
// calendar day from current readings, the question registry, and the prior
// day's snapshot.
package stats

import (
	"math"
	"sort"
	"time"

	"votewatch/internal/domain"
)

// unknownQuestionText labels questions whose text neither the reading nor
// the registry could supply, so the report never renders an empty header.
const unknownQuestionText = "未知问题"

// Calculate merges current readings with the registry and the prior snapshot
// into one enriched record per distinct question id.
//
// readings may be nil when the collector failed; every active question still
// produces a record so the daily report always renders. A question that is
// active but absent from readings gets a zero-valued record whose delta is
// the negative of its prior total.
func Calculate(readings []domain.Reading, active []domain.Question, prior domain.DailySnapshot, now time.Time) []domain.EnrichedStat {
	today := now.Format(domain.DateFormat)

	prev := make(map[string]domain.EnrichedStat, len(prior.Questions))
	for _, q := range prior.Questions {
		prev[q.QuestionID] = q
	}
	config := make(map[string]domain.Question, len(active))
	for _, q := range active {
		config[q.ID] = q
	}

	var out []domain.EnrichedStat
	seen := make(map[string]bool)

	for _, r := range readings {
		qid := r.ID()
		if qid == "" || seen[qid] {
			continue
		}
		seen[qid] = true

		cfg := config[qid]

		publishDate := r.PublishDate
		if publishDate == "" {
			publishDate = cfg.PublishDate
		}
		if publishDate == "" {
			publishDate = datePrefix(qid)
		}

		text := r.Question
		if text == "" {
			text = cfg.Text
		}
		if text == "" {
			text = unknownQuestionText
		}

		percentA, percentB := percentages(r.CountA, r.Total)

		out = append(out, domain.EnrichedStat{
			QuestionID:  qid,
			Question:    text,
			Total:       r.Total,
			Delta:       r.Total - prev[qid].Total,
			CountA:      r.CountA,
			CountB:      r.CountB,
			PercentA:    percentA,
			PercentB:    percentB,
			DaysActive:  daysActive(publishDate, now),
			PublishDate: publishDate,
		})
	}

	// Zero-fill active questions the collector omitted. days_active stays at
	// the fallback 1 here even for old questions; downstream report readers
	// depend on that quirk.
	var missing []domain.EnrichedStat
	for qid, cfg := range config {
		if seen[qid] {
			continue
		}
		publishDate := cfg.PublishDate
		if publishDate == "" {
			publishDate = today
		}
		text := cfg.Text
		if text == "" {
			text = unknownQuestionText
		}
		missing = append(missing, domain.EnrichedStat{
			QuestionID:  qid,
			Question:    text,
			Delta:       -prev[qid].Total,
			DaysActive:  1,
			PublishDate: publishDate,
		})
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].QuestionID < missing[j].QuestionID })

	return append(out, missing...)
}

// percentages splits count_a over total into integer percents summing to 100.
// Both are 0 when total is 0. Exact halves round to the nearest even percent,
// so 12.5% reads as 12 and 37.5% as 38.
func percentages(countA, total int) (int, int) {
	if total <= 0 {
		return 0, 0
	}
	a := int(math.RoundToEven(float64(countA) / float64(total) * 100))
	return a, 100 - a
}

// daysActive counts calendar days from publishDate to now, inclusive.
// Unparseable dates clamp to 1.
func daysActive(publishDate string, now time.Time) int {
	pub, err := time.Parse(domain.DateFormat, publishDate)
	if err != nil {
		return 1
	}
	days := int(now.Sub(pub).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// datePrefix extracts the YYYY-MM-DD prefix a question id carries by
// convention. Returns the raw prefix even when it is not a valid date; the
// days-active computation handles that.
func datePrefix(id string) string {
	if len(id) < 10 {
		return id
	}
	return id[:10]
}
