// Package report renders the daily vote digest sent to the messaging
// channel.
package report

import (
	"fmt"
	"sort"
	"strings"

	"votewatch/internal/domain"
)

const (
	divider      = "━━━━━━━━━━━━━━━━━━━━"
	maxTextRunes = 25
)

// Format renders the enriched stats into the daily digest. Output is
// byte-deterministic: records are ordered by descending total, ties broken by
// ascending question id.
func Format(stats []domain.EnrichedStat, date string) string {
	if len(stats) == 0 {
		return fmt.Sprintf("📊 投票日报 %s\n%s\n暂无活跃投票", date, divider)
	}

	sorted := make([]domain.EnrichedStat, len(stats))
	copy(sorted, stats)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Total != sorted[j].Total {
			return sorted[i].Total > sorted[j].Total
		}
		return sorted[i].QuestionID < sorted[j].QuestionID
	})

	var b strings.Builder
	fmt.Fprintf(&b, "📊 投票日报 %s\n%s", date, divider)

	totalVotes, totalDelta := 0, 0
	for _, q := range sorted {
		totalVotes += q.Total
		totalDelta += q.Delta

		fmt.Fprintf(&b, "\n\n【%s】", truncate(q.Question, maxTextRunes))
		fmt.Fprintf(&b, "\n📈 总票数: %d (%s)", q.Total, signedDelta(q.Delta))
		if q.Total > 0 {
			fmt.Fprintf(&b, "\n🅰️ %d%% / 🅱️ %d%%", q.PercentA, q.PercentB)
		}
		fmt.Fprintf(&b, "\n📅 活跃 %d 天", q.DaysActive)
	}

	fmt.Fprintf(&b, "\n\n%s", divider)
	fmt.Fprintf(&b, "\n📊 总计: %d 个问题, %d 票 (%s)", len(sorted), totalVotes, signedTotal(totalDelta))

	return b.String()
}

// signedDelta renders a per-question delta with an explicit neutral marker
// for zero.
func signedDelta(d int) string {
	switch {
	case d > 0:
		return fmt.Sprintf("+%d", d)
	case d < 0:
		return fmt.Sprintf("%d", d)
	default:
		return "±0"
	}
}

// signedTotal renders the summary delta; zero carries no marker here.
func signedTotal(d int) string {
	if d > 0 {
		return fmt.Sprintf("+%d", d)
	}
	return fmt.Sprintf("%d", d)
}

// truncate shortens s to at most n runes, appending an ellipsis when it cut
// anything. Rune-based so CJK question text truncates cleanly.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
