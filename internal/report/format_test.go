package report

import (
	"strings"
	"testing"

	"votewatch/internal/domain"
)

func TestEmptyStatsRendersDistinctMessage(t *testing.T) {
	got := Format(nil, "2026-02-06")
	if !strings.Contains(got, "暂无活跃投票") {
		t.Fatalf("empty stats should render the no-active-votes message, got:\n%s", got)
	}
	if strings.Contains(got, "总计") {
		t.Fatalf("empty stats should not render a summary line, got:\n%s", got)
	}
}

func TestOrderingByTotalThenID(t *testing.T) {
	stats := []domain.EnrichedStat{
		{QuestionID: "b", Question: "B", Total: 10},
		{QuestionID: "a", Question: "A", Total: 10},
		{QuestionID: "c", Question: "C", Total: 99},
	}
	got := Format(stats, "2026-02-06")
	iC := strings.Index(got, "【C】")
	iA := strings.Index(got, "【A】")
	iB := strings.Index(got, "【B】")
	if !(iC < iA && iA < iB) {
		t.Fatalf("expected order C, A, B in:\n%s", got)
	}
}

func TestDeterministicOutput(t *testing.T) {
	stats := []domain.EnrichedStat{
		{QuestionID: "x", Question: "Q", Total: 5, Delta: 2, PercentA: 60, PercentB: 40, DaysActive: 3},
		{QuestionID: "y", Question: "R", Total: 5, Delta: -1, PercentA: 20, PercentB: 80, DaysActive: 1},
	}
	first := Format(stats, "2026-02-06")
	second := Format(stats, "2026-02-06")
	if first != second {
		t.Fatalf("format is not deterministic")
	}
}

func TestDeltaMarkers(t *testing.T) {
	stats := []domain.EnrichedStat{
		{QuestionID: "up", Question: "up", Total: 3, Delta: 3},
		{QuestionID: "down", Question: "down", Total: 2, Delta: -4},
		{QuestionID: "flat", Question: "flat", Total: 1, Delta: 0},
	}
	got := Format(stats, "2026-02-06")
	for _, want := range []string{"(+3)", "(-4)", "(±0)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestPercentLineOnlyWhenVotesExist(t *testing.T) {
	stats := []domain.EnrichedStat{
		{QuestionID: "zero", Question: "zero", Total: 0},
	}
	got := Format(stats, "2026-02-06")
	if strings.Contains(got, "🅰️") {
		t.Fatalf("zero-total question should not render a percent split:\n%s", got)
	}
}

func TestLongQuestionTextTruncated(t *testing.T) {
	long := strings.Repeat("问", 30)
	got := Format([]domain.EnrichedStat{
		{QuestionID: "q", Question: long, Total: 1, PercentA: 100},
	}, "2026-02-06")
	want := "【" + strings.Repeat("问", 25) + "...】"
	if !strings.Contains(got, want) {
		t.Fatalf("expected 25-rune truncation with ellipsis in:\n%s", got)
	}
}

func TestSummarySumsTotalsAndDeltas(t *testing.T) {
	stats := []domain.EnrichedStat{
		{QuestionID: "a", Question: "a", Total: 130, Delta: 30},
		{QuestionID: "b", Question: "b", Total: 0, Delta: -10},
	}
	got := Format(stats, "2026-02-06")
	if !strings.Contains(got, "总计: 2 个问题, 130 票 (+20)") {
		t.Fatalf("unexpected summary line:\n%s", got)
	}
}
