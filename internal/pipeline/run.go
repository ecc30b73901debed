// Package pipeline wires one daily run: collect readings, compute stats,
// render the digest, persist the snapshot, deliver the report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"votewatch/internal/collect"
	"votewatch/internal/domain"
	"votewatch/internal/history"
	"votewatch/internal/registry"
	"votewatch/internal/report"
	"votewatch/internal/stats"
)

// Sender delivers the rendered report to the messaging channel.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Deps are the collaborators of one run.
type Deps struct {
	Registry  *registry.Registry
	History   *history.Store
	Collector collect.Collector
	// Sender may be nil (dry run): delivery is skipped.
	Sender Sender
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Result reports what one run did.
type Result struct {
	Date      string
	Report    string
	Collected int
	Persisted bool
	// DeliveryErr carries a failed delivery distinctly: the snapshot is
	// already safe when delivery runs, so this never fails the run.
	DeliveryErr error
}

// Run executes one daily cycle. It returns an error only when the run must
// count as failed: registry or history load, or persistence. A collector
// failure degrades to zero-filled stats and the run proceeds.
func Run(ctx context.Context, deps Deps) (Result, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	log := deps.Logger

	now := deps.Now()
	today := now.Format(domain.DateFormat)
	res := Result{Date: today}

	questions, err := deps.Registry.Load()
	if err != nil {
		return res, fmt.Errorf("load registry: %w", err)
	}
	active := registry.Active(questions)

	h, err := deps.History.Load()
	if err != nil {
		return res, fmt.Errorf("load history: %w", err)
	}

	var readings []domain.Reading
	if deps.Collector != nil {
		readings, err = deps.Collector.FetchCurrentReadings(ctx)
		if err != nil {
			// Never fail the day over a collector outage: zero-filled stats
			// still document the gap.
			log.Warn("collector unavailable, using empty readings", "error", err)
			readings = nil
		}
	}
	res.Collected = len(readings)
	log.Info("collected readings", "count", res.Collected, "active_questions", len(active))

	prior, _ := h.PriorSnapshot(today)
	enriched := stats.Calculate(readings, active, prior, now)
	res.Report = report.Format(enriched, today)

	history.Merge(h, today, enriched, now)
	if err := deps.History.Save(h); err != nil {
		// A lost snapshot corrupts the delta chain for tomorrow's run.
		return res, fmt.Errorf("persist history: %w", err)
	}
	res.Persisted = true
	log.Info("snapshot persisted", "date", today, "questions", len(enriched))

	if deps.Sender != nil {
		if err := deps.Sender.Send(ctx, res.Report); err != nil {
			log.Error("report delivery failed", "error", err)
			res.DeliveryErr = err
		} else {
			log.Info("report delivered")
		}
	}

	return res, nil
}
