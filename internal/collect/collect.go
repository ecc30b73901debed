// Package collect obtains the current vote readings from the outside world.
//
// The core never depends on how a reading was obtained: every source sits
// behind the Collector interface, mirroring the one-adapter-per-source layout
// of the ingest side. A collector that fails is treated upstream as "no
// readings today", never as a fatal error.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"votewatch/internal/domain"
)

// Collector fetches the current readings for all questions the source knows
// about. A nil slice with nil error means the source answered with nothing.
type Collector interface {
	FetchCurrentReadings(ctx context.Context) ([]domain.Reading, error)
}

// File reads a static JSON file of readings: either a bare array or a
// {"questions": [...]} wrapper.
type File struct {
	Path string
}

func (f *File) FetchCurrentReadings(ctx context.Context) ([]domain.Reading, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read readings file: %w", err)
	}
	return parseReadings(raw)
}

// parseReadings accepts the two shapes sources emit: a bare array of
// readings, or an object wrapping them under "questions".
func parseReadings(raw []byte) ([]domain.Reading, error) {
	var list []domain.Reading
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapper struct {
		Questions []domain.Reading `json:"questions"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("parse readings: %w", err)
	}
	return wrapper.Questions, nil
}
