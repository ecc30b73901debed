// Package registry manages the append-only list of tracked questions.
//
// Questions live in questions.json next to the history file. There is no
// delete operation: a question's lifecycle is creation followed, at most, by
// deactivation.
package registry

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

// ErrDuplicate is returned by Add when the id is already registered. The
// registry is left unchanged; callers report it and continue.
var ErrDuplicate = errors.New("question already exists")

// defaultQuestion keeps the system minimally operable before any explicit
// registration.
var defaultQuestion = domain.Question{
	ID:          "2026-02-06-ai-fear",
	Text:        "AI时代，你更担心哪个？",
	PublishDate: "2026-02-06",
	Active:      true,
}

type file struct {
	Questions []domain.Question `json:"questions"`
}

// Registry loads and mutates the question list at a fixed path.
type Registry struct {
	path string
	now  func() time.Time
}

// New returns a registry persisted at path.
func New(path string) *Registry {
	return &Registry{path: path, now: time.Now}
}

// Load returns the registered questions, or the built-in default question
// when no registry file exists yet.
func (r *Registry) Load() ([]domain.Question, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.Question{defaultQuestion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return f.Questions, nil
}

// Active filters for questions still collecting votes.
func Active(questions []domain.Question) []domain.Question {
	var out []domain.Question
	for _, q := range questions {
		if q.Active {
			out = append(out, q)
		}
	}
	return out
}

// Add registers a new question and persists the registry. The publish date is
// inferred from the first 10 characters of the id when they parse as a
// calendar date, else it defaults to today. Duplicate ids return
// ErrDuplicate without touching the file.
func (r *Registry) Add(id, text string) error {
	questions, err := r.Load()
	if err != nil {
		return err
	}
	for _, q := range questions {
		if q.ID == id {
			return fmt.Errorf("%w: %s", ErrDuplicate, id)
		}
	}

	questions = append(questions, domain.Question{
		ID:          id,
		Text:        text,
		PublishDate: publishDateFor(id, r.now()),
		Active:      true,
	})
	return r.save(questions)
}

func (r *Registry) save(questions []domain.Question) error {
	raw, err := json.MarshalIndent(file{Questions: questions}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("mkdir registry dir: %w", err)
	}
	if err := fsatomic.WriteFile(r.path, raw, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

func publishDateFor(id string, now time.Time) string {
	if len(id) >= 10 {
		if _, err := time.Parse(domain.DateFormat, id[:10]); err == nil {
			return id[:10]
		}
	}
	return now.Format(domain.DateFormat)
}
