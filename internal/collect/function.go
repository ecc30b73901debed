package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"votewatch/internal/domain"
)

const maxResponseBytes = 1 << 20

// FunctionConfig configures the cloud-function collector.
type FunctionConfig struct {
	// URL is the HTTP endpoint of the vote function.
	URL string
	// Timeout bounds the whole request. Default: 10s.
	Timeout time.Duration
	// UserAgent sent with requests.
	UserAgent string
}

func (c *FunctionConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "votewatch/1.0"
	}
}

// Function collects readings by calling the backend's vote function over
// HTTP with {"action":"stats"}.
type Function struct {
	cfg    FunctionConfig
	client *http.Client
}

// NewFunction creates a cloud-function collector.
func NewFunction(cfg FunctionConfig) *Function {
	cfg.defaults()
	return &Function{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type functionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Questions []domain.Reading `json:"questions"`
	} `json:"data"`
}

func (f *Function) FetchCurrentReadings(ctx context.Context) ([]domain.Reading, error) {
	body, err := json.Marshal(map[string]string{"action": "stats"})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call vote function: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vote function http %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var fr functionResponse
	if err := json.Unmarshal(raw, &fr); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if !fr.Success {
		return nil, fmt.Errorf("vote function error: %s", fr.Error)
	}
	return fr.Data.Questions, nil
}
