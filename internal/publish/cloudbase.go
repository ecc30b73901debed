package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CloudBaseConfig configures the cloud-backend article publisher.
type CloudBaseConfig struct {
	// URL is the articles-write function endpoint.
	URL string
	// APIKey is sent as x-api-key.
	APIKey string
	// Timeout bounds each request. Default: 30s.
	Timeout time.Duration
}

func (c *CloudBaseConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// CloudBase publishes converted article batches to the cloud backend.
type CloudBase struct {
	cfg    CloudBaseConfig
	client *http.Client
}

// NewCloudBase creates an article publisher.
func NewCloudBase(cfg CloudBaseConfig) *CloudBase {
	cfg.defaults()
	return &CloudBase{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// RadarItem is one curated item as emitted by the upstream curation step.
type RadarItem struct {
	Domain    string `json:"domain"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	AuthorBio string `json:"author_bio"`
	Source    string `json:"source"`
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	Signal    string `json:"signal"`
}

// Article is the wire shape the articles-write function accepts.
type Article struct {
	Domain      string `json:"domain"`
	Title       string `json:"title"`
	AuthorName  string `json:"author_name"`
	AuthorIntro string `json:"author_intro"`
	Source      string `json:"source"`
	SourceURL   string `json:"source_url"`
	Content     string `json:"content"`
	Insight     string `json:"insight"`
}

// domainMap translates the curation step's topic labels into the backend's
// single-glyph domain codes. First substring match wins; Φ is the default.
var domainMap = []struct {
	keyword string
	code    string
}{
	{"技术", "T"},
	{"AI", "T"},
	{"科技", "T"},
	{"政治", "P"},
	{"地缘政治", "P"},
	{"政策", "P"},
	{"历史", "H"},
	{"哲学", "Φ"},
	{"思想", "Φ"},
	{"宗教", "R"},
	{"金融", "F"},
	{"经济", "F"},
}

// ConvertArticle maps one curated item to the backend wire shape.
func ConvertArticle(item RadarItem) Article {
	return Article{
		Domain:      mapDomain(item.Domain),
		Title:       item.Title,
		AuthorName:  item.Author,
		AuthorIntro: shortenBio(item.AuthorBio, 50),
		Source:      item.Source,
		SourceURL:   item.URL,
		Content:     item.Summary,
		Insight:     cleanInsight(item.Signal),
	}
}

func mapDomain(label string) string {
	for _, m := range domainMap {
		if strings.Contains(label, m.keyword) {
			return m.code
		}
	}
	return "Φ"
}

// shortenBio keeps the first sentence when it fits, else clips.
func shortenBio(bio string, maxRunes int) string {
	if len([]rune(bio)) <= maxRunes {
		return bio
	}
	first, _, _ := strings.Cut(bio, "。")
	if len([]rune(first)) <= maxRunes {
		return first
	}
	return string([]rune(bio)[:maxRunes]) + "..."
}

// cleanInsight strips the curation step's aside prefix.
func cleanInsight(signal string) string {
	for _, prefix := range []string{"💭 题外话：", "💭题外话：", "💭 "} {
		signal = strings.ReplaceAll(signal, prefix, "")
	}
	return signal
}

type publishResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Inserted int `json:"inserted"`
	} `json:"data"`
}

// Publish posts one day's articles. Returns the number the backend inserted.
func (p *CloudBase) Publish(ctx context.Context, date string, articles []Article) (int, error) {
	payload, err := json.Marshal(map[string]any{
		"date":     date,
		"articles": articles,
	})
	if err != nil {
		return 0, fmt.Errorf("encode articles: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("publish articles: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("publish articles: http %d: %.200s", resp.StatusCode, raw)
	}
	var pr publishResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return 0, fmt.Errorf("parse response: %w", err)
	}
	if !pr.Success {
		return 0, fmt.Errorf("publish rejected: %s", pr.Error)
	}
	return pr.Data.Inserted, nil
}
