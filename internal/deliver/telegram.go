// Package deliver sends the rendered daily report to the messaging channel.
//
// Delivery failure is never fatal to a run: by the time a report is sent the
// snapshot is already persisted, so the caller only surfaces the error.
package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramConfig configures the Telegram sender.
type TelegramConfig struct {
	// Token is the bot token.
	Token string
	// ChatID is the destination chat.
	ChatID string
	// Timeout bounds the whole request. Default: 30s.
	Timeout time.Duration
	// BaseURL overrides the API host in tests.
	BaseURL string
}

func (c *TelegramConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BaseURL == "" {
		c.BaseURL = telegramAPI
	}
}

// Telegram sends messages through the Bot API.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegram creates a Telegram sender.
func NewTelegram(cfg TelegramConfig) *Telegram {
	cfg.defaults()
	return &Telegram{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts one message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": t.cfg.ChatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.BaseURL, t.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var sr sendResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return fmt.Errorf("telegram http %d: %.200s", resp.StatusCode, raw)
	}
	if !sr.OK {
		return fmt.Errorf("telegram rejected message: %s", sr.Description)
	}
	return nil
}
