package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const wechatAPI = "https://api.weixin.qq.com"

// tokenSkew renews tokens this long before their reported expiry so an
// in-flight request never rides an expiring token.
const tokenSkew = 5 * time.Minute

// WeChatConfig configures the CMS draft client.
type WeChatConfig struct {
	AppID     string
	AppSecret string
	// Timeout bounds each request. Default: 30s.
	Timeout time.Duration
	// BaseURL overrides the API host in tests.
	BaseURL string
}

func (c *WeChatConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BaseURL == "" {
		c.BaseURL = wechatAPI
	}
}

// tokenSession holds one short-lived access token and its expiry instant.
// It replaces process-wide token caching: a session lives only as long as
// the client that owns it.
type tokenSession struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// get returns the cached token, refreshing through fetch when it is absent
// or within tokenSkew of expiry.
func (s *tokenSession) get(ctx context.Context, fetch func(context.Context) (string, time.Duration, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && s.now().Before(s.expiresAt) {
		return s.token, nil
	}
	token, ttl, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	s.expiresAt = s.now().Add(ttl - tokenSkew)
	return s.token, nil
}

// WeChat uploads cover images and pushes article drafts to the CMS draft
// queue API.
type WeChat struct {
	cfg     WeChatConfig
	client  *http.Client
	session *tokenSession
}

// NewWeChat creates a CMS draft client with a fresh token session.
func NewWeChat(cfg WeChatConfig) *WeChat {
	cfg.defaults()
	return &WeChat{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		session: &tokenSession{now: time.Now},
	}
}

// Draft is one article staged for the CMS draft queue.
type Draft struct {
	Title     string
	Author    string
	Digest    string
	Content   string
	SourceURL string
}

type apiError struct {
	Code    int    `json:"errcode"`
	Message string `json:"errmsg"`
}

func (e apiError) check() error {
	if e.Code != 0 {
		return fmt.Errorf("cms api error %d: %s", e.Code, e.Message)
	}
	return nil
}

func (w *WeChat) fetchToken(ctx context.Context) (string, time.Duration, error) {
	endpoint := fmt.Sprintf("%s/cgi-bin/token?grant_type=client_credential&appid=%s&secret=%s",
		w.cfg.BaseURL, url.QueryEscape(w.cfg.AppID), url.QueryEscape(w.cfg.AppSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", 0, fmt.Errorf("new token request: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("fetch token: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		apiError
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, fmt.Errorf("parse token response: %w", err)
	}
	if err := body.check(); err != nil {
		return "", 0, err
	}
	return body.AccessToken, time.Duration(body.ExpiresIn) * time.Second, nil
}

// UploadImage uploads a permanent image asset and returns its media id, for
// use as a draft cover.
func (w *WeChat) UploadImage(ctx context.Context, filename string, image []byte) (string, error) {
	token, err := w.session.get(ctx, w.fetchToken)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("media", filename)
	if err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}

	endpoint := fmt.Sprintf("%s/cgi-bin/material/add_material?access_token=%s&type=image", w.cfg.BaseURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("new upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		apiError
		MediaID string `json:"media_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("parse upload response: %w", err)
	}
	if err := body.check(); err != nil {
		return "", err
	}
	return body.MediaID, nil
}

// AddDraft pushes articles as one draft and returns the draft media id.
// Author and digest are clipped to the API's limits.
func (w *WeChat) AddDraft(ctx context.Context, drafts []Draft, thumbMediaID string) (string, error) {
	token, err := w.session.get(ctx, w.fetchToken)
	if err != nil {
		return "", err
	}

	type newsItem struct {
		Title              string `json:"title"`
		Author             string `json:"author"`
		Digest             string `json:"digest"`
		Content            string `json:"content"`
		ContentSourceURL   string `json:"content_source_url"`
		ThumbMediaID       string `json:"thumb_media_id"`
		NeedOpenComment    int    `json:"need_open_comment"`
		OnlyFansCanComment int    `json:"only_fans_can_comment"`
		ShowCoverPic       int    `json:"show_cover_pic"`
	}
	items := make([]newsItem, 0, len(drafts))
	for _, d := range drafts {
		items = append(items, newsItem{
			Title:            d.Title,
			Author:           clipRunes(d.Author, 8),
			Digest:           clipRunes(d.Digest, 120),
			Content:          d.Content,
			ContentSourceURL: d.SourceURL,
			ThumbMediaID:     thumbMediaID,
		})
	}
	payload, err := json.Marshal(map[string]any{"articles": items})
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}

	endpoint := fmt.Sprintf("%s/cgi-bin/draft/add?access_token=%s", w.cfg.BaseURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("new draft request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("add draft: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("read draft response: %w", err)
	}
	var body struct {
		apiError
		MediaID string `json:"media_id"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("parse draft response: %w", err)
	}
	if err := body.check(); err != nil {
		return "", err
	}
	return body.MediaID, nil
}

func clipRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
