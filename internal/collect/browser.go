package collect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"votewatch/internal/domain"
)

// BrowserConfig configures the headless-browser collector.
type BrowserConfig struct {
	// StatsURL is the stats page whose #stats element carries the readings
	// as JSON once the page's SDK has loaded.
	StatsURL string
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome.
	RemoteURL string
	// SDKWait is how long to give the page's SDK to populate #stats after
	// load. Default: 8s.
	SDKWait time.Duration
	// NavTimeout bounds navigation. Default: 30s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.SDKWait <= 0 {
		c.SDKWait = 8 * time.Second
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser collects readings by driving a headless Chrome to the stats page
// and reading the JSON the page renders into #stats. The stats page sits
// behind the backend's test-domain interstitial, which has to be clicked
// through before the SDK loads.
type Browser struct {
	cfg BrowserConfig
}

// NewBrowser creates a browser collector.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

func (bc *Browser) FetchCurrentReadings(ctx context.Context) ([]domain.Reading, error) {
	log := bc.cfg.Logger

	b, cleanup, err := bc.connect()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, bc.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(bc.cfg.StatsURL); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", bc.cfg.StatsURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", bc.cfg.StatsURL, "error", err)
	}

	if err := bc.passInterstitial(ctx, page); err != nil {
		return nil, err
	}

	// The page's SDK initialises asynchronously after load.
	select {
	case <-time.After(bc.cfg.SDKWait):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	res, err := page.Context(ctx).Eval(`() => document.getElementById('stats')?.textContent || 'NOT_FOUND'`)
	if err != nil {
		return nil, fmt.Errorf("browser: read stats element: %w", err)
	}
	content := strings.TrimSpace(res.Value.Str())

	if content == "" || strings.Contains(content, "NOT_FOUND") ||
		strings.Contains(content, "Loading") || strings.Contains(content, "Error") {
		return nil, fmt.Errorf("browser: stats page not ready: %.100s", content)
	}

	readings, err := parseReadings([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("browser: %w", err)
	}
	log.Info("browser: collected readings", "count", len(readings))
	return readings, nil
}

// connect attaches to a remote Chrome or launches a local headless one.
// cleanup closes whatever was opened.
func (bc *Browser) connect() (*rod.Browser, func(), error) {
	if bc.cfg.RemoteURL != "" {
		b := rod.New().ControlURL(bc.cfg.RemoteURL)
		if err := b.Connect(); err != nil {
			return nil, nil, fmt.Errorf("browser: connect remote: %w", err)
		}
		return b, func() { _ = b.Close() }, nil
	}

	l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
	wsURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("browser: launch: %w", err)
	}
	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, func() {
		_ = b.Close()
		l.Cleanup()
	}, nil
}

// passInterstitial clicks through the test-domain confirmation page when the
// backend serves one: wait out its countdown, press the confirm button, then
// give the real page time to load.
func (bc *Browser) passInterstitial(ctx context.Context, page *rod.Page) error {
	res, err := page.Context(ctx).Eval(`() => document.getElementById('submitBtn') ? 'REDIRECT_PAGE' : 'OK'`)
	if err != nil {
		return fmt.Errorf("browser: interstitial check: %w", err)
	}
	if res.Value.Str() != "REDIRECT_PAGE" {
		return nil
	}

	bc.cfg.Logger.Info("browser: clicking through interstitial")
	select {
	case <-time.After(4 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	if _, err := page.Context(ctx).Eval(`() => { document.getElementById('submitBtn').click(); return 'clicked'; }`); err != nil {
		return fmt.Errorf("browser: interstitial click: %w", err)
	}
	select {
	case <-time.After(4 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
