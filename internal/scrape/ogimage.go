// Package scrape extracts social preview images from article pages.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	maxHTMLBytes = 100_000
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// OGImageConfig configures the scraper.
type OGImageConfig struct {
	// Timeout bounds the page fetch. Default: 15s.
	Timeout time.Duration
}

// OGImage fetches pageURL and returns its preferred preview image URL:
// og:image first, twitter:image as fallback. Relative and scheme-relative
// URLs are resolved against the page URL. Empty string when the page
// declares neither.
func OGImage(ctx context.Context, pageURL string, cfg OGImageConfig) (string, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: cfg.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch page: http %d", resp.StatusCode)
	}

	img := findPreviewImage(io.LimitReader(resp.Body, maxHTMLBytes))
	if img == "" {
		return "", nil
	}
	return resolveImageURL(pageURL, img)
}

// findPreviewImage walks the document for og:image / twitter:image meta
// tags. Parse errors on truncated bodies still yield whatever was found.
func findPreviewImage(r io.Reader) string {
	doc, err := html.Parse(r)
	if err != nil {
		return ""
	}

	var ogImage, twitterImage string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var prop, name, content string
			for _, a := range n.Attr {
				switch strings.ToLower(a.Key) {
				case "property":
					prop = strings.ToLower(a.Val)
				case "name":
					name = strings.ToLower(a.Val)
				case "content":
					content = a.Val
				}
			}
			if prop == "og:image" && ogImage == "" {
				ogImage = content
			}
			if name == "twitter:image" && twitterImage == "" {
				twitterImage = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if ogImage != "" {
		return ogImage
	}
	return twitterImage
}

func resolveImageURL(pageURL, img string) (string, error) {
	if strings.HasPrefix(img, "//") {
		return "https:" + img, nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	ref, err := url.Parse(img)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
