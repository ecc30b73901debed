package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func page(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><head>%s</head><body></body></html>", body)
	}
}

func TestOGImagePreferred(t *testing.T) {
	srv := httptest.NewServer(page(
		`<meta name="twitter:image" content="https://cdn.example.com/tw.png">
		 <meta property="og:image" content="https://cdn.example.com/og.png">`))
	defer srv.Close()

	got, err := OGImage(context.Background(), srv.URL, OGImageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://cdn.example.com/og.png" {
		t.Fatalf("got %q, want the og:image", got)
	}
}

func TestTwitterImageFallback(t *testing.T) {
	srv := httptest.NewServer(page(`<meta name="twitter:image" content="https://cdn.example.com/tw.png">`))
	defer srv.Close()

	got, err := OGImage(context.Background(), srv.URL, OGImageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://cdn.example.com/tw.png" {
		t.Fatalf("got %q, want the twitter:image", got)
	}
}

func TestRelativeImageURLsResolved(t *testing.T) {
	srv := httptest.NewServer(page(`<meta property="og:image" content="/img/cover.jpg">`))
	defer srv.Close()

	got, err := OGImage(context.Background(), srv.URL+"/articles/1", OGImageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if got != srv.URL+"/img/cover.jpg" {
		t.Fatalf("got %q, want host-resolved path", got)
	}
}

func TestSchemeRelativeImageURL(t *testing.T) {
	srv := httptest.NewServer(page(`<meta property="og:image" content="//cdn.example.com/a.png">`))
	defer srv.Close()

	got, err := OGImage(context.Background(), srv.URL, OGImageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://cdn.example.com/a.png" {
		t.Fatalf("got %q", got)
	}
}

func TestNoImageDeclared(t *testing.T) {
	srv := httptest.NewServer(page(`<title>plain</title>`))
	defer srv.Close()

	got, err := OGImage(context.Background(), srv.URL, OGImageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestHTTPErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := OGImage(context.Background(), srv.URL, OGImageConfig{}); err == nil {
		t.Fatalf("expected error for http 410")
	}
}
