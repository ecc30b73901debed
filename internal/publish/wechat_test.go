package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// stubCMS fakes the token and draft endpoints, counting token issuance.
func stubCMS(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/cgi-bin/token"):
			n := atomic.AddInt32(tokenCalls, 1)
			fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":7200}`, n)
		case strings.HasPrefix(r.URL.Path, "/cgi-bin/draft/add"):
			if r.URL.Query().Get("access_token") == "" {
				w.Write([]byte(`{"errcode":40001,"errmsg":"invalid credential"}`))
				return
			}
			w.Write([]byte(`{"errcode":0,"errmsg":"ok","media_id":"draft-media-1"}`))
		case strings.HasPrefix(r.URL.Path, "/cgi-bin/material/add_material"):
			w.Write([]byte(`{"media_id":"thumb-media-1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestTokenSessionReusedAcrossCalls(t *testing.T) {
	var tokenCalls int32
	srv := stubCMS(t, &tokenCalls)
	defer srv.Close()

	w := NewWeChat(WeChatConfig{AppID: "app", AppSecret: "secret", BaseURL: srv.URL})
	ctx := context.Background()

	if _, err := w.AddDraft(ctx, []Draft{{Title: "a", Content: "<p>a</p>"}}, "thumb"); err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddDraft(ctx, []Draft{{Title: "b", Content: "<p>b</p>"}}, "thumb"); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Fatalf("token fetched %d times, want 1 within its lifetime", got)
	}
}

func TestTokenSessionRefreshesAfterExpiry(t *testing.T) {
	var tokenCalls int32
	srv := stubCMS(t, &tokenCalls)
	defer srv.Close()

	w := NewWeChat(WeChatConfig{AppID: "app", AppSecret: "secret", BaseURL: srv.URL})
	current := time.Date(2026, 2, 6, 8, 0, 0, 0, time.UTC)
	w.session.now = func() time.Time { return current }

	ctx := context.Background()
	if _, err := w.AddDraft(ctx, []Draft{{Title: "a", Content: "x"}}, "thumb"); err != nil {
		t.Fatal(err)
	}

	// Jump past the 2h token lifetime.
	current = current.Add(3 * time.Hour)
	if _, err := w.AddDraft(ctx, []Draft{{Title: "b", Content: "y"}}, "thumb"); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 2 {
		t.Fatalf("token fetched %d times, want refresh after expiry", got)
	}
}

func TestAddDraftClipsAuthorAndDigest(t *testing.T) {
	var tokenCalls int32
	var gotPayload struct {
		Articles []struct {
			Author string `json:"author"`
			Digest string `json:"digest"`
		} `json:"articles"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/cgi-bin/token") {
			atomic.AddInt32(&tokenCalls, 1)
			w.Write([]byte(`{"access_token":"tok","expires_in":7200}`))
			return
		}
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{"errcode":0,"media_id":"m"}`))
	}))
	defer srv.Close()

	w := NewWeChat(WeChatConfig{AppID: "a", AppSecret: "s", BaseURL: srv.URL})
	long := strings.Repeat("字", 200)
	if _, err := w.AddDraft(context.Background(), []Draft{{Title: "t", Author: long, Digest: long, Content: "c"}}, "th"); err != nil {
		t.Fatal(err)
	}
	if n := len([]rune(gotPayload.Articles[0].Author)); n != 8 {
		t.Fatalf("author clipped to %d runes, want 8", n)
	}
	if n := len([]rune(gotPayload.Articles[0].Digest)); n != 120 {
		t.Fatalf("digest clipped to %d runes, want 120", n)
	}
}

func TestUploadImageMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/cgi-bin/token") {
			w.Write([]byte(`{"access_token":"tok","expires_in":7200}`))
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("not multipart: %v", err)
		}
		f, header, err := r.FormFile("media")
		if err != nil {
			t.Errorf("media part missing: %v", err)
		} else {
			f.Close()
			if header.Filename != "cover.png" {
				t.Errorf("filename = %q", header.Filename)
			}
		}
		w.Write([]byte(`{"media_id":"thumb-1"}`))
	}))
	defer srv.Close()

	w := NewWeChat(WeChatConfig{AppID: "a", AppSecret: "s", BaseURL: srv.URL})
	id, err := w.UploadImage(context.Background(), "cover.png", []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatal(err)
	}
	if id != "thumb-1" {
		t.Fatalf("media id = %q", id)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":41002,"errmsg":"appid missing"}`))
	}))
	defer srv.Close()

	w := NewWeChat(WeChatConfig{AppID: "", AppSecret: "", BaseURL: srv.URL})
	if _, err := w.AddDraft(context.Background(), []Draft{{Title: "t", Content: "c"}}, "th"); err == nil {
		t.Fatalf("expected api error")
	}
}
