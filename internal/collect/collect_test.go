package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFunctionCollectorParsesStatsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Write([]byte(`{"success":true,"data":{"questions":[
			{"question_id":"2026-02-06-ai-fear","question":"AI?","total":130,"count_a":80,"count_b":50}
		]}}`))
	}))
	defer srv.Close()

	f := NewFunction(FunctionConfig{URL: srv.URL})
	readings, err := f.FetchCurrentReadings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(readings) != 1 {
		t.Fatalf("got %d readings, want 1", len(readings))
	}
	r := readings[0]
	if r.ID() != "2026-02-06-ai-fear" || r.Total != 130 || r.CountA != 80 || r.CountB != 50 {
		t.Fatalf("unexpected reading: %+v", r)
	}
}

func TestFunctionCollectorSurfacesBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"collection offline"}`))
	}))
	defer srv.Close()

	f := NewFunction(FunctionConfig{URL: srv.URL})
	if _, err := f.FetchCurrentReadings(context.Background()); err == nil {
		t.Fatalf("expected error from unsuccessful response")
	}
}

func TestFunctionCollectorRejectsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFunction(FunctionConfig{URL: srv.URL})
	if _, err := f.FetchCurrentReadings(context.Background()); err == nil {
		t.Fatalf("expected error for http 502")
	}
}

func TestFileCollectorAcceptsBothShapes(t *testing.T) {
	dir := t.TempDir()

	bare := filepath.Join(dir, "bare.json")
	os.WriteFile(bare, []byte(`[{"id":"legacy-q","total":5,"count_a":3,"count_b":2}]`), 0o600)

	wrapped := filepath.Join(dir, "wrapped.json")
	os.WriteFile(wrapped, []byte(`{"questions":[{"question_id":"q2","total":1,"count_a":1,"count_b":0}]}`), 0o600)

	for _, path := range []string{bare, wrapped} {
		f := &File{Path: path}
		readings, err := f.FetchCurrentReadings(context.Background())
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if len(readings) != 1 || readings[0].ID() == "" {
			t.Fatalf("%s: unexpected readings %+v", path, readings)
		}
	}
}

func TestFileCollectorMissingFileErrs(t *testing.T) {
	f := &File{Path: filepath.Join(t.TempDir(), "absent.json")}
	if _, err := f.FetchCurrentReadings(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
