package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/history"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/service"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/health"
)

type stubHistory struct {
	limit int
	err   error
}

func (s *stubHistory) Recent(_ context.Context, limit int) ([]history.Run, error) {
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	return []history.Run{{ID: 1, Source: "inline", Status: "ok", StartedAt: time.Unix(0, 0).UTC()}}, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func newRouter(t *testing.T, hist HistoryLister, cfg RouterConfig) http.Handler {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "story.txt"), []byte("Timothy went home\nhome of Timothy\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := service.New(config.ScanConfig{BatchSize: 1000, Workers: 2}, config.ServerConfig{ScanRoot: root, MaxTextBytes: 1 << 10})
	return NewRouter(New(svc, hist, 4<<10), cfg)
}

type scanResponse struct {
	Terms   []string `json:"terms"`
	Matches map[string][]struct {
		Line   int `json:"line"`
		Offset int `json:"char_offset"`
	} `json:"matches"`
	Stats struct {
		Lines   int `json:"lines"`
		Matches int `json:"matches"`
	} `json:"stats"`
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(body)))
	return rec
}

func TestScanFileEndpoint(t *testing.T) {
	h := newRouter(t, nil, RouterConfig{})
	rec := post(t, h, `{"file_path":"story.txt","terms":["Timothy","absent"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	var resp scanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	got := resp.Matches["Timothy"]
	if len(got) != 2 || got[1].Line != 2 || got[1].Offset != 26 {
		t.Fatalf("Timothy = %+v", got)
	}
	absent, ok := resp.Matches["absent"]
	if !ok || len(absent) != 0 {
		t.Fatalf("absent term should render as empty list, got %v (present %v)", absent, ok)
	}
	if resp.Stats.Lines != 2 || resp.Stats.Matches != 2 {
		t.Fatalf("stats = %+v", resp.Stats)
	}
}

func TestScanTextEndpoint(t *testing.T) {
	h := newRouter(t, nil, RouterConfig{})
	rec := post(t, h, `{"text":"aaa","terms":["aa"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp scanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Matches["aa"]) != 2 {
		t.Fatalf("aa = %+v", resp.Matches["aa"])
	}
}

func TestScanEndpointErrors(t *testing.T) {
	h := newRouter(t, nil, RouterConfig{})
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"terms":`, http.StatusBadRequest},
		{"unknown field", `{"text":"a","terms":["a"],"regex":true}`, http.StatusBadRequest},
		{"no input", `{"terms":["a"]}`, http.StatusBadRequest},
		{"empty term", `{"text":"a","terms":[""]}`, http.StatusBadRequest},
		{"escape root", `{"file_path":"../../etc/passwd","terms":["root"]}`, http.StatusBadRequest},
		{"missing file", `{"file_path":"nope.txt","terms":["a"]}`, http.StatusNotFound},
		{"body too large", fmt.Sprintf(`{"text":%q,"terms":["a"]}`, strings.Repeat("x", 5<<10)), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Fatalf("error body = %q", rec.Body.String())
			}
		})
	}
}

func TestMissingFileDoesNotLeakPath(t *testing.T) {
	h := newRouter(t, nil, RouterConfig{})
	rec := post(t, h, `{"file_path":"nope.txt","terms":["a"]}`)
	if strings.Contains(rec.Body.String(), os.TempDir()) {
		t.Fatalf("response leaks filesystem path: %s", rec.Body.String())
	}
}

func TestHistoryEndpoint(t *testing.T) {
	hist := &stubHistory{}
	h := newRouter(t, hist, RouterConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans/history?limit=5000", nil))
	if rec.Code != http.StatusOK || hist.limit != 500 {
		t.Fatalf("status %d limit %d", rec.Code, hist.limit)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans/history?limit=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status %d", rec.Code)
	}

	hist.err = errors.New("connection refused")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans/history", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("store failure status %d", rec.Code)
	}

	disabled := newRouter(t, nil, RouterConfig{})
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans/history", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled history status %d", rec.Code)
	}
}

func TestRouterRateLimitAndHealth(t *testing.T) {
	checker := health.NewChecker()
	checker.Disabled("postgres")
	h := newRouter(t, nil, RouterConfig{Limiter: denyAll{}, RateWindow: time.Minute, Health: checker})

	rec := post(t, h, `{"text":"a","terms":["a"]}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status %d", rec.Code)
	}
}
