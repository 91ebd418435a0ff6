package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeWebFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestWithSPA(t *testing.T) {
	webDir := t.TempDir()
	writeWebFile(t, webDir, "index.html", "INDEX")
	writeWebFile(t, webDir, "favicon.svg", "ICON")
	writeWebFile(t, webDir, "assets/index-3f2a.js", "BUNDLE")

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("API"))
	})
	h := WithSPA(apiHandler, webDir)

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
		cache  string
	}{
		{"api", http.MethodGet, "/api/health", http.StatusOK, "API", ""},
		{"api post", http.MethodPost, "/api/transactions", http.StatusOK, "API", ""},
		{"root", http.MethodGet, "/", http.StatusOK, "INDEX", cacheNone},
		{"plain file", http.MethodGet, "/favicon.svg", http.StatusOK, "ICON", cacheNone},
		{"hashed bundle", http.MethodGet, "/assets/index-3f2a.js", http.StatusOK, "BUNDLE", cacheImmutable},
		{"client route", http.MethodGet, "/watchlist/AAPL", http.StatusOK, "INDEX", cacheNone},
		{"directory", http.MethodGet, "/assets/", http.StatusOK, "INDEX", cacheNone},
		{"traversal", http.MethodGet, "/../../etc/passwd", http.StatusOK, "INDEX", cacheNone},
		{"post to page", http.MethodPost, "/portfolio", http.StatusMethodNotAllowed, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if tt.body != "" && rr.Body.String() != tt.body {
				t.Fatalf("expected body %q, got %q", tt.body, rr.Body.String())
			}
			if got := rr.Header().Get("Cache-Control"); got != tt.cache {
				t.Fatalf("expected Cache-Control %q, got %q", tt.cache, got)
			}
		})
	}
}

func TestWithSPAIndexMissing(t *testing.T) {
	h := WithSPA(http.NotFoundHandler(), t.TempDir())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "index.html not found" {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}
