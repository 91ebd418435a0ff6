package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// logEntries decodes every JSON log line in buf.
func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func findEntry(entries []map[string]any, msg string) map[string]any {
	for _, e := range entries {
		if e["msg"] == msg {
			return e
		}
	}
	return nil
}

func TestAccessLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		status    int
		level     string
		symbol    string
		errSubstr string
	}{
		{name: "health", method: http.MethodGet, path: "/api/health", status: http.StatusOK, level: "INFO"},
		{name: "bad range", method: http.MethodGet, path: "/api/stocks/AAPL/chart?range=10Y", status: http.StatusBadRequest, level: "WARN", symbol: "AAPL", errSubstr: "invalid range"},
		{name: "missing holding", method: http.MethodGet, path: "/api/portfolio/holdings/NOPE", status: http.StatusNotFound, level: "WARN", symbol: "NOPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			router, cleanup := setupRouterWithLogger(t, jsonLogger(&buf))
			defer cleanup()

			rr := doRequest(router, tt.method, tt.path, nil)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}

			entry := findEntry(logEntries(t, &buf), "http request completed")
			if entry == nil {
				t.Fatalf("no access log in %q", buf.String())
			}
			if entry["level"] != tt.level || entry["status"] != float64(tt.status) || entry["method"] != tt.method {
				t.Fatalf("unexpected entry: %v", entry)
			}
			if entry["request_id"] == "" || entry["duration_ms"] == nil {
				t.Fatalf("missing request id or duration: %v", entry)
			}
			if tt.symbol != "" && entry["symbol"] != tt.symbol {
				t.Fatalf("expected symbol %q, got %v", tt.symbol, entry["symbol"])
			}
			if tt.errSubstr != "" {
				msg, _ := entry["error_message"].(string)
				if !strings.Contains(msg, tt.errSubstr) {
					t.Fatalf("expected error_message containing %q, got %q", tt.errSubstr, msg)
				}
			}
		})
	}
}

func TestAccessEntrySlowRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/prices/refresh", nil)

	slow := accessEntry{r: r, status: http.StatusOK, elapsed: slowRequestThreshold + time.Second}
	if slow.level() != slog.LevelWarn || slow.message() != "http request slow" {
		t.Fatalf("unexpected slow entry: %v %q", slow.level(), slow.message())
	}

	failedSlow := accessEntry{r: r, status: http.StatusServiceUnavailable, elapsed: slowRequestThreshold + time.Second}
	if failedSlow.level() != slog.LevelError || failedSlow.message() != "http request completed" {
		t.Fatalf("unexpected failed entry: %v %q", failedSlow.level(), failedSlow.message())
	}
}

func TestRecoverPanicsWritesStructuredError(t *testing.T) {
	var buf bytes.Buffer
	router := NewRouter(nil, jsonLogger(&buf))

	rr := doRequest(router, http.MethodGet, "/api/portfolio/holdings", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	body := parseJSON(rr)
	if body["message"] != "internal server error" || body["error_code"] != "INTERNAL_ERROR" {
		t.Fatalf("expected structured error response, got %v", body)
	}

	entries := logEntries(t, &buf)
	panicEntry := findEntry(entries, "panic recovered")
	if panicEntry == nil || panicEntry["stack"] == "" {
		t.Fatalf("expected panic log with stack, got %q", buf.String())
	}
	access := findEntry(entries, "http request completed")
	if access == nil || access["level"] != "ERROR" || access["status"] != float64(500) {
		t.Fatalf("expected error access log, got %v", access)
	}
}

func TestRecoverPanicsReraisesAbort(t *testing.T) {
	h := recoverPanics(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if recover() != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate")
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestNewRouterUsesCoreLoggerForRequestLogs(t *testing.T) {
	var buf bytes.Buffer
	core := setupTestCore(t, jsonLogger(&buf))
	router := NewRouter(core, nil)

	var defaultBuf bytes.Buffer
	oldDefault := slog.Default()
	slog.SetDefault(jsonLogger(&defaultBuf))
	t.Cleanup(func() { slog.SetDefault(oldDefault) })

	rr := doRequest(router, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if findEntry(logEntries(t, &buf), "http request completed") == nil {
		t.Fatalf("expected logs written through core logger, got %q", buf.String())
	}
	if defaultBuf.Len() != 0 {
		t.Fatalf("expected no log written to slog default, got %q", defaultBuf.String())
	}
}
