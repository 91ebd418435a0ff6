package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestRotatingFileDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	f, err := OpenRotatingFile(FileOptions{Dir: dir, clock: fixedClock(&now)})
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("quote fetched\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := filepath.Join(dir, "stocktracker-2024-05-02.log")
	if f.Path() != want {
		t.Fatalf("Path() = %q, want %q", f.Path(), want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "quote fetched\n" {
		t.Fatalf("unexpected file content %q (%v)", data, err)
	}
	if f.opts.KeepDays != 7 {
		t.Fatalf("expected default retention of 7 days, got %d", f.opts.KeepDays)
	}
}

func TestRotatingFileRollsOverAtMidnight(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	f, err := OpenRotatingFile(FileOptions{Dir: dir, Name: "api", clock: fixedClock(&now)})
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	defer f.Close()

	_, _ = f.Write([]byte("before\n"))
	now = now.Add(2 * time.Minute)
	_, _ = f.Write([]byte("after\n"))

	first, _ := os.ReadFile(filepath.Join(dir, "api-2024-03-10.log"))
	second, _ := os.ReadFile(filepath.Join(dir, "api-2024-03-11.log"))
	if string(first) != "before\n" || string(second) != "after\n" {
		t.Fatalf("unexpected rollover: %q / %q", first, second)
	}
}

func TestRotatingFilePrunesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	seed := map[string]bool{
		"api-2024-03-01.log":   false, // expired
		"api-2024-03-09.log":   true,
		"api-notadate.log":     true,
		"other-2024-03-01.log": true,
	}
	for name := range seed {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	f, err := OpenRotatingFile(FileOptions{Dir: dir, Name: "api", KeepDays: 3, clock: fixedClock(&now)})
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	defer f.Close()

	for name, kept := range seed {
		_, err := os.Stat(filepath.Join(dir, name))
		if kept && err != nil {
			t.Errorf("expected %s to be kept: %v", name, err)
		}
		if !kept && err == nil {
			t.Errorf("expected %s to be pruned", name)
		}
	}
}

func TestRotatingFileCloseIsIdempotent(t *testing.T) {
	f, err := OpenRotatingFile(FileOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{" WARNING ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"-4", slog.LevelDebug, true},
		{"loud", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewLoggerWritesConsoleAndFile(t *testing.T) {
	t.Setenv(envLogLevel, "")
	t.Setenv(envLogFormat, "json")
	oldDefault := slog.Default()
	t.Cleanup(func() { slog.SetDefault(oldDefault) })

	var console bytes.Buffer
	dir := t.TempDir()
	logger, writer, err := NewLogger(Options{Dir: dir, Console: &console})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer writer.Close()

	logger.Debug("hidden")
	logger.Info("price refreshed", "symbol", "AAPL")

	var entry map[string]any
	if err := json.Unmarshal(console.Bytes(), &entry); err != nil {
		t.Fatalf("expected one json line, got %q: %v", console.String(), err)
	}
	if entry["service"] != serviceName || entry["symbol"] != "AAPL" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	data, _ := os.ReadFile(writer.Path())
	if !strings.Contains(string(data), "price refreshed") {
		t.Fatalf("expected entry in log file, got %q", data)
	}
}

func TestNewConsoleLoggerHonorsEnvLevel(t *testing.T) {
	t.Setenv(envLogLevel, "warn")
	t.Setenv(envLogFormat, "")

	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, slog.LevelDebug)
	logger.Info("quiet")
	logger.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
