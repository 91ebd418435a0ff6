package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every bound variable; Load ignores empty values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, b := range envBindings {
		t.Setenv(b.key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadFrom(filepath.Join(dir, "config.json"), filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	want := Defaults()
	if cfg != want {
		t.Fatalf("expected defaults %+v, got %+v", want, cfg)
	}
	if cfg.AutoRefreshEnabled() {
		t.Fatalf("expected auto refresh disabled by default")
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	dotenvPath := filepath.Join(dir, ".env")

	writeFile(t, configPath, `{"store":"memory","port":9000,"market_source":"mock","quote_cache_ttl":"1m","refresh_interval":"5m"}`)
	writeFile(t, dotenvPath, "STOCKTRACKER_PORT=9100\nSTOCKTRACKER_MOCK_DELAY_SCALE=0.5\nGEMINI_API_KEY=from-dotenv-1234\n")
	t.Setenv("STOCKTRACKER_PORT", "9200")

	cfg, err := LoadFrom(configPath, dotenvPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("expected store from file, got %q", cfg.Store)
	}
	if cfg.Port != 9200 {
		t.Errorf("expected env port to win, got %d", cfg.Port)
	}
	if cfg.MockDelayScale != 0.5 {
		t.Errorf("expected delay scale from .env, got %v", cfg.MockDelayScale)
	}
	if cfg.GeminiAPIKey != "from-dotenv-1234" {
		t.Errorf("expected gemini key from .env, got %q", cfg.GeminiAPIKey)
	}
	if ttl, _ := cfg.CacheTTL(); ttl != time.Minute {
		t.Errorf("expected 1m ttl, got %s", ttl)
	}
	if every, _ := cfg.RefreshEvery(); every != 5*time.Minute || !cfg.AutoRefreshEnabled() {
		t.Errorf("expected 5m refresh, got %s", every)
	}
	if cfg.DBName != defaultDBName {
		t.Errorf("expected default db name kept, got %q", cfg.DBName)
	}
	if _, err := os.Stat(dotenvPath); err != nil {
		t.Fatalf(".env should be left in place: %v", err)
	}
	if os.Getenv("STOCKTRACKER_MOCK_DELAY_SCALE") != "" {
		t.Errorf(".env values must not leak into the process environment")
	}
}

func TestLoadBlankEnvFallsBackToDotenv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	dotenvPath := filepath.Join(dir, ".env")
	writeFile(t, dotenvPath, "GEMINI_API_KEY=from-dotenv-5678\nSTOCKTRACKER_PORT=9300\n")
	t.Setenv("GEMINI_API_KEY", "   ")
	t.Setenv("STOCKTRACKER_PORT", "")

	cfg, err := LoadFrom(filepath.Join(dir, "missing.json"), dotenvPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.GeminiAPIKey != "from-dotenv-5678" {
		t.Errorf("expected .env key behind blank env, got %q", cfg.GeminiAPIKey)
	}
	if cfg.Port != 9300 {
		t.Errorf("expected .env port behind blank env, got %d", cfg.Port)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "store", env: map[string]string{"STOCKTRACKER_STORE": "postgres"}, want: "unknown store"},
		{name: "source", env: map[string]string{"STOCKTRACKER_MARKET_SOURCE": "yahoo"}, want: "unknown market source"},
		{name: "alpaca keys", env: map[string]string{"STOCKTRACKER_MARKET_SOURCE": "alpaca"}, want: "APCA_API_KEY_ID"},
		{name: "port", env: map[string]string{"STOCKTRACKER_PORT": "http"}, want: "STOCKTRACKER_PORT"},
		{name: "port range", env: map[string]string{"STOCKTRACKER_PORT": "70000"}, want: "invalid port"},
		{name: "delay", env: map[string]string{"STOCKTRACKER_MOCK_DELAY_SCALE": "-1"}, want: "delay scale"},
		{name: "ttl", env: map[string]string{"STOCKTRACKER_QUOTE_CACHE_TTL": "soon"}, want: "quote cache ttl"},
		{name: "interval", env: map[string]string{"STOCKTRACKER_REFRESH_INTERVAL": "-5m"}, want: "refresh interval"},
		{name: "cron", env: map[string]string{"STOCKTRACKER_REFRESH_CRON": "every minute"}, want: "refresh cron"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			_, err := LoadFrom(filepath.Join(dir, "config.json"), "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadAlpacaWithKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOCKTRACKER_MARKET_SOURCE", "ALPACA")
	t.Setenv("APCA_API_KEY_ID", "key")
	t.Setenv("APCA_API_SECRET_KEY", "secret")
	t.Setenv("STOCKTRACKER_REFRESH_CRON", "*/15 9-16 * * 1-5")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"), "")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.MarketSource != SourceAlpaca || !cfg.AutoRefreshEnabled() {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadInvalidConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, "{not json")
	if _, err := LoadFrom(path, ""); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestResolveDBPath(t *testing.T) {
	cfg := Defaults()
	cfg.Store = StoreMemory
	if got, err := cfg.ResolveDBPath(); err != nil || got != "" {
		t.Fatalf("expected empty path for memory store, got %q, %v", got, err)
	}

	cfg.Store = StoreSQLite
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	got, err := cfg.ResolveDBPath()
	if err != nil {
		t.Fatalf("ResolveDBPath: %v", err)
	}
	if got != filepath.Join(cfg.DataDir, defaultDBName) {
		t.Fatalf("unexpected db path %q", got)
	}
	if info, err := os.Stat(cfg.DataDir); err != nil || !info.IsDir() {
		t.Fatalf("expected data dir created")
	}

	cfg.DBPath = "/tmp/explicit.db"
	if got, _ := cfg.ResolveDBPath(); got != "/tmp/explicit.db" {
		t.Fatalf("expected explicit db path, got %q", got)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.GeminiAPIKey = "abcdefgh"
	cfg.AlpacaAPISecret = "xyz"
	red := cfg.Redacted()
	if red.GeminiAPIKey != "***efgh" || red.AlpacaAPISecret != "***" || red.AlpacaAPIKey != "" {
		t.Fatalf("unexpected redaction: %+v", red)
	}
	if cfg.GeminiAPIKey != "abcdefgh" {
		t.Fatalf("redaction must not modify the original")
	}
}

func TestSaveUserConfigAndFirstRun(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("APPDATA", home)

	if !IsFirstRun() {
		t.Fatalf("expected first run with no config")
	}

	cfg := Defaults()
	cfg.Store = StoreMemory
	cfg.Port = 8123
	if err := SaveUserConfig(cfg); err != nil {
		t.Fatalf("SaveUserConfig: %v", err)
	}
	if IsFirstRun() {
		t.Fatalf("expected config file to exist")
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Store != StoreMemory || loaded.Port != 8123 {
		t.Fatalf("expected saved settings, got %+v", loaded)
	}
}
