package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Market data sources.
const (
	SourceMock   = "mock"
	SourceAlpaca = "alpaca"
)

const defaultDBName = "stocktracker.db"

// Config is the resolved application configuration. It is persisted as
// config.json in the app config dir; .env values and STOCKTRACKER_*
// environment variables override the file.
type Config struct {
	DataDir string `json:"data_dir,omitempty"`
	DBName  string `json:"db_name"`
	// DBPath, when set, wins over DataDir/DBName.
	DBPath string `json:"db_path,omitempty"`
	Store  string `json:"store"`

	Host   string `json:"host"`
	Port   int    `json:"port"`
	WebDir string `json:"web_dir,omitempty"`

	MarketSource    string  `json:"market_source"`
	MockDelayScale  float64 `json:"mock_delay_scale"`
	QuoteCacheTTL   string  `json:"quote_cache_ttl"`
	RefreshInterval string  `json:"refresh_interval,omitempty"`
	RefreshCron     string  `json:"refresh_cron,omitempty"`

	GeminiAPIKey    string `json:"gemini_api_key,omitempty"`
	GeminiModel     string `json:"gemini_model,omitempty"`
	AlpacaAPIKey    string `json:"alpaca_api_key,omitempty"`
	AlpacaAPISecret string `json:"alpaca_api_secret,omitempty"`
	AlpacaBaseURL   string `json:"alpaca_base_url,omitempty"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		DBName:         defaultDBName,
		Store:          StoreSQLite,
		Host:           "127.0.0.1",
		Port:           8000,
		MarketSource:   SourceMock,
		MockDelayScale: 1,
		QuoteCacheTTL:  "30s",
	}
}

// envBinding maps an environment variable onto a Config field.
type envBinding struct {
	key   string
	apply func(c *Config, value string) error
}

var envBindings = []envBinding{
	{"STOCKTRACKER_DATA_DIR", func(c *Config, v string) error { c.DataDir = v; return nil }},
	{"STOCKTRACKER_DB_NAME", func(c *Config, v string) error { c.DBName = v; return nil }},
	{"STOCKTRACKER_DB_PATH", func(c *Config, v string) error { c.DBPath = v; return nil }},
	{"STOCKTRACKER_STORE", func(c *Config, v string) error { c.Store = strings.ToLower(v); return nil }},
	{"STOCKTRACKER_HOST", func(c *Config, v string) error { c.Host = v; return nil }},
	{"STOCKTRACKER_PORT", func(c *Config, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STOCKTRACKER_PORT: %w", err)
		}
		c.Port = port
		return nil
	}},
	{"STOCKTRACKER_WEB_DIR", func(c *Config, v string) error { c.WebDir = v; return nil }},
	{"STOCKTRACKER_MARKET_SOURCE", func(c *Config, v string) error { c.MarketSource = strings.ToLower(v); return nil }},
	{"STOCKTRACKER_MOCK_DELAY_SCALE", func(c *Config, v string) error {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("STOCKTRACKER_MOCK_DELAY_SCALE: %w", err)
		}
		c.MockDelayScale = scale
		return nil
	}},
	{"STOCKTRACKER_QUOTE_CACHE_TTL", func(c *Config, v string) error { c.QuoteCacheTTL = v; return nil }},
	{"STOCKTRACKER_REFRESH_INTERVAL", func(c *Config, v string) error { c.RefreshInterval = v; return nil }},
	{"STOCKTRACKER_REFRESH_CRON", func(c *Config, v string) error { c.RefreshCron = v; return nil }},
	{"GEMINI_API_KEY", func(c *Config, v string) error { c.GeminiAPIKey = v; return nil }},
	{"STOCKTRACKER_GEMINI_MODEL", func(c *Config, v string) error { c.GeminiModel = v; return nil }},
	{"APCA_API_KEY_ID", func(c *Config, v string) error { c.AlpacaAPIKey = v; return nil }},
	{"APCA_API_SECRET_KEY", func(c *Config, v string) error { c.AlpacaAPISecret = v; return nil }},
	{"APCA_API_BASE_URL", func(c *Config, v string) error { c.AlpacaBaseURL = v; return nil }},
}

// Load resolves the configuration from defaults, the user config file, an
// optional .env file in the working directory and the process environment,
// in increasing order of precedence.
func Load() (Config, error) {
	return LoadFrom("", ".env")
}

// LoadFrom is Load with explicit config file and .env paths. An empty
// configPath uses the app config dir.
func LoadFrom(configPath, dotenvPath string) (Config, error) {
	cfg := Defaults()

	if configPath == "" {
		path, err := appConfigPath()
		if err == nil {
			configPath = path
		}
	}
	if configPath != "" {
		if err := readConfigFile(configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	dotenv := map[string]string{}
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			values, err := godotenv.Read(dotenvPath)
			if err != nil {
				return cfg, fmt.Errorf("read %s: %w", dotenvPath, err)
			}
			dotenv = values
		}
	}

	// A variable exported but left blank does not mask the .env value.
	for _, b := range envBindings {
		value := strings.TrimSpace(os.Getenv(b.key))
		if value == "" {
			value = strings.TrimSpace(dotenv[b.key])
		}
		if value == "" {
			continue
		}
		if err := b.apply(&cfg, value); err != nil {
			return cfg, err
		}
	}

	return cfg, cfg.Validate()
}

func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.DBName == "" {
		cfg.DBName = defaultDBName
	}
	return nil
}

// Validate checks enumerated settings and durations.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreMemory, StoreSQLite)
	}
	switch c.MarketSource {
	case SourceMock:
	case SourceAlpaca:
		if c.AlpacaAPIKey == "" || c.AlpacaAPISecret == "" {
			return errors.New("alpaca market source requires APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown market source %q (want %s or %s)", c.MarketSource, SourceMock, SourceAlpaca)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MockDelayScale < 0 {
		return fmt.Errorf("mock delay scale must be >= 0, got %v", c.MockDelayScale)
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.RefreshEvery(); err != nil {
		return err
	}
	if c.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			return fmt.Errorf("invalid refresh cron %q: %w", c.RefreshCron, err)
		}
	}
	return nil
}

// CacheTTL returns the quote cache TTL. Zero means the cache default.
func (c Config) CacheTTL() (time.Duration, error) {
	return parseOptionalDuration("quote cache ttl", c.QuoteCacheTTL)
}

// RefreshEvery returns the automatic refresh interval. Zero disables it.
func (c Config) RefreshEvery() (time.Duration, error) {
	return parseOptionalDuration("refresh interval", c.RefreshInterval)
}

// AutoRefreshEnabled reports whether a refresh interval or cron is set.
func (c Config) AutoRefreshEnabled() bool {
	d, _ := c.RefreshEvery()
	return d > 0 || c.RefreshCron != ""
}

func parseOptionalDuration(name, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be >= 0, got %s", name, value)
	}
	return d, nil
}

// ResolveDataDir returns the data directory, creating it if needed.
func (c Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		appDir, err := appConfigDir()
		if err != nil {
			return "", err
		}
		dir = appDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ResolveDBPath returns the SQLite path, or "" for the memory store.
func (c Config) ResolveDBPath() (string, error) {
	if c.Store == StoreMemory {
		return "", nil
	}
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	name := c.DBName
	if name == "" {
		name = defaultDBName
	}
	return filepath.Join(dir, name), nil
}

// Redacted returns a copy safe to log: secrets keep only their last 4 chars.
func (c Config) Redacted() Config {
	c.GeminiAPIKey = mask(c.GeminiAPIKey)
	c.AlpacaAPIKey = mask(c.AlpacaAPIKey)
	c.AlpacaAPISecret = mask(c.AlpacaAPISecret)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) > 4 {
		return "***" + secret[len(secret)-4:]
	}
	return "***"
}

// SaveUserConfig writes cfg to the app config file.
func SaveUserConfig(cfg Config) error {
	path, err := appConfigPath()
	if err != nil {
		return err
	}
	return saveConfigFile(path, cfg)
}

func saveConfigFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// IsFirstRun reports whether no user config file exists yet.
func IsFirstRun() bool {
	path, err := appConfigPath()
	if err != nil {
		return true
	}
	_, err = os.Stat(path)
	return err != nil
}

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

func appConfigDir() (string, error) {
	if IsMacOS() {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "StockTracker"), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "StockTracker"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "stocktracker"), nil
	}
	return filepath.Join(configDir, "stocktracker"), nil
}

func appConfigPath() (string, error) {
	dir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}
