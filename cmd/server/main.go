package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"stocktracker/internal/api"
	"stocktracker/internal/config"
	"stocktracker/internal/logging"
	"stocktracker/pkg/marketdata"
	"stocktracker/pkg/stocktracker"
)

var getppid = os.Getppid

const parentPollInterval = time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	if err := run(ctx, os.Args[1:], nil); err != nil {
		slog.Error("server failed", "err", err)
		stop()
		os.Exit(1)
	}
}

// serverFlags are the command-line overrides of the loaded config.
type serverFlags struct {
	dataDir string
	port    int
	host    string
	webDir  string
	store   string
}

func parseFlags(args []string) (*flag.FlagSet, serverFlags, error) {
	var f serverFlags
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&f.dataDir, "data-dir", "", "Directory for storing database and application data")
	fs.IntVar(&f.port, "port", 0, "Port to run the server on (overrides config)")
	fs.StringVar(&f.host, "host", "", "Host to bind the server to (overrides config)")
	fs.StringVar(&f.webDir, "web-dir", "", "Directory for SPA static files (optional)")
	fs.StringVar(&f.store, "store", "", "Ledger store: memory or sqlite (overrides config)")
	err := fs.Parse(args)
	return fs, f, err
}

// applyFlags copies explicitly set flags onto cfg.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, f serverFlags) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data-dir":
			cfg.DataDir = f.dataDir
		case "port":
			cfg.Port = f.port
		case "host":
			cfg.Host = f.host
		case "web-dir":
			cfg.WebDir = f.webDir
		case "store":
			cfg.Store = f.store
		}
	})
}

// run serves the API until ctx is done. ready, when set, receives the bound
// address once the listener is open.
func run(ctx context.Context, args []string, ready func(addr string)) error {
	fs, flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(&cfg, fs, flags)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return fmt.Errorf("resolve data directory: %w", err)
	}
	logger, writer, err := logging.NewLogger(logging.Options{Dir: filepath.Join(dataDir, "logs")})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()
	logger.Debug("configuration loaded", "config", cfg.Redacted())

	core, err := buildCore(cfg, logger)
	if err != nil {
		return fmt.Errorf("init core: %w", err)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()
	if err := startAutoRefresh(core, cfg); err != nil {
		return fmt.Errorf("start auto refresh: %w", err)
	}

	if os.Getenv("STOCKTRACKER_PARENT_WATCH") == "1" {
		var stop context.CancelFunc
		ctx, stop = context.WithCancel(ctx)
		defer stop()
		go watchParent(ctx, logger, parentPollInterval, stop)
	}

	handler := api.NewRouter(core, logger)
	if webDir := resolveWebDir(cfg.WebDir); webDir != "" {
		logger.Info("serving SPA", "web_dir", webDir)
		handler = api.WithSPA(handler, webDir)
	}
	server := &http.Server{
		Handler:           middleware.Compress(5)(handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	addr := ln.Addr().String()
	logger.Info("server starting", "addr", addr, "store", cfg.Store, "market_source", cfg.MarketSource)
	if ready != nil {
		ready(addr)
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildCore wires the configured store, market source and analyst.
func buildCore(cfg config.Config, logger *slog.Logger) (*stocktracker.Core, error) {
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}

	var source marketdata.Source
	switch cfg.MarketSource {
	case config.SourceAlpaca:
		source = marketdata.NewAlpacaSource(marketdata.AlpacaOptions{
			APIKey:    cfg.AlpacaAPIKey,
			APISecret: cfg.AlpacaAPISecret,
			BaseURL:   cfg.AlpacaBaseURL,
		})
	default:
		source = marketdata.NewMockSource(marketdata.MockOptions{DelayScale: cfg.MockDelayScale})
	}

	opts := stocktracker.Options{
		DBPath:        dbPath,
		Logger:        logger,
		Source:        source,
		QuoteCacheTTL: ttl,
	}
	if cfg.GeminiAPIKey != "" {
		opts.Analyst = marketdata.NewGeminiAnalyst(source, marketdata.GeminiOptions{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			Logger: logger,
		})
	}
	return stocktracker.OpenWithOptions(opts)
}

func startAutoRefresh(core *stocktracker.Core, cfg config.Config) error {
	if !cfg.AutoRefreshEnabled() {
		return nil
	}
	every, err := cfg.RefreshEvery()
	if err != nil {
		return err
	}
	return core.StartAutoRefresh(stocktracker.RefreshSchedule{Interval: every, Cron: cfg.RefreshCron})
}

// watchParent calls stop once the process is reparented to init, which
// happens when the desktop shell that spawned the server dies.
func watchParent(ctx context.Context, logger *slog.Logger, every time.Duration, stop func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if getppid() == 1 {
				logger.Info("parent process exited; shutting down")
				stop()
				return
			}
		}
	}
}

// webDirCandidates are tried relative to the working directory, then to the
// executable.
var webDirCandidates = []string{"static", "../static", "web/dist"}

// resolveWebDir returns the dashboard build to serve, or "" to serve the API
// only. An explicit directory is used as-is when it exists.
func resolveWebDir(explicit string) string {
	if explicit != "" {
		if dirExists(explicit) {
			return explicit
		}
		return ""
	}
	roots := []string{""}
	if exe, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(exe))
	}
	return firstDir(roots, webDirCandidates)
}

func firstDir(roots, candidates []string) string {
	for _, root := range roots {
		for _, candidate := range candidates {
			path := candidate
			if root != "" {
				path = filepath.Join(root, candidate)
			}
			if dirExists(path) {
				return path
			}
		}
	}
	return ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
