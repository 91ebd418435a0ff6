package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	serviceName = "stocktracker"
	dayLayout   = "2006-01-02"
)

const (
	envLogLevel  = "STOCKTRACKER_LOG_LEVEL"
	envLogFormat = "STOCKTRACKER_LOG_FORMAT"
)

// FileOptions configures OpenRotatingFile.
type FileOptions struct {
	Dir string
	// Name prefixes each file as <Name>-<yyyy-mm-dd>.log.
	Name string
	// KeepDays is how many days of files survive a rollover. Defaults to 7.
	KeepDays int

	clock func() time.Time
}

// RotatingFile is an io.WriteCloser that starts a new file each calendar day
// and removes files older than KeepDays when it does.
type RotatingFile struct {
	opts FileOptions

	mu   sync.Mutex
	day  string
	file *os.File
}

// OpenRotatingFile opens today's file under opts.Dir, creating the directory.
func OpenRotatingFile(opts FileOptions) (*RotatingFile, error) {
	if opts.Name == "" {
		opts.Name = serviceName
	}
	if opts.KeepDays <= 0 {
		opts.KeepDays = 7
	}
	if opts.clock == nil {
		opts.clock = time.Now
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f := &RotatingFile{opts: opts}
	if err := f.roll(opts.clock()); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RotatingFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.roll(f.opts.clock()); err != nil {
		return 0, err
	}
	return f.file.Write(p)
}

func (f *RotatingFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// Path is the file currently receiving writes.
func (f *RotatingFile) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fileFor(f.day)
}

func (f *RotatingFile) fileFor(day string) string {
	return filepath.Join(f.opts.Dir, f.opts.Name+"-"+day+".log")
}

// roll switches to the file for now's day. Caller holds mu, or f is not yet
// shared.
func (f *RotatingFile) roll(now time.Time) error {
	day := now.Format(dayLayout)
	if f.file != nil && day == f.day {
		return nil
	}
	next, err := os.OpenFile(f.fileFor(day), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if f.file != nil {
		_ = f.file.Close()
	}
	f.file, f.day = next, day
	f.prune(now)
	return nil
}

// prune removes this writer's files dated before the retention window. Files
// with other names or unparseable dates are left alone.
func (f *RotatingFile) prune(now time.Time) {
	matches, err := filepath.Glob(filepath.Join(f.opts.Dir, f.opts.Name+"-*.log"))
	if err != nil {
		return
	}
	oldest := now.AddDate(0, 0, -f.opts.KeepDays).Format(dayLayout)
	for _, path := range matches {
		day := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), f.opts.Name+"-"), ".log")
		if _, err := time.Parse(dayLayout, day); err != nil {
			continue
		}
		if day < oldest {
			_ = os.Remove(path)
		}
	}
}

// Options configures NewLogger.
type Options struct {
	// Dir receives the daily log files.
	Dir      string
	KeepDays int
	// Level is used unless STOCKTRACKER_LOG_LEVEL is set.
	Level slog.Level
	// Console defaults to os.Stdout.
	Console io.Writer
}

// NewLogger creates a slog.Logger writing to the console and a daily file,
// and installs it as the slog default.
func NewLogger(opts Options) (*slog.Logger, *RotatingFile, error) {
	file, err := OpenRotatingFile(FileOptions{Dir: opts.Dir, KeepDays: opts.KeepDays})
	if err != nil {
		return nil, nil, err
	}
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	handler := newHandler(io.MultiWriter(console, file), resolveLevel(opts.Level))
	logger := slog.New(handler).With("service", serviceName)
	slog.SetDefault(logger)
	return logger, file, nil
}

// NewConsoleLogger creates a logger without a file sink, for CLI commands.
func NewConsoleLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(newHandler(w, resolveLevel(level)))
}

// ParseLevel maps a level name or number to a slog.Level.
func ParseLevel(value string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return slog.Level(i), true
	}
	return slog.LevelInfo, false
}

func resolveLevel(fallback slog.Level) slog.Level {
	if level, ok := ParseLevel(os.Getenv(envLogLevel)); ok {
		return level
	}
	return fallback
}

// newHandler picks text output unless STOCKTRACKER_LOG_FORMAT=json.
func newHandler(w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envLogFormat)), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
