package stocktracker

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stocktracker/pkg/marketdata"
)

var testDate = time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)

// setupTestCore creates an in-memory Core backed by an instant mock source.
func setupTestCore(t *testing.T) (*Core, func()) {
	t.Helper()
	core, err := OpenWithOptions(Options{
		Source: marketdata.NewMockSource(marketdata.MockOptions{Seed: 7}),
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	if err != nil {
		t.Fatalf("failed to open core: %v", err)
	}
	return core, func() { core.Close() }
}

// setupTestSQLite opens a SQLite store in a temp directory.
// The caller should defer cleanup() to remove the temp file.
func setupTestSQLite(t *testing.T) (*SQLiteStore, string, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "stocktracker-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := OpenSQLiteStore(dbPath, nil)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}
	return store, dbPath, cleanup
}

// newTestPortfolio returns a portfolio over a fresh memory store and the
// buffer its logger writes to.
func newTestPortfolio(t *testing.T) (*Portfolio, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	p, err := NewPortfolio(NewMemoryStore(), slog.New(slog.NewTextHandler(buf, nil)))
	if err != nil {
		t.Fatalf("failed to create portfolio: %v", err)
	}
	return p, buf
}

func tx(id, symbol string, kind TransactionKind, shares, price float64) Transaction {
	return Transaction{
		ID:     id,
		Symbol: symbol,
		Kind:   kind,
		Shares: NewAmount(shares),
		Price:  NewAmount(price),
		Date:   testDate,
	}
}

func input(symbol string, kind TransactionKind, shares, price float64) TransactionInput {
	return TransactionInput{
		Symbol: symbol,
		Kind:   kind,
		Shares: NewAmount(shares),
		Price:  NewAmount(price),
		Date:   testDate,
	}
}

// testBuy records a BUY through the portfolio.
func testBuy(t *testing.T, p *Portfolio, symbol string, shares, price float64) Transaction {
	t.Helper()
	tx, err := p.AddTransaction(input(symbol, KindBuy, shares, price))
	if err != nil {
		t.Fatalf("failed to add BUY: %v", err)
	}
	return tx
}

// testSell records a SELL through the portfolio.
func testSell(t *testing.T, p *Portfolio, symbol string, shares, price float64) Transaction {
	t.Helper()
	tx, err := p.AddTransaction(input(symbol, KindSell, shares, price))
	if err != nil {
		t.Fatalf("failed to add SELL: %v", err)
	}
	return tx
}

// assertAmountEquals fails the test if the amount differs from want.
func assertAmountEquals(t *testing.T, got Amount, want float64, msg string) {
	t.Helper()
	if !got.Round(6).Equal(NewAmount(want).Round(6)) {
		t.Errorf("%s: got %s, want %v", msg, got.String(), want)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// assertErrorCode fails the test unless err carries code.
func assertErrorCode(t *testing.T, err error, code ErrorCode, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected %s error but got nil", msg, code)
	}
	if !IsErrorCode(err, code) {
		t.Fatalf("%s: expected %s error, got %v", msg, code, err)
	}
}

// assertContains checks if the string contains the substring.
func assertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: string %q does not contain %q", msg, s, substr)
	}
}
