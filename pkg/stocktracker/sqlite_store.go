package stocktracker

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the ledger and latest prices in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

var (
	_ TransactionStore = (*SQLiteStore)(nil)
	_ PriceBook        = (*SQLiteStore)(nil)
)

// OpenSQLiteStore opens (creating if needed) the database at dbPath.
func OpenSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cleanPath := filepath.Clean(dbPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	s := newSQLiteStore(db)
	s.dbPath = cleanPath
	return s, nil
}

func newSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// DBPath returns the underlying database path.
func (s *SQLiteStore) DBPath() string {
	return s.dbPath
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append validates in and inserts it.
func (s *SQLiteStore) Append(in TransactionInput) (Transaction, error) {
	in, err := normalizeTransactionInput(in, s.now())
	if err != nil {
		return Transaction{}, err
	}
	tx := Transaction{
		ID:     uuid.NewString(),
		Symbol: in.Symbol,
		Kind:   in.Kind,
		Shares: in.Shares,
		Price:  in.Price,
		Fee:    in.Fee,
		Date:   in.Date,
		Notes:  in.Notes,
	}
	_, err = s.db.Exec(`
		INSERT INTO transactions (id, symbol, kind, shares, price, fee, transaction_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, tx.ID, tx.Symbol, string(tx.Kind), tx.Shares, tx.Price, tx.Fee, tx.Date.Format(time.RFC3339Nano), nullableString(tx.Notes))
	if err != nil {
		return Transaction{}, WrapError(ErrCodeDatabase, "failed to insert transaction", err)
	}
	return tx, nil
}

// Remove deletes the transaction with id if present.
func (s *SQLiteStore) Remove(id string) error {
	if _, err := s.db.Exec("DELETE FROM transactions WHERE id = ?", id); err != nil {
		return WrapError(ErrCodeDatabase, "failed to delete transaction", err)
	}
	return nil
}

// List returns every transaction in insertion order.
func (s *SQLiteStore) List() ([]Transaction, error) {
	rows, err := s.db.Query(`
		SELECT id, symbol, kind, shares, price, fee, transaction_date, notes
		FROM transactions
		ORDER BY seq
	`)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "failed to query transactions", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var (
			tx    Transaction
			kind  string
			date  string
			notes sql.NullString
		)
		if err := rows.Scan(&tx.ID, &tx.Symbol, &kind, &tx.Shares, &tx.Price, &tx.Fee, &date, &notes); err != nil {
			return nil, WrapError(ErrCodeDatabase, "failed to scan transaction", err)
		}
		tx.Kind = TransactionKind(kind)
		tx.Date, err = time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return nil, WrapError(ErrCodeDatabase, "invalid transaction date", err)
		}
		if notes.Valid {
			tx.Notes = notes.String
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "failed to read transactions", err)
	}
	return txs, nil
}

// Clear deletes every transaction.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM transactions"); err != nil {
		return WrapError(ErrCodeDatabase, "failed to clear transactions", err)
	}
	return nil
}

// SavePrice inserts or updates the latest price of a symbol.
func (s *SQLiteStore) SavePrice(p PricePoint) error {
	_, err := s.db.Exec(`
		INSERT INTO latest_prices (symbol, price, change, change_percent, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			price = excluded.price,
			change = excluded.change,
			change_percent = excluded.change_percent,
			updated_at = excluded.updated_at
	`, p.Symbol, p.Price, p.Change, p.ChangePercent, p.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return WrapError(ErrCodeDatabase, "failed to save price", err)
	}
	return nil
}

// Prices returns every stored latest price keyed by symbol.
func (s *SQLiteStore) Prices() (map[string]PricePoint, error) {
	rows, err := s.db.Query("SELECT symbol, price, change, change_percent, updated_at FROM latest_prices")
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "failed to query prices", err)
	}
	defer rows.Close()

	result := map[string]PricePoint{}
	for rows.Next() {
		var (
			p         PricePoint
			updatedAt string
		)
		if err := rows.Scan(&p.Symbol, &p.Price, &p.Change, &p.ChangePercent, &updatedAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "failed to scan price", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			p.UpdatedAt = t
		}
		result[p.Symbol] = p
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "failed to read prices", err)
	}
	return result, nil
}

// ClearPrices deletes every stored price.
func (s *SQLiteStore) ClearPrices() error {
	if _, err := s.db.Exec("DELETE FROM latest_prices"); err != nil {
		return WrapError(ErrCodeDatabase, "failed to clear prices", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
