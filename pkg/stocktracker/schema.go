package stocktracker

import (
	"database/sql"
	"fmt"
)

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// seq keeps insertion order independent of the transaction date.
	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS transactions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			symbol TEXT NOT NULL,
			kind TEXT NOT NULL CHECK(kind IN ('BUY', 'SELL', 'DIVIDEND')),
			shares TEXT NOT NULL,
			price TEXT NOT NULL,
			fee TEXT NOT NULL DEFAULT '0',
			transaction_date TEXT NOT NULL,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS latest_prices (
			symbol TEXT PRIMARY KEY,
			price TEXT NOT NULL,
			change TEXT NOT NULL DEFAULT '0',
			change_percent TEXT NOT NULL DEFAULT '0',
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_transactions_symbol ON transactions(symbol)",
	}
	for _, stmt := range indexes {
		if err := exec(tx, stmt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func exec(tx *sql.Tx, stmt string) error {
	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}
