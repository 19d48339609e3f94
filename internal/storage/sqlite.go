// Package storage persists collected transactions in SQLite so repeated
// runs accumulate history instead of overwriting it.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store wraps a SQLite database holding insider transactions and Taiwan
// institutional rows.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath and applies
// migrations.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS insider_transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL,
			accession_number TEXT NOT NULL,
			reporter_name TEXT,
			reporter_cik TEXT,
			transaction_date TEXT NOT NULL,
			transaction_code TEXT NOT NULL,
			security_type TEXT,
			shares REAL NOT NULL,
			price_per_share REAL NOT NULL,
			total_value REAL NOT NULL,
			filing_date TEXT NOT NULL,
			anomalous INTEGER NOT NULL DEFAULT 0,
			UNIQUE(accession_number, reporter_cik, transaction_date, transaction_code, shares, price_per_share)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_insider_ticker ON insider_transactions(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_insider_date ON insider_transactions(transaction_date)`,
		`CREATE TABLE IF NOT EXISTS tw_institutional (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			stock_code TEXT NOT NULL,
			stock_name TEXT,
			foreign_buy INTEGER NOT NULL,
			foreign_sell INTEGER NOT NULL,
			investment_trust_buy INTEGER NOT NULL,
			investment_trust_sell INTEGER NOT NULL,
			dealer_buy INTEGER NOT NULL,
			dealer_sell INTEGER NOT NULL,
			UNIQUE(date, stock_code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tw_date ON tw_institutional(date)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
