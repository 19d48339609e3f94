package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/twse"
)

const dateLayout = "2006-01-02"

// SaveTransactions inserts transactions, ignoring rows already present.
// Returns the number of rows actually inserted.
func (s *Store) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO insider_transactions (
			ticker, accession_number, reporter_name, reporter_cik,
			transaction_date, transaction_code, security_type,
			shares, price_per_share, total_value, filing_date, anomalous
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, t := range transactions {
		anomalous := 0
		if t.Anomalous {
			anomalous = 1
		}
		res, err := stmt.ExecContext(ctx,
			t.Ticker, t.AccessionNumber, t.ReporterName, t.ReporterCIK,
			t.TransactionDate.Format(dateLayout), string(t.Code), string(t.Security),
			t.Shares, t.PricePerShare, t.TotalValue(), t.FilingDate.Format(dateLayout), anomalous,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", t.AccessionNumber, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// GetTransactions returns stored transactions for ticker, oldest first.
// An empty ticker returns everything.
func (s *Store) GetTransactions(ctx context.Context, ticker string) ([]model.Transaction, error) {
	query := `
		SELECT ticker, accession_number, reporter_name, reporter_cik,
		       transaction_date, transaction_code, security_type,
		       shares, price_per_share, filing_date, anomalous
		FROM insider_transactions`
	args := []any{}
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY transaction_date, accession_number`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var (
			t          model.Transaction
			txnDate    string
			filingDate string
			code       string
			secType    string
			anomalous  int
		)
		if err := rows.Scan(
			&t.Ticker, &t.AccessionNumber, &t.ReporterName, &t.ReporterCIK,
			&txnDate, &code, &secType,
			&t.Shares, &t.PricePerShare, &filingDate, &anomalous,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Code = model.TransactionCode(code)
		t.Security = model.SecurityType(secType)
		t.Anomalous = anomalous != 0
		if t.TransactionDate, err = time.Parse(dateLayout, txnDate); err != nil {
			return nil, fmt.Errorf("failed to parse transaction date %q: %w", txnDate, err)
		}
		if t.FilingDate, err = time.Parse(dateLayout, filingDate); err != nil {
			return nil, fmt.Errorf("failed to parse filing date %q: %w", filingDate, err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// SaveTWRows inserts Taiwan institutional rows, ignoring duplicates by
// (date, stock_code). Returns the number of rows actually inserted.
func (s *Store) SaveTWRows(ctx context.Context, rows []twse.DailyRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO tw_institutional (
			date, stock_code, stock_name,
			foreign_buy, foreign_sell,
			investment_trust_buy, investment_trust_sell,
			dealer_buy, dealer_sell
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, r := range rows {
		res, err := stmt.ExecContext(ctx,
			r.Date, r.StockCode, r.StockName,
			r.ForeignBuy, r.ForeignSell,
			r.InvestmentTrustBuy, r.InvestmentTrustSell,
			r.DealerBuy, r.DealerSell,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert row %s/%s: %w", r.Date, r.StockCode, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// CountTransactions returns the number of stored insider transactions.
func (s *Store) CountTransactions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM insider_transactions`).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
