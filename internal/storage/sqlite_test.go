package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/twse"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleTransaction(acc string) model.Transaction {
	return model.Transaction{
		Ticker:          "AAPL",
		AccessionNumber: acc,
		ReporterName:    "DOE JANE",
		ReporterCIK:     "0001234567",
		TransactionDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Code:            model.CodePurchase,
		Security:        model.SecurityCommonStock,
		Shares:          100,
		PricePerShare:   10,
		FilingDate:      time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestSaveAndGetTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.SaveTransactions(ctx, []model.Transaction{
		sampleTransaction("0001-24-000001"),
		sampleTransaction("0001-24-000002"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	got, err := store.GetTransactions(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0001-24-000001", got[0].AccessionNumber)
	assert.Equal(t, model.CodePurchase, got[0].Code)
	assert.Equal(t, 100.0, got[0].Shares)
	assert.Equal(t, "2024-01-10", got[0].TransactionDate.Format("2006-01-02"))

	none, err := store.GetTransactions(ctx, "MSFT")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveTransactionsIgnoresDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	txn := sampleTransaction("0001-24-000001")
	inserted, err := store.SaveTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = store.SaveTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	count, err := store.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSaveTWRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rows := []twse.DailyRow{
		{Date: "2024-01-15", StockCode: "2330", StockName: "台積電", ForeignBuy: 100, ForeignSell: 40},
		{Date: "2024-01-15", StockCode: "2317", ForeignBuy: 10, ForeignSell: 50},
	}

	inserted, err := store.SaveTWRows(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Same (date, stock_code) pairs are ignored on re-save.
	inserted, err = store.SaveTWRows(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestNewStoreEmptyPath(t *testing.T) {
	_, err := NewStore("")
	require.Error(t, err)
}
